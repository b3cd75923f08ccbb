package memory

import (
	"context"
	"sync"

	"github.com/homelend/loanflow/runtime/instance"
	"github.com/homelend/loanflow/service/dao"
	"github.com/homelend/loanflow/service/dao/criteria"
)

// Service implements an in-memory, thread-safe store for workflow instances.
type Service struct {
	instances map[string]*instance.Instance
	mux       sync.RWMutex
}

var _ dao.Service[string, instance.Instance] = (*Service)(nil)

func (s *Service) Save(_ context.Context, inst *instance.Instance) error {
	if inst == nil {
		return dao.ErrNilEntity
	}
	if inst.ID == "" {
		return dao.ErrInvalidID
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	s.instances[inst.ID] = inst
	return nil
}

func (s *Service) Load(_ context.Context, id string) (*instance.Instance, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mux.RLock()
	inst, ok := s.instances[id]
	s.mux.RUnlock()
	if !ok {
		return nil, dao.ErrNotFound
	}
	return inst, nil
}

func (s *Service) Delete(_ context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, ok := s.instances[id]; !ok {
		return dao.ErrNotFound
	}
	delete(s.instances, id)
	return nil
}

func (s *Service) List(_ context.Context, parameters ...*dao.Parameter) ([]*instance.Instance, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	out := make([]*instance.Instance, 0, len(s.instances))
	for _, inst := range s.instances {
		if !criteria.FilterByPhase(inst.GetPhase(), parameters) {
			continue
		}
		out = append(out, inst)
	}
	return out, nil
}

func New() *Service {
	return &Service{instances: map[string]*instance.Instance{}}
}
