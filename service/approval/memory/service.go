package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/homelend/loanflow/internal/clock"
	approval "github.com/homelend/loanflow/service/approval"
	"github.com/homelend/loanflow/service/dao"
	"github.com/homelend/loanflow/service/dao/store"
	"github.com/homelend/loanflow/service/messaging"
	qmem "github.com/homelend/loanflow/service/messaging/memory"
)

type service struct {
	// DAO-backed stores
	reqDAO dao.Service[string, approval.Request]
	decDAO dao.Service[string, approval.Decision]

	// fan-out queue
	events messaging.Queue[approval.Event]

	// per-application waiter slots; size-1 so a later decision overwrites an
	// unconsumed one
	mux     sync.Mutex
	waiters map[string]chan *approval.Decision
}

// key selectors – grab ID field
func reqKey(r *approval.Request) string  { return r.ID }
func decKey(d *approval.Decision) string { return d.ID }

func New(options ...Option) approval.Service {
	ret := &service{
		reqDAO:  store.NewMemoryStore[string, approval.Request](reqKey),
		decDAO:  store.NewMemoryStore[string, approval.Decision](decKey),
		events:  qmem.NewQueue[approval.Event](qmem.DefaultConfig()),
		waiters: make(map[string]chan *approval.Decision),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

/* ---------------- DAO-style operations -------------------------------- */

func (s *service) RequestApproval(ctx context.Context, r *approval.Request) error {
	if r == nil || r.ID == "" {
		return errors.New("invalid request")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = clock.Now()
	}

	// Idempotent save – overwrite any previous copy to handle re-submissions
	// gracefully.
	_ = s.reqDAO.Save(ctx, r)
	_ = s.events.Publish(ctx, &approval.Event{Topic: approval.TopicRequestCreated, Data: r})
	return nil
}

func (s *service) ListPending(ctx context.Context) ([]*approval.Request, error) {
	all, err := s.reqDAO.List(ctx)
	if err != nil {
		return nil, err
	}
	pending := make([]*approval.Request, 0, len(all))
	for _, r := range all {
		if d, _ := s.decDAO.Load(ctx, r.ID); d == nil {
			pending = append(pending, r)
		}
	}
	return pending, nil
}

func (s *service) Decide(ctx context.Context, id string, ok bool, reason string) (*approval.Decision, error) {
	if id == "" {
		return nil, errors.New("empty id")
	}
	request, _ := s.reqDAO.Load(ctx, id)
	if request == nil {
		return nil, fmt.Errorf("request %s not found", id)
	}

	d := &approval.Decision{
		ID:        id,
		Approved:  ok,
		Reason:    reason,
		DecidedAt: clock.Now(),
	}
	// later decisions overwrite an unconsumed one
	_ = s.decDAO.Save(ctx, d)
	s.deliver(id, d)
	_ = s.events.Publish(ctx, &approval.Event{Topic: approval.TopicDecisionCreated, Data: d})
	return d, nil
}

func (s *service) Await(ctx context.Context, id string) (*approval.Decision, error) {
	if d, _ := s.decDAO.Load(ctx, id); d != nil {
		return d, nil
	}
	waiter := s.waiter(id)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case d := <-waiter:
		return d, nil
	}
}

// waiter returns the size-1 delivery slot for an application.
func (s *service) waiter(id string) chan *approval.Decision {
	s.mux.Lock()
	defer s.mux.Unlock()
	waiter, ok := s.waiters[id]
	if !ok {
		waiter = make(chan *approval.Decision, 1)
		s.waiters[id] = waiter
	}
	return waiter
}

// deliver replaces any undelivered decision with the latest one.
func (s *service) deliver(id string, d *approval.Decision) {
	waiter := s.waiter(id)
	for {
		select {
		case waiter <- d:
			return
		default:
			select {
			case <-waiter:
			default:
			}
		}
	}
}

/* ---------------- Broker-style ---------------------------------------- */

func (s *service) Queue() messaging.Queue[approval.Event] { return s.events }

var _ approval.Service = (*service)(nil)
