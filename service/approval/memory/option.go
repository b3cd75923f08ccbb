package memory

import (
	approval "github.com/homelend/loanflow/service/approval"
	"github.com/homelend/loanflow/service/dao"
	"github.com/homelend/loanflow/service/messaging"
)

// Option customises the in-memory approval service.
type Option func(*service)

// WithRequestDAO overrides the request store.
func WithRequestDAO(d dao.Service[string, approval.Request]) Option {
	return func(s *service) {
		s.reqDAO = d
	}
}

// WithDecisionDAO overrides the decision store.
func WithDecisionDAO(d dao.Service[string, approval.Decision]) Option {
	return func(s *service) {
		s.decDAO = d
	}
}

// WithQueue overrides the event queue.
func WithQueue(q messaging.Queue[approval.Event]) Option {
	return func(s *service) {
		s.events = q
	}
}
