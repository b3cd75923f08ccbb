package loanflow

import (
	"github.com/homelend/loanflow/model/types"
	"github.com/homelend/loanflow/policy"
	"github.com/homelend/loanflow/progress"
	"github.com/homelend/loanflow/runtime/instance"
	"github.com/homelend/loanflow/service/activity/notify"
	"github.com/homelend/loanflow/service/approval"
	"github.com/homelend/loanflow/service/dao"
	"github.com/homelend/loanflow/service/event"
	"github.com/homelend/loanflow/service/messaging"
	"github.com/homelend/loanflow/service/router"
	"github.com/viant/x"
)

// Option represents a service option
type Option func(*Service)

// WithConfig sets the engine configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithPolicy overrides the escalation policy.
func WithPolicy(p *policy.Policy) Option {
	return func(s *Service) {
		if s.config == nil {
			s.config = DefaultConfig()
		}
		s.config.Policy = p
	}
}

// WithInstanceDAO sets a custom instance store.
func WithInstanceDAO(service dao.Service[string, instance.Instance]) Option {
	return func(s *Service) {
		s.instanceDAO = service
	}
}

// WithSignalQueue sets the queue human decision signals travel on.
func WithSignalQueue(queue messaging.Queue[router.Signal]) Option {
	return func(s *Service) {
		s.signalQueue = queue
	}
}

// WithApprovalService sets the approval service backing the human gate.
func WithApprovalService(service approval.Service) Option {
	return func(s *Service) {
		s.approvalService = service
	}
}

// WithEventService sets the event service used for runtime notifications.
func WithEventService(service *event.Service) Option {
	return func(s *Service) {
		s.eventService = service
	}
}

// WithProgress sets the progress tracker.
func WithProgress(tracker *progress.Progress) Option {
	return func(s *Service) {
		s.tracker = tracker
	}
}

// WithTokenService sets the approval-link token service.
func WithTokenService(tokens *notify.TokenService) Option {
	return func(s *Service) {
		s.tokens = tokens
	}
}

// WithExtensionTypes registers additional go types for conversion.
func WithExtensionTypes(types ...*x.Type) Option {
	return func(s *Service) {
		s.extensionTypes = append(s.extensionTypes, types...)
	}
}

// WithExtensionServices registers additional activity services. A service
// with the same name as a built-in one replaces it.
func WithExtensionServices(services ...types.Service) Option {
	return func(s *Service) {
		s.extensionServices = append(s.extensionServices, services...)
	}
}
