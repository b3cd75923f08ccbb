package loanflow

import (
	"context"
	"log"

	"github.com/homelend/loanflow/extension"
	"github.com/homelend/loanflow/model/types"
	"github.com/homelend/loanflow/progress"
	"github.com/homelend/loanflow/runtime/instance"
	"github.com/homelend/loanflow/runtime/machine"
	"github.com/homelend/loanflow/service/activity/agent"
	"github.com/homelend/loanflow/service/activity/bank"
	"github.com/homelend/loanflow/service/activity/notify"
	"github.com/homelend/loanflow/service/approval"
	approvalmem "github.com/homelend/loanflow/service/approval/memory"
	"github.com/homelend/loanflow/service/dao"
	instancefs "github.com/homelend/loanflow/service/dao/instance/fs"
	instancemem "github.com/homelend/loanflow/service/dao/instance/memory"
	"github.com/homelend/loanflow/service/dispatcher"
	"github.com/homelend/loanflow/service/event"
	"github.com/homelend/loanflow/service/invoker"
	"github.com/homelend/loanflow/service/messaging"
	mmemory "github.com/homelend/loanflow/service/messaging/memory"
	"github.com/homelend/loanflow/service/router"

	"github.com/viant/x"
)

// Service is the engine façade wiring storage, activities, the state
// machine and the command surface together.
type Service struct {
	config            *Config
	runtime           *Runtime
	actions           *extension.Actions
	extensionTypes    []*x.Type
	extensionServices []types.Service
	invoker           *invoker.Service
	machine           *machine.Machine
	approvalService   approval.Service
	eventService      *event.Service
	instanceDAO       dao.Service[string, instance.Instance]
	signalQueue       messaging.Queue[router.Signal]
	tracker           *progress.Progress
	tokens            *notify.TokenService
}

func (s *Service) init(options []Option) {
	for _, option := range options {
		option(s)
	}
	s.ensureBaseSetup()

	s.actions = extension.NewActions(s.extensionTypes...)
	s.actions.Register(agent.New(s.config.Agent))
	s.actions.Register(bank.New(s.config.Bank))
	s.actions.Register(notify.New(s.config.Notify, s.tokens))
	for _, service := range s.extensionServices {
		s.actions.Register(service)
	}

	s.invoker = invoker.New(s.actions,
		invoker.WithConfig(s.config.Invoker),
		invoker.WithSaver(func(ctx context.Context, inst *instance.Instance) error {
			return s.instanceDAO.Save(ctx, inst)
		}))

	machineOptions := []machine.Option{machine.WithPolicy(s.config.Policy)}
	if observer := s.eventObserver(); observer != nil {
		machineOptions = append(machineOptions, machine.WithObserver(observer))
	}
	s.machine = machine.New(s.invoker, machineOptions...)

	s.runtime.router = router.New(s.instanceDAO, s.machine, s.approvalService, s.signalQueue,
		router.WithProgress(s.tracker))
	s.runtime.dispatcher, _ = dispatcher.New(s.signalQueue, s.runtime.router,
		dispatcher.WithConfig(s.config.Dispatcher))
	s.runtime.approval = s.approvalService
	s.runtime.tracker = s.tracker
}

func (s *Service) ensureBaseSetup() {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if s.instanceDAO == nil {
		if s.config.InstanceStoreURL != "" {
			store, err := instancefs.New(s.config.InstanceStoreURL)
			if err != nil {
				log.Printf("failed to open instance store %s, falling back to memory: %v", s.config.InstanceStoreURL, err)
			} else {
				s.instanceDAO = store
			}
		}
		if s.instanceDAO == nil {
			s.instanceDAO = instancemem.New()
		}
	}
	if s.signalQueue == nil {
		s.signalQueue = mmemory.NewQueue[router.Signal](mmemory.DefaultConfig())
	}
	if s.approvalService == nil {
		s.approvalService = approvalmem.New()
	}
	if s.eventService == nil {
		s.eventService, _ = event.New("memory")
	}
	if s.tracker == nil {
		s.tracker = &progress.Progress{Service: "loanflow"}
	}
	if s.tokens == nil && s.config != nil && s.config.Notify.HMACKeyURL != "" {
		tokens, err := notify.NewTokenService(context.Background(), s.config.Notify.HMACKeyURL, s.config.Notify.TokenTTL)
		if err != nil {
			log.Printf("approval tokens disabled: %v", err)
		} else {
			s.tokens = tokens
		}
	}
}

// eventObserver bridges machine transitions onto the event service.
func (s *Service) eventObserver() machine.Observer {
	if s.eventService == nil {
		return nil
	}
	publisher, err := event.PublisherOf[*instance.Snapshot](s.eventService)
	if err != nil {
		return nil
	}
	return func(inst *instance.Instance, eventType string) {
		snapshot := inst.Snapshot()
		eCtx := &event.Context{
			ApplicationID: snapshot.ApplicationID,
			Phase:         snapshot.Phase,
			EventType:     eventType,
		}
		_ = publisher.Publish(context.Background(), event.NewEvent(eCtx, snapshot))
	}
}

// RegisterExtensionTypes registers additional go types for conversion.
func (s *Service) RegisterExtensionTypes(types ...*x.Type) {
	for i := range types {
		s.actions.Types().Register(types[i])
	}
}

// RegisterExtensionServices registers additional activity services.
func (s *Service) RegisterExtensionServices(services ...types.Service) {
	for i := range services {
		s.actions.Register(services[i])
	}
}

// Runtime returns the runtime facade.
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// Events returns the event service for observers.
func (s *Service) Events() *event.Service {
	return s.eventService
}

// Approval returns the approval service backing the human decision gate.
func (s *Service) Approval() approval.Service {
	return s.approvalService
}

// Tokens returns the approval-link token service, if configured.
func (s *Service) Tokens() *notify.TokenService {
	return s.tokens
}

// New creates the engine with the supplied options.
func New(options ...Option) *Service {
	ret := &Service{runtime: &Runtime{}}
	ret.init(options)
	return ret
}
