// Package dispatcher delivers buffered human-decision signals to their
// workflow instances. Signals travel through a queue so that a reviewer
// posting a decision never waits on workflow execution; workers fold each
// decision via the router.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/homelend/loanflow/service/messaging"
	"github.com/homelend/loanflow/service/router"
)

// Config represents dispatcher configuration
type Config struct {
	// WorkerCount is the number of workers applying decisions
	WorkerCount int `json:"workerCount" yaml:"workerCount"`
}

// DefaultConfig returns the default dispatcher configuration
func DefaultConfig() Config {
	return Config{
		WorkerCount: 2,
	}
}

// Service consumes the signal queue and applies decisions.
type Service struct {
	config Config
	queue  messaging.Queue[router.Signal]
	router *router.Service

	workers    []*worker
	workerWg   sync.WaitGroup
	shutdownCh chan struct{}
}

type worker struct {
	id       int
	service  *Service
	ctx      context.Context
	cancelFn context.CancelFunc
}

// New creates a dispatcher service
func New(queue messaging.Queue[router.Signal], routerService *router.Service, options ...Option) (*Service, error) {
	s := &Service{
		config:     DefaultConfig(),
		queue:      queue,
		router:     routerService,
		shutdownCh: make(chan struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.queue == nil {
		return nil, fmt.Errorf("signal queue is required")
	}
	if s.router == nil {
		return nil, fmt.Errorf("router is required")
	}
	return s, nil
}

// Start begins signal delivery
func (s *Service) Start(ctx context.Context) error {
	for i := 0; i < s.config.WorkerCount; i++ {
		workerCtx, cancel := context.WithCancel(ctx)
		worker := &worker{
			id:       i,
			service:  s,
			ctx:      workerCtx,
			cancelFn: cancel,
		}
		s.workers = append(s.workers, worker)
		s.workerWg.Add(1)
		go worker.run()
	}
	return nil
}

// run processes signals from the queue
func (w *worker) run() {
	defer w.service.workerWg.Done()

	for {
		msg, err := w.service.queue.Consume(w.ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if msg == nil {
			continue
		}
		if pErr := w.service.apply(w.ctx, msg); pErr != nil {
			log.Printf("dispatcher worker %d: failed to apply decision: %v", w.id, pErr)
		}
	}
}

// apply folds one decision and acknowledges the message.
func (s *Service) apply(ctx context.Context, msg messaging.Message[router.Signal]) error {
	signal := msg.T()
	if _, err := s.router.ApplyDecision(ctx, signal); err != nil {
		if router.IsNotFound(err) {
			// signals to unknown applications are dropped
			return msg.Ack()
		}
		return msg.Nack(err)
	}
	return msg.Ack()
}

// Shutdown stops all workers and waits for them to drain.
func (s *Service) Shutdown() {
	close(s.shutdownCh)
	for _, worker := range s.workers {
		worker.cancelFn()
	}
	s.workerWg.Wait()
}
