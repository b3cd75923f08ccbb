package router

import (
	"github.com/homelend/loanflow/progress"
)

// Option customises the router.
type Option func(*Service)

// WithProgress installs the progress tracker.
func WithProgress(p *progress.Progress) Option {
	return func(s *Service) {
		s.progress = p
	}
}
