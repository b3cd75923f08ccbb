package invoker

// Option customises the invoker service.
type Option func(*Service)

// WithConfig overrides the retry configuration.
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithSaver installs a persistence callback invoked after every journal
// append.
func WithSaver(saver SaveFunc) Option {
	return func(s *Service) {
		s.saver = saver
	}
}
