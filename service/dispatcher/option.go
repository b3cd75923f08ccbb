package dispatcher

// Option customises the dispatcher service.
type Option func(*Service)

// WithWorkers sets the number of worker goroutines
func WithWorkers(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.config.WorkerCount = count
		}
	}
}

// WithConfig overrides the whole configuration
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}
