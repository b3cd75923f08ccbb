package loanflow

import (
	"context"
	"fmt"

	"github.com/homelend/loanflow/policy"
	"github.com/homelend/loanflow/service/activity/agent"
	"github.com/homelend/loanflow/service/activity/bank"
	"github.com/homelend/loanflow/service/activity/notify"
	"github.com/homelend/loanflow/service/dispatcher"
	"github.com/homelend/loanflow/service/invoker"
	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the engine configuration. It
// can be populated from YAML, JSON, environment-driven overrides, etc. The
// zero-value is useful – all nested fields inherit their package defaults.
type Config struct {
	Agent      agent.Config      `json:"agent" yaml:"agent"`
	Bank       bank.Config       `json:"bank" yaml:"bank"`
	Notify     notify.Config     `json:"notify" yaml:"notify"`
	Policy     *policy.Policy    `json:"policy,omitempty" yaml:"policy,omitempty"`
	Invoker    invoker.Config    `json:"invoker" yaml:"invoker"`
	Dispatcher dispatcher.Config `json:"dispatcher" yaml:"dispatcher"`

	// InstanceStoreURL switches instance storage from memory to an
	// afs-addressable location (file, mem, s3, gs, …).
	InstanceStoreURL string `json:"instanceStoreURL,omitempty" yaml:"instanceStoreURL,omitempty"`
}

// DefaultConfig returns a Config populated with the package defaults.
// Callers may modify the returned struct before passing it to New.
func DefaultConfig() *Config {
	return &Config{
		Invoker:    invoker.DefaultConfig(),
		Dispatcher: dispatcher.DefaultConfig(),
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Dispatcher.WorkerCount <= 0 {
		return fmt.Errorf("dispatcher.workerCount must be > 0")
	}
	if c.Invoker.MaxAttempts <= 0 {
		return fmt.Errorf("invoker.maxAttempts must be > 0")
	}
	return nil
}

// LoadConfig reads a YAML configuration from any afs-supported URL and
// merges it over the defaults.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", URL, err)
	}
	config := DefaultConfig()
	if err = yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", URL, err)
	}
	if err = config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
