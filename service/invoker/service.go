package invoker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/homelend/loanflow/extension"
	"github.com/homelend/loanflow/runtime/instance"
	"github.com/viant/structology/conv"
)

// Config controls the retry policy applied to transient activity failures.
type Config struct {
	// MaxAttempts is the total number of invocation attempts per call-site.
	MaxAttempts int `json:"maxAttempts" yaml:"maxAttempts"`

	// RetryDelay is the base delay before the first retry.
	RetryDelay time.Duration `json:"retryDelay" yaml:"retryDelay"`

	// Multiplier grows the delay exponentially between attempts.
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`

	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration `json:"maxDelay" yaml:"maxDelay"`
}

// DefaultConfig returns the default invocation configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		RetryDelay:  200 * time.Millisecond,
		Multiplier:  2,
		MaxDelay:    5 * time.Second,
	}
}

// SaveFunc persists the workflow instance after a journal append so that a
// recorded result survives a crash before the command completes.
type SaveFunc func(ctx context.Context, inst *instance.Instance) error

// Service invokes registered activity services with record-and-replay.
type Service struct {
	actions   *extension.Actions
	converter *conv.Converter
	config    Config
	saver     SaveFunc
}

// New creates an invoker backed by the supplied action registry.
func New(actions *extension.Actions, opts ...Option) *Service {
	options := conv.DefaultOptions()
	options.ClonePointerData = true
	options.IgnoreUnmapped = true
	options.AccessUnexported = true

	s := &Service{
		actions:   actions,
		converter: conv.NewConverter(options),
		config:    DefaultConfig(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Session tracks call-site ordering while one command executes against an
// instance. Call-sites are numbered in invocation order; the pair
// (command sequence, call-site index) addresses the journal.
type Session struct {
	service    *Service
	instance   *instance.Instance
	commandSeq int
	index      int
	replayOnly bool
}

// Session creates an execution session for a command.
func (s *Service) Session(inst *instance.Instance, commandSeq int) *Session {
	return &Session{service: s, instance: inst, commandSeq: commandSeq}
}

// ReplaySession creates a session that only serves recorded results; a
// call-site without a journal record fails with ErrHistoryExhausted instead
// of reaching out to the collaborator.
func (s *Service) ReplaySession(inst *instance.Instance, commandSeq int) *Session {
	return &Session{service: s, instance: inst, commandSeq: commandSeq, replayOnly: true}
}

// Invoke runs the named action ("service.method") for the next call-site of
// the session. If the call-site was already journaled the recorded result is
// returned without re-invoking the collaborator.
func (s *Session) Invoke(ctx context.Context, action string, input, output interface{}) error {
	index := s.index
	s.index++

	inputHash := instance.HashInput(input)
	if record := s.instance.JournalRecord(s.commandSeq, index); record != nil {
		if record.Action != action || record.InputHash != inputHash {
			return fmt.Errorf("%w: call-site (%d,%d) recorded %s, got %s", ErrNonDeterministic, s.commandSeq, index, record.Action, action)
		}
		if record.Error != "" {
			return &Error{Action: action, Attempts: record.Attempts, Permanent: record.Permanent, Err: errors.New(record.Error)}
		}
		if len(record.Result) > 0 && output != nil {
			if err := json.Unmarshal(record.Result, output); err != nil {
				return fmt.Errorf("failed to decode recorded result for %s: %w", action, err)
			}
		}
		return nil
	}
	if s.replayOnly {
		return fmt.Errorf("%w: no record for call-site (%d,%d) action %s", ErrHistoryExhausted, s.commandSeq, index, action)
	}

	record := &instance.ActivityRecord{
		CommandSeq: s.commandSeq,
		Index:      index,
		Action:     action,
		InputHash:  inputHash,
	}
	attempts, invokeErr := s.service.invoke(ctx, action, input, output)
	record.Attempts = attempts
	if invokeErr != nil {
		// a failed outcome is journaled too so that replay stays deterministic
		record.Error = invokeErr.Error()
		record.Permanent = IsPermanent(invokeErr)
		var invocation *Error
		if errors.As(invokeErr, &invocation) {
			record.Error = invocation.Err.Error()
		}
	} else {
		result, err := json.Marshal(output)
		if err != nil {
			return fmt.Errorf("failed to encode result for %s: %w", action, err)
		}
		record.Result = result
	}
	s.instance.AppendActivity(record)
	if s.service.saver != nil {
		if err := s.service.saver(ctx, s.instance); err != nil {
			return fmt.Errorf("failed to persist journal for %s: %w", action, err)
		}
	}
	return invokeErr
}

// invoke performs the real external call with retries; it returns the number
// of attempts made.
func (s *Service) invoke(ctx context.Context, action string, input, output interface{}) (int, error) {
	serviceName, methodName, err := splitAction(action)
	if err != nil {
		return 0, err
	}
	actionService := s.actions.Lookup(serviceName)
	if actionService == nil {
		return 0, &Error{Action: action, Permanent: true, Err: fmt.Errorf("service %v not found", serviceName)}
	}
	method, err := actionService.Method(methodName)
	if err != nil {
		return 0, &Error{Action: action, Permanent: true, Err: err}
	}
	signature := actionService.Methods().Lookup(methodName)
	if signature == nil {
		return 0, &Error{Action: action, Permanent: true, Err: fmt.Errorf("method %v not found for service %v", methodName, serviceName)}
	}

	typedInput, err := s.typedValue(signature.Input, input)
	if err != nil {
		return 0, &Error{Action: action, Permanent: true, Err: err}
	}
	typedOutput, err := s.typedValue(signature.Output, nil)
	if err != nil {
		return 0, &Error{Action: action, Permanent: true, Err: err}
	}

	attempts := 0
	for {
		attempts++
		err = method(ctx, typedInput, typedOutput)
		if err == nil {
			break
		}
		if IsPermanent(err) {
			return attempts, &Error{Action: action, Attempts: attempts, Permanent: true, Err: err}
		}
		retry, delay := s.shouldRetry(attempts)
		if !retry {
			return attempts, &Error{Action: action, Attempts: attempts, Err: err}
		}
		select {
		case <-ctx.Done():
			return attempts, &Error{Action: action, Attempts: attempts, Err: ctx.Err()}
		case <-time.After(delay):
		}
	}

	if output != nil && output != typedOutput {
		if err := s.converter.Convert(typedOutput, output); err != nil {
			return attempts, &Error{Action: action, Attempts: attempts, Permanent: true, Err: err}
		}
	}
	return attempts, nil
}

// shouldRetry returns (retry?, delay) for the next attempt.
func (s *Service) shouldRetry(attempts int) (bool, time.Duration) {
	if attempts >= s.config.MaxAttempts {
		return false, 0
	}
	mult := s.config.Multiplier
	if mult <= 1 {
		mult = 2
	}
	delay := float64(s.config.RetryDelay) * math.Pow(mult, float64(attempts-1))
	if s.config.MaxDelay > 0 && time.Duration(delay) > s.config.MaxDelay {
		return true, s.config.MaxDelay
	}
	return true, time.Duration(delay)
}

func (s *Service) typedValue(target reflect.Type, value interface{}) (interface{}, error) {
	if value != nil && reflect.TypeOf(value) == target {
		return value, nil
	}
	if target.Kind() != reflect.Ptr {
		return nil, fmt.Errorf("unsupported signature type: %v", target)
	}
	ptr := reflect.New(target.Elem()).Interface()
	if value != nil {
		if err := s.converter.Convert(value, ptr); err != nil {
			return nil, err
		}
	}
	return ptr, nil
}

func splitAction(action string) (string, string, error) {
	index := strings.LastIndex(action, ".")
	if index <= 0 || index == len(action)-1 {
		return "", "", &Error{Action: action, Permanent: true, Err: fmt.Errorf("invalid action: %q", action)}
	}
	return action[:index], action[index+1:], nil
}
