package invoker

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/homelend/loanflow/extension"
	"github.com/homelend/loanflow/model"
	"github.com/homelend/loanflow/model/types"
	"github.com/homelend/loanflow/runtime/instance"
	"github.com/stretchr/testify/assert"
)

type echoInput struct {
	Value string `json:"value"`
}

type echoOutput struct {
	Value string `json:"value"`
	Calls int    `json:"calls"`
}

// echoService fails with transient errors for the first `failures` calls,
// then succeeds; with permanent set it always fails permanently.
type echoService struct {
	calls     int
	failures  int
	permanent bool
}

func (s *echoService) Name() string {
	return "test/echo"
}

func (s *echoService) Methods() types.Signatures {
	return types.Signatures{
		{
			Name:   "echo",
			Input:  reflect.TypeOf(&echoInput{}),
			Output: reflect.TypeOf(&echoOutput{}),
		},
	}
}

func (s *echoService) Method(name string) (types.Executable, error) {
	if name != "echo" {
		return nil, types.NewMethodNotFoundError(name)
	}
	return func(ctx context.Context, in, out interface{}) error {
		s.calls++
		if s.permanent {
			return Permanent(errors.New("malformed response"))
		}
		if s.calls <= s.failures {
			return errors.New("connection reset")
		}
		input := in.(*echoInput)
		output := out.(*echoOutput)
		output.Value = input.Value
		output.Calls = s.calls
		return nil
	}, nil
}

func testService(activity *echoService) *Service {
	actions := extension.NewActions()
	actions.Register(activity)
	return New(actions, WithConfig(Config{
		MaxAttempts: 3,
		RetryDelay:  time.Millisecond,
		Multiplier:  2,
		MaxDelay:    5 * time.Millisecond,
	}))
}

func testInstance() *instance.Instance {
	return instance.New(&model.Application{
		ID:                  "APP_1",
		ApplicantName:       "Tao",
		AnnualIncome:        150000,
		RequestedLoanAmount: 300000,
		PropertyValue:       400000,
	})
}

func TestSession_InvokeAndReplay(t *testing.T) {
	activity := &echoService{}
	service := testService(activity)
	inst := testInstance()

	session := service.Session(inst, 0)
	var output echoOutput
	err := session.Invoke(context.Background(), "test/echo.echo", &echoInput{Value: "hello"}, &output)
	assert.NoError(t, err)
	assert.Equal(t, "hello", output.Value)
	assert.Equal(t, 1, activity.calls)
	assert.Equal(t, 1, len(inst.Journal))

	// replaying the same call-site returns the recorded result without a
	// second external call
	replay := service.Session(inst, 0)
	var replayed echoOutput
	err = replay.Invoke(context.Background(), "test/echo.echo", &echoInput{Value: "hello"}, &replayed)
	assert.NoError(t, err)
	assert.Equal(t, "hello", replayed.Value)
	assert.Equal(t, 1, activity.calls)
}

func TestSession_DistinctCallSitesReinvoke(t *testing.T) {
	activity := &echoService{}
	service := testService(activity)
	inst := testInstance()

	session := service.Session(inst, 0)
	var first, second echoOutput
	assert.NoError(t, session.Invoke(context.Background(), "test/echo.echo", &echoInput{Value: "a"}, &first))
	assert.NoError(t, session.Invoke(context.Background(), "test/echo.echo", &echoInput{Value: "b"}, &second))
	assert.Equal(t, 2, activity.calls)

	// a later command sequence is a fresh call-site too
	next := service.Session(inst, 1)
	var third echoOutput
	assert.NoError(t, next.Invoke(context.Background(), "test/echo.echo", &echoInput{Value: "a"}, &third))
	assert.Equal(t, 3, activity.calls)
	assert.Equal(t, 3, len(inst.Journal))
}

func TestSession_TransientRetry(t *testing.T) {
	activity := &echoService{failures: 2}
	service := testService(activity)
	inst := testInstance()

	session := service.Session(inst, 0)
	var output echoOutput
	err := session.Invoke(context.Background(), "test/echo.echo", &echoInput{Value: "retry"}, &output)
	assert.NoError(t, err)
	assert.Equal(t, 3, activity.calls)
	assert.Equal(t, 3, inst.Journal[0].Attempts)
}

func TestSession_RetriesExhausted(t *testing.T) {
	activity := &echoService{failures: 10}
	service := testService(activity)
	inst := testInstance()

	session := service.Session(inst, 0)
	var output echoOutput
	err := session.Invoke(context.Background(), "test/echo.echo", &echoInput{Value: "down"}, &output)
	assert.Error(t, err)

	var invocation *Error
	if assert.True(t, errors.As(err, &invocation)) {
		assert.Equal(t, 3, invocation.Attempts)
		assert.False(t, invocation.Permanent)
	}
	assert.False(t, IsPermanent(err))

	// the failed outcome is journaled and replays without a new call
	if assert.Equal(t, 1, len(inst.Journal)) {
		assert.NotEmpty(t, inst.Journal[0].Error)
	}
	replay := service.Session(inst, 0)
	err = replay.Invoke(context.Background(), "test/echo.echo", &echoInput{Value: "down"}, &output)
	assert.Error(t, err)
	assert.Equal(t, 3, activity.calls)
}

func TestSession_PermanentNoRetry(t *testing.T) {
	activity := &echoService{permanent: true}
	service := testService(activity)
	inst := testInstance()

	session := service.Session(inst, 0)
	var output echoOutput
	err := session.Invoke(context.Background(), "test/echo.echo", &echoInput{Value: "bad"}, &output)
	assert.Error(t, err)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, activity.calls)
}

func TestSession_ReplayOnly(t *testing.T) {
	activity := &echoService{}
	service := testService(activity)
	inst := testInstance()

	session := service.ReplaySession(inst, 0)
	var output echoOutput
	err := session.Invoke(context.Background(), "test/echo.echo", &echoInput{Value: "missing"}, &output)
	assert.True(t, errors.Is(err, ErrHistoryExhausted))
	assert.Equal(t, 0, activity.calls)
}

func TestSession_NonDeterministicReplay(t *testing.T) {
	activity := &echoService{}
	service := testService(activity)
	inst := testInstance()

	session := service.Session(inst, 0)
	var output echoOutput
	assert.NoError(t, session.Invoke(context.Background(), "test/echo.echo", &echoInput{Value: "original"}, &output))

	replay := service.Session(inst, 0)
	err := replay.Invoke(context.Background(), "test/echo.echo", &echoInput{Value: "changed"}, &output)
	assert.True(t, errors.Is(err, ErrNonDeterministic))
}
