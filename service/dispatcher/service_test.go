package dispatcher

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/homelend/loanflow/extension"
	"github.com/homelend/loanflow/model"
	"github.com/homelend/loanflow/model/types"
	"github.com/homelend/loanflow/policy"
	"github.com/homelend/loanflow/runtime/instance"
	"github.com/homelend/loanflow/runtime/machine"
	"github.com/homelend/loanflow/service/activity/agent"
	"github.com/homelend/loanflow/service/activity/notify"
	approvalmem "github.com/homelend/loanflow/service/approval/memory"
	instancemem "github.com/homelend/loanflow/service/dao/instance/memory"
	"github.com/homelend/loanflow/service/invoker"
	qmem "github.com/homelend/loanflow/service/messaging/memory"
	"github.com/homelend/loanflow/service/router"
	"github.com/stretchr/testify/assert"
)

type approveAgent struct{}

func (s *approveAgent) Name() string { return "agent" }

func (s *approveAgent) Methods() types.Signatures {
	return types.Signatures{
		{Name: "decide", Input: reflect.TypeOf(&agent.DecideInput{}), Output: reflect.TypeOf(&agent.DecideOutput{})},
	}
}

func (s *approveAgent) Method(name string) (types.Executable, error) {
	if name != "decide" {
		return nil, types.NewMethodNotFoundError(name)
	}
	return func(ctx context.Context, in, out interface{}) error {
		out.(*agent.DecideOutput).Recommendation = &model.Recommendation{
			Recommendation: model.RecommendationApprove,
			Summary:        "approve with conditions",
		}
		return nil
	}, nil
}

type quietNotify struct{}

func (s *quietNotify) Name() string { return "notify" }

func (s *quietNotify) Methods() types.Signatures {
	return types.Signatures{
		{Name: "escalation", Input: reflect.TypeOf(&notify.EscalationInput{}), Output: reflect.TypeOf(&notify.EscalationOutput{})},
	}
}

func (s *quietNotify) Method(name string) (types.Executable, error) {
	if name != "escalation" {
		return nil, types.NewMethodNotFoundError(name)
	}
	return func(ctx context.Context, in, out interface{}) error {
		out.(*notify.EscalationOutput).Delivered = true
		return nil
	}, nil
}

func TestService_DeliversSignals(t *testing.T) {
	actions := extension.NewActions()
	actions.Register(&approveAgent{})
	actions.Register(&quietNotify{})

	signals := qmem.NewQueue[router.Signal](qmem.DefaultConfig())
	m := machine.New(invoker.New(actions), machine.WithPolicy(&policy.Policy{Mode: policy.ModeEscalate}))
	routerService := router.New(instancemem.New(), m, approvalmem.New(), signals)

	service, err := New(signals, routerService)
	assert.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	assert.NoError(t, service.Start(ctx))
	defer service.Shutdown()

	result, err := routerService.StartOrUpdate(ctx, &model.Application{
		ID:                  "APP_1",
		ApplicantName:       "Tao",
		AnnualIncome:        150000,
		RequestedLoanAmount: 300000,
		PropertyValue:       400000,
	})
	assert.NoError(t, err)
	assert.Equal(t, router.StatusAwaitingHumanDecision, result.Status)

	assert.NoError(t, routerService.Signal(ctx, &router.Signal{ApplicationID: "APP_1", Decision: model.HumanApprove, Reason: "verified"}))

	waitCtx, waitCancel := context.WithTimeout(ctx, 2*time.Second)
	defer waitCancel()
	final, err := routerService.AwaitFinal(waitCtx, "APP_1")
	assert.NoError(t, err)
	if assert.NotNil(t, final) {
		assert.Equal(t, instance.PhaseFinalized, final.Phase)
		if assert.NotNil(t, final.FinalResult) {
			assert.Equal(t, model.FinalApproved, final.FinalResult.Status)
		}
	}
}

func TestService_RequiresDependencies(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
}
