package fs

import (
	"context"
	"errors"
	"testing"

	"github.com/homelend/loanflow/model"
	"github.com/homelend/loanflow/runtime/instance"
	"github.com/homelend/loanflow/service/dao"
	"github.com/stretchr/testify/assert"
)

func testInstance(id string) *instance.Instance {
	return instance.New(&model.Application{
		ID:                  id,
		ApplicantName:       "Tao",
		AnnualIncome:        150000,
		RequestedLoanAmount: 300000,
		PropertyValue:       400000,
	})
}

func TestService_RoundTrip(t *testing.T) {
	ctx := context.Background()
	service, err := New(t.TempDir())
	assert.NoError(t, err)

	inst := testInstance("APP_1")
	inst.SetPhase(instance.PhaseDeciding)
	_, err = inst.RecordCommand(instance.CommandStartProcessing, inst.Application)
	assert.NoError(t, err)
	inst.AppendActivity(&instance.ActivityRecord{CommandSeq: 0, Index: 0, Action: "agent.decide", InputHash: "abc", Result: []byte(`{"recommendation":{"recommendation":"review"}}`)})

	assert.NoError(t, service.Save(ctx, inst))

	loaded, err := service.Load(ctx, "APP_1")
	assert.NoError(t, err)
	assert.Equal(t, instance.PhaseDeciding, loaded.GetPhase())
	assert.Equal(t, 1, len(loaded.Commands))
	assert.Equal(t, 1, len(loaded.Journal))
	assert.Equal(t, inst.Application.RequestedLoanAmount, loaded.Application.RequestedLoanAmount)
}

func TestService_LoadMissing(t *testing.T) {
	service, err := New(t.TempDir())
	assert.NoError(t, err)
	_, err = service.Load(context.Background(), "APP_404")
	assert.True(t, errors.Is(err, dao.ErrNotFound))
}

func TestService_ListByPhase(t *testing.T) {
	ctx := context.Background()
	service, err := New(t.TempDir())
	assert.NoError(t, err)

	first := testInstance("APP_1")
	first.SetPhase(instance.PhaseDeciding)
	second := testInstance("APP_2")
	assert.NoError(t, service.Save(ctx, first))
	assert.NoError(t, service.Save(ctx, second))

	all, err := service.List(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(all))

	deciding, err := service.List(ctx, dao.NewParameter("Phase", instance.PhaseDeciding))
	assert.NoError(t, err)
	if assert.Equal(t, 1, len(deciding)) {
		assert.Equal(t, "APP_1", deciding[0].ID)
	}
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	service, err := New(t.TempDir())
	assert.NoError(t, err)

	assert.NoError(t, service.Save(ctx, testInstance("APP_1")))
	assert.NoError(t, service.Delete(ctx, "APP_1"))
	_, err = service.Load(ctx, "APP_1")
	assert.True(t, errors.Is(err, dao.ErrNotFound))
	assert.True(t, errors.Is(service.Delete(ctx, "APP_1"), dao.ErrNotFound))
}
