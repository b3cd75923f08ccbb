package memory

import (
	"context"
	"testing"
	"time"

	approval "github.com/homelend/loanflow/service/approval"
	"github.com/stretchr/testify/assert"
)

func TestService_RequestAndDecide(t *testing.T) {
	ctx := context.Background()
	svc := New()

	err := svc.RequestApproval(ctx, &approval.Request{ID: "APP_1", Summary: "borderline ratios"})
	assert.NoError(t, err)

	// re-submission is idempotent
	assert.NoError(t, svc.RequestApproval(ctx, &approval.Request{ID: "APP_1"}))

	pending, err := svc.ListPending(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(pending))

	decision, err := svc.Decide(ctx, "APP_1", true, "income verified")
	assert.NoError(t, err)
	assert.True(t, decision.Approved)

	pending, err = svc.ListPending(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(pending))
}

func TestService_DecideUnknown(t *testing.T) {
	svc := New()
	_, err := svc.Decide(context.Background(), "APP_404", true, "")
	assert.Error(t, err)
}

func TestService_AwaitDeliversLatestDecision(t *testing.T) {
	ctx := context.Background()
	svc := New()
	assert.NoError(t, svc.RequestApproval(ctx, &approval.Request{ID: "APP_1"}))

	// two decisions land before anyone waits; the later one wins
	_, err := svc.Decide(ctx, "APP_1", false, "too risky")
	assert.NoError(t, err)
	_, err = svc.Decide(ctx, "APP_1", true, "cleared after review")
	assert.NoError(t, err)

	decision, err := svc.Await(ctx, "APP_1")
	assert.NoError(t, err)
	assert.True(t, decision.Approved)
	assert.Equal(t, "cleared after review", decision.Reason)
}

func TestService_AwaitBlocksUntilDecision(t *testing.T) {
	ctx := context.Background()
	svc := New()
	assert.NoError(t, svc.RequestApproval(ctx, &approval.Request{ID: "APP_1"}))

	done := make(chan *approval.Decision, 1)
	go func() {
		d, _ := svc.Await(ctx, "APP_1")
		done <- d
	}()

	select {
	case <-done:
		t.Fatal("await returned before any decision")
	case <-time.After(20 * time.Millisecond):
	}

	_, err := svc.Decide(ctx, "APP_1", false, "insufficient balance")
	assert.NoError(t, err)

	select {
	case d := <-done:
		if assert.NotNil(t, d) {
			assert.False(t, d.Approved)
		}
	case <-time.After(time.Second):
		t.Fatal("await never observed the decision")
	}
}

func TestService_AutoDecideResolvesPending(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := New()
	assert.NoError(t, svc.RequestApproval(ctx, &approval.Request{ID: "APP_1"}))
	assert.NoError(t, svc.RequestApproval(ctx, &approval.Request{ID: "APP_2"}))

	stop := approval.ApproveAll(ctx, svc, 5*time.Millisecond)
	defer stop()

	for _, id := range []string{"APP_1", "APP_2"} {
		decision, err := svc.Await(ctx, id)
		assert.NoError(t, err)
		if assert.NotNil(t, decision) {
			assert.True(t, decision.Approved)
		}
	}
	pending, err := svc.ListPending(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(pending))
}

func TestService_RejectAll(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := New()
	assert.NoError(t, svc.RequestApproval(ctx, &approval.Request{ID: "APP_1"}))

	stop := approval.RejectAll(ctx, svc, "manual review unavailable", 5*time.Millisecond)
	defer stop()

	decision, err := svc.Await(ctx, "APP_1")
	assert.NoError(t, err)
	if assert.NotNil(t, decision) {
		assert.False(t, decision.Approved)
		assert.Equal(t, "manual review unavailable", decision.Reason)
	}
}

func TestService_AwaitHonorsContext(t *testing.T) {
	svc := New()
	assert.NoError(t, svc.RequestApproval(context.Background(), &approval.Request{ID: "APP_1"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := svc.Await(ctx, "APP_1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
