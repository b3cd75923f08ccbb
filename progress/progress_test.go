package progress

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress_Update(t *testing.T) {
	p := &Progress{Service: "loanflow"}
	p.Update(Delta{Applications: 1, Deciding: 1})
	p.Update(Delta{Deciding: -1, AwaitingHuman: 1})
	p.Update(Delta{AwaitingHuman: -1, Finalized: 1, Approved: 1})

	snapshot := p.Snapshot()
	assert.Equal(t, 1, snapshot.Applications)
	assert.Equal(t, 0, snapshot.Deciding)
	assert.Equal(t, 0, snapshot.AwaitingHuman)
	assert.Equal(t, 1, snapshot.Finalized)
	assert.Equal(t, 1, snapshot.Approved)
}

func TestProgress_ConcurrentUpdate(t *testing.T) {
	p := &Progress{}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Update(Delta{Applications: 1})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, p.Snapshot().Applications)
}

func TestProgress_OnChange(t *testing.T) {
	var observed []int
	p := &Progress{}
	p.OnChange(func(s Progress) {
		observed = append(observed, s.Applications)
	})
	p.Update(Delta{Applications: 1})
	p.Update(Delta{Applications: 1})
	assert.Equal(t, []int{1, 2}, observed)
}

func TestProgress_Context(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	ctx, tr := WithNewTracker(context.Background(), "loanflow", nil)
	assert.Equal(t, tr, FromContext(ctx))
}
