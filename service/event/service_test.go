package event

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type phaseChange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func TestService_TypedPublishAndListen(t *testing.T) {
	service, err := New("memory")
	assert.NoError(t, err)

	received := make(chan *Event[phaseChange], 1)
	err = SetListenerOf[phaseChange](service, func(e *Event[phaseChange]) {
		received <- e
	})
	assert.NoError(t, err)

	publisher, err := PublisherOf[phaseChange](service)
	assert.NoError(t, err)

	eCtx := &Context{ApplicationID: "APP_1", Phase: "deciding", EventType: TypePhaseChanged}
	err = publisher.Publish(context.Background(), NewEvent(eCtx, phaseChange{From: "created", To: "deciding"}))
	assert.NoError(t, err)

	select {
	case e := <-received:
		assert.Equal(t, "APP_1", e.Context.ApplicationID)
		assert.Equal(t, "deciding", e.Data.To)
	case <-time.After(time.Second):
		t.Fatal("event never delivered")
	}
}

func TestService_UnsupportedVendor(t *testing.T) {
	_, err := New("kafka")
	assert.Error(t, err)
}
