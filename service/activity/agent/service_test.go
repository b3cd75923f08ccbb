package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/homelend/loanflow/model"
	"github.com/homelend/loanflow/service/invoker"
	"github.com/stretchr/testify/assert"
)

func TestService_Decide(t *testing.T) {
	var received DecideInput
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/decide", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"recommendation": "review",
			"additional_questions": []string{
				"Please provide your bank account number so we can verify your balance.",
			},
			"summary": "Need bank evidence before deciding.",
		})
	}))
	defer server.Close()
	service := New(Config{URL: server.URL})

	method, err := service.Method("decide")
	assert.NoError(t, err)
	output := &DecideOutput{}
	err = method(context.Background(), &DecideInput{
		ApplicationID: "APP_1",
		Messages: []model.Message{
			{Role: model.RoleUser, Content: "application payload"},
		},
	}, output)
	assert.NoError(t, err)
	assert.Equal(t, "APP_1", received.ApplicationID)
	if assert.NotNil(t, output.Recommendation) {
		assert.Equal(t, model.RecommendationReview, output.Recommendation.Recommendation)
		assert.False(t, output.Recommendation.Terminal())
	}
}

func TestService_DecideErrors(t *testing.T) {
	testCases := []struct {
		name            string
		status          int
		body            string
		expectPermanent bool
	}{
		{name: "client error is permanent", status: http.StatusBadRequest, body: `{"detail":"bad payload"}`, expectPermanent: true},
		{name: "malformed body is permanent", status: http.StatusOK, body: `{"recommendation": 42`, expectPermanent: true},
		{name: "unknown recommendation is permanent", status: http.StatusOK, body: `{"recommendation":"maybe"}`, expectPermanent: true},
		{name: "server error is transient", status: http.StatusInternalServerError, body: "overloaded", expectPermanent: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()
			service := New(Config{URL: server.URL})

			method, _ := service.Method("decide")
			err := method(context.Background(), &DecideInput{ApplicationID: "APP_1"}, &DecideOutput{})
			assert.Error(t, err)
			assert.Equal(t, tc.expectPermanent, invoker.IsPermanent(err))
		})
	}
}
