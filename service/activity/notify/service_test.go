package notify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestService_Escalation(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	service := New(Config{URL: server.URL, ApprovalURL: "https://portal.example.com"}, nil)
	method, err := service.Method("escalation")
	assert.NoError(t, err)

	output := &EscalationOutput{}
	err = method(context.Background(), &EscalationInput{
		ApplicationID: "APP_1",
		ApplicantName: "Tao",
		Summary:       "Borderline debt ratio, needs a second look.",
		RiskFactors:   []string{"high DTI"},
	}, output)
	assert.NoError(t, err)
	assert.True(t, output.Delivered)
	assert.Contains(t, output.ApprovalURL, "https://portal.example.com/approvals?")
	assert.Contains(t, output.ApprovalURL, "applicationId=APP_1")
	assert.Equal(t, "APP_1", received["applicationId"])
	assert.Equal(t, output.ApprovalURL, received["approvalURL"])
}

func TestService_EscalationBestEffort(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	service := New(Config{URL: server.URL}, nil)
	method, _ := service.Method("escalation")

	// a failing webhook degrades the notification, it does not fail the call
	output := &EscalationOutput{}
	err := method(context.Background(), &EscalationInput{ApplicationID: "APP_1"}, output)
	assert.NoError(t, err)
	assert.False(t, output.Delivered)
	assert.NotEmpty(t, output.Error)
}

func TestTokenService_RoundTrip(t *testing.T) {
	keyURL := filepath.Join(t.TempDir(), "approval.key")
	key := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
	assert.NoError(t, os.WriteFile(keyURL, []byte(key), 0600))

	ctx := context.Background()
	tokens, err := NewTokenService(ctx, keyURL, time.Hour)
	if err != nil {
		t.Skipf("token service unavailable: %v", err)
	}

	token, err := tokens.Create("APP_1")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	applicationID, err := tokens.Verify(ctx, token)
	assert.NoError(t, err)
	assert.Equal(t, "APP_1", applicationID)

	_, err = tokens.Verify(ctx, token+"tampered")
	assert.Error(t, err)
}
