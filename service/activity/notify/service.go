package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/homelend/loanflow/model/types"
	"github.com/homelend/loanflow/service/invoker"
)

const name = "notify"

// Service posts reviewer notifications when an application escalates to a
// human decision. Delivery is best-effort: the caller treats a failed
// notification as degraded, not fatal.
type Service struct {
	baseURL     string
	approvalURL string
	client      *http.Client
	tokens      *TokenService
}

// Config holds the notification webhook settings.
type Config struct {
	// URL is the webhook endpoint notified about pending approvals.
	URL string `json:"url" yaml:"url"`

	// ApprovalURL is the public base URL reviewers open to decide.
	ApprovalURL string `json:"approvalURL" yaml:"approvalURL"`

	// HMACKeyURL locates the secret used to sign approval-link tokens.
	HMACKeyURL string `json:"hmacKeyURL" yaml:"hmacKeyURL"`

	// TokenTTL bounds how long an approval link stays valid.
	TokenTTL time.Duration `json:"tokenTTL" yaml:"tokenTTL"`

	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// EscalationInput describes the application awaiting a human decision.
type EscalationInput struct {
	ApplicationID string   `json:"applicationId"`
	ApplicantName string   `json:"applicantName"`
	Summary       string   `json:"summary,omitempty"`
	RiskFactors   []string `json:"riskFactors,omitempty"`
}

// EscalationOutput reports delivery status and the approval link that was
// sent out.
type EscalationOutput struct {
	Delivered   bool   `json:"delivered"`
	ApprovalURL string `json:"approvalURL,omitempty"`
	Error       string `json:"error,omitempty"`
}

// New creates a notification service. tokens may be nil, in which case
// approval links are sent without a signed token.
func New(config Config, tokens *TokenService) *Service {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		baseURL:     strings.TrimSuffix(config.URL, "/"),
		approvalURL: strings.TrimSuffix(config.ApprovalURL, "/"),
		client:      &http.Client{Timeout: timeout},
		tokens:      tokens,
	}
}

// Name returns the service name
func (s *Service) Name() string {
	return name
}

// Methods returns the service methods
func (s *Service) Methods() types.Signatures {
	return []types.Signature{
		{
			Name:        "escalation",
			Description: "Notifies reviewers that an application awaits a human decision.",
			Input:       reflect.TypeOf(&EscalationInput{}),
			Output:      reflect.TypeOf(&EscalationOutput{}),
		},
	}
}

// Method returns the specified method
func (s *Service) Method(name string) (types.Executable, error) {
	switch strings.ToLower(name) {
	case "escalation":
		return s.escalation, nil
	default:
		return nil, types.NewMethodNotFoundError(name)
	}
}

func (s *Service) escalation(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*EscalationInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*EscalationOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	if input.ApplicationID == "" {
		return invoker.Permanent(fmt.Errorf("application id is required"))
	}

	link, err := s.approvalLink(input.ApplicationID)
	if err != nil {
		output.Error = err.Error()
		return nil
	}
	output.ApprovalURL = link
	if s.baseURL == "" {
		return nil
	}

	payload := map[string]interface{}{
		"applicationId": input.ApplicationID,
		"applicantName": input.ApplicantName,
		"summary":       input.Summary,
		"riskFactors":   input.RiskFactors,
		"approvalURL":   link,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return invoker.Permanent(err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return invoker.Permanent(err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := s.client.Do(request)
	if err != nil {
		output.Error = err.Error()
		return nil
	}
	defer response.Body.Close()
	_, _ = io.Copy(io.Discard, response.Body)
	if response.StatusCode >= 400 {
		output.Error = fmt.Sprintf("webhook returned HTTP %d", response.StatusCode)
		return nil
	}
	output.Delivered = true
	return nil
}

func (s *Service) approvalLink(applicationID string) (string, error) {
	if s.approvalURL == "" {
		return "", nil
	}
	values := url.Values{"applicationId": {applicationID}}
	if s.tokens != nil {
		token, err := s.tokens.Create(applicationID)
		if err != nil {
			return "", fmt.Errorf("failed to mint approval token: %w", err)
		}
		values.Set("token", token)
	}
	return s.approvalURL + "/approvals?" + values.Encode(), nil
}

// Tokens exposes the approval token service for the HTTP surface.
func (s *Service) Tokens() *TokenService {
	return s.tokens
}
