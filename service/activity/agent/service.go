package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/homelend/loanflow/model"
	"github.com/homelend/loanflow/model/types"
	"github.com/homelend/loanflow/service/invoker"
)

const name = "agent"

// Service calls the underwriting decision agent over HTTP. The agent receives
// the conversation so far and responds with a structured recommendation.
type Service struct {
	baseURL string
	client  *http.Client
}

// Config holds the decision agent endpoint settings.
type Config struct {
	URL     string        `json:"url" yaml:"url"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// DecideInput is one agent turn: the application under review plus the
// conversation history accumulated across previous turns.
type DecideInput struct {
	ApplicationID string          `json:"applicationId"`
	System        string          `json:"system,omitempty"`
	Messages      []model.Message `json:"messages"`
}

// DecideOutput carries the agent recommendation for the turn.
type DecideOutput struct {
	Recommendation *model.Recommendation `json:"recommendation"`
}

// New creates a decision agent client.
func New(config Config) *Service {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Service{
		baseURL: strings.TrimSuffix(config.URL, "/"),
		client:  &http.Client{Timeout: timeout},
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
			Name:        "decide",
			Description: "Runs one underwriting agent turn and returns its recommendation.",
			Input:       reflect.TypeOf(&DecideInput{}),
			Output:      reflect.TypeOf(&DecideOutput{}),
		},
	}
}

// Method returns the specified method
func (s *Service) Method(name string) (types.Executable, error) {
	switch strings.ToLower(name) {
	case "decide":
		return s.decide, nil
	default:
		return nil, types.NewMethodNotFoundError(name)
	}
}

func (s *Service) decide(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*DecideInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*DecideOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}

	body, err := json.Marshal(input)
	if err != nil {
		return invoker.Permanent(err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/decide", bytes.NewReader(body))
	if err != nil {
		return invoker.Permanent(err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := s.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	data, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}

	switch {
	case response.StatusCode >= 500:
		return fmt.Errorf("agent returned HTTP %d", response.StatusCode)
	case response.StatusCode >= 400:
		return invoker.Permanent(fmt.Errorf("agent returned HTTP %d: %s", response.StatusCode, strings.TrimSpace(string(data))))
	}

	recommendation := &model.Recommendation{}
	if err := json.Unmarshal(data, recommendation); err != nil {
		return invoker.Permanent(fmt.Errorf("malformed agent response: %w", err))
	}
	if err := recommendation.Validate(); err != nil {
		return invoker.Permanent(fmt.Errorf("invalid agent recommendation: %w", err))
	}
	output.Recommendation = recommendation
	return nil
}
