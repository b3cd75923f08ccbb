package bank

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/homelend/loanflow/model/types"
	"github.com/homelend/loanflow/service/invoker"
)

const name = "bank"

// Service fetches bank statements used as underwriting evidence.
type Service struct {
	baseURL string
	client  *http.Client
}

// Config holds the bank collaborator endpoint settings.
type Config struct {
	URL     string        `json:"url" yaml:"url"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// Transaction is a single statement line item.
type Transaction struct {
	Kind        string  `json:"kind"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// Statement is the account summary returned by the bank.
type Statement struct {
	AccountID    string        `json:"account_id"`
	AccountName  string        `json:"account_name"`
	Salary       float64       `json:"salary"`
	Expenses     float64       `json:"expenses"`
	Balance      float64       `json:"balance"`
	Transactions []Transaction `json:"transactions,omitempty"`
}

// FetchInput identifies the account to look up.
type FetchInput struct {
	AccountNumber string `json:"accountNumber"`
}

// FetchOutput carries the lookup result. A missing account is reported with
// Status "error" rather than a failed invocation, so the decision agent can
// reason about it.
type FetchOutput struct {
	AccountNumber string     `json:"account_number"`
	Status        string     `json:"status"`
	Error         string     `json:"error,omitempty"`
	Statement     *Statement `json:"statement,omitempty"`
}

// New creates a bank statement service.
func New(config Config) *Service {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
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
			Name:        "fetchStatement",
			Description: "Fetches a bank statement for the supplied account number.",
			Input:       reflect.TypeOf(&FetchInput{}),
			Output:      reflect.TypeOf(&FetchOutput{}),
		},
	}
}

// Method returns the specified method
func (s *Service) Method(name string) (types.Executable, error) {
	switch strings.ToLower(name) {
	case "fetchstatement":
		return s.fetchStatement, nil
	default:
		return nil, types.NewMethodNotFoundError(name)
	}
}

func (s *Service) fetchStatement(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*FetchInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*FetchOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	if input.AccountNumber == "" {
		return invoker.Permanent(fmt.Errorf("account number is required"))
	}

	URL := fmt.Sprintf("%s/accounts/%s", s.baseURL, input.AccountNumber)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, URL, nil)
	if err != nil {
		return invoker.Permanent(err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := s.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	data, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}

	output.AccountNumber = input.AccountNumber
	switch {
	case response.StatusCode >= 500:
		return fmt.Errorf("bank returned HTTP %d", response.StatusCode)
	case response.StatusCode >= 400:
		output.Status = "error"
		output.Error = fmt.Sprintf("bank returned HTTP %d: %s", response.StatusCode, http.StatusText(response.StatusCode))
		return nil
	}

	statement := &Statement{}
	if err := json.Unmarshal(data, statement); err != nil {
		return invoker.Permanent(fmt.Errorf("malformed statement payload: %w", err))
	}
	output.Status = "ok"
	output.Statement = statement
	return nil
}
