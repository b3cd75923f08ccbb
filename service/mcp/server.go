// Package mcp exposes the loan engine over the Model Context Protocol.
//
// Three tools mirror the command surface: start_loan_application,
// supply_bank_account and get_application_status. Failures are reported as
// result envelopes (status processing_failed / update_failed /
// query_failed) rather than protocol errors, so agent callers can reason
// about them.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/homelend/loanflow/internal/idgen"
	"github.com/homelend/loanflow/model"
	"github.com/homelend/loanflow/service/router"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Runtime is the engine surface the adapter forwards tool calls to.
type Runtime interface {
	StartOrUpdate(ctx context.Context, app *model.Application) (*router.UpdateResult, error)
	SupplyBankAccount(ctx context.Context, applicationID, accountNumber string) (*router.UpdateResult, error)
	Status(ctx context.Context, applicationID string) (*router.StatusResult, error)
}

// Server adapts the runtime to MCP tool calls.
type Server struct {
	mcpServer *server.MCPServer
	runtime   Runtime
}

// New creates the MCP adapter for the supplied runtime.
func New(runtime Runtime) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"loanflow",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		runtime: runtime,
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"start_loan_application",
			mcp.WithDescription("Submit a loan application, or report the current decision when the application already exists"),
			mcp.WithString("application_id", mcp.Description("Stable application identifier; generated when omitted")),
			mcp.WithString("applicant_name", mcp.Required(), mcp.Description("Full name of the applicant")),
			mcp.WithNumber("annual_income", mcp.Required(), mcp.Description("Gross annual income")),
			mcp.WithNumber("requested_loan_amount", mcp.Required(), mcp.Description("Requested loan amount")),
			mcp.WithNumber("property_value", mcp.Required(), mcp.Description("Value of the property being financed")),
		),
		s.handleStartLoanApplication,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"supply_bank_account",
			mcp.WithDescription("Provide a bank account number for an application that asked for a statement"),
			mcp.WithString("application_id", mcp.Required(), mcp.Description("The application identifier")),
			mcp.WithString("bank_account_number", mcp.Required(), mcp.Description("The bank account number to look up")),
		),
		s.handleSupplyBankAccount,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_application_status",
			mcp.WithDescription("Report the current phase and decision of an application"),
			mcp.WithString("application_id", mcp.Required(), mcp.Description("The application identifier")),
		),
		s.handleGetApplicationStatus,
	)
}

func (s *Server) handleStartLoanApplication(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments type"), nil
	}
	applicationID, _ := args["application_id"].(string)
	if applicationID == "" {
		applicationID = "APP_" + idgen.New()
	}
	applicantName, _ := args["applicant_name"].(string)
	annualIncome, _ := args["annual_income"].(float64)
	requestedLoanAmount, _ := args["requested_loan_amount"].(float64)
	propertyValue, _ := args["property_value"].(float64)

	result, err := s.runtime.StartOrUpdate(ctx, &model.Application{
		ID:                  applicationID,
		ApplicantName:       applicantName,
		AnnualIncome:        annualIncome,
		RequestedLoanAmount: requestedLoanAmount,
		PropertyValue:       propertyValue,
	})
	if err != nil {
		return envelope(map[string]interface{}{
			"application_id": applicationID,
			"status":         "processing_failed",
			"error":          err.Error(),
		})
	}
	return resultEnvelope(result)
}

func (s *Server) handleSupplyBankAccount(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments type"), nil
	}
	applicationID, _ := args["application_id"].(string)
	if applicationID == "" {
		return mcp.NewToolResultError("missing required parameter: application_id"), nil
	}
	accountNumber, _ := args["bank_account_number"].(string)
	if accountNumber == "" {
		return mcp.NewToolResultError("missing required parameter: bank_account_number"), nil
	}

	result, err := s.runtime.SupplyBankAccount(ctx, applicationID, accountNumber)
	if err != nil {
		return envelope(map[string]interface{}{
			"application_id": applicationID,
			"status":         "update_failed",
			"error":          err.Error(),
		})
	}
	return resultEnvelope(result)
}

func (s *Server) handleGetApplicationStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments type"), nil
	}
	applicationID, _ := args["application_id"].(string)
	if applicationID == "" {
		return mcp.NewToolResultError("missing required parameter: application_id"), nil
	}

	status, err := s.runtime.Status(ctx, applicationID)
	if err != nil {
		return envelope(map[string]interface{}{
			"application_id": applicationID,
			"status":         "query_failed",
			"error":          err.Error(),
		})
	}
	return envelope(status)
}

func resultEnvelope(result *router.UpdateResult) (*mcp.CallToolResult, error) {
	return envelope(result)
}

func envelope(payload interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// MountHTTPHandlers wires the MCP SSE endpoints onto the supplied mux.
func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))
	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})
	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
