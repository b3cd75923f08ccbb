package machine

import (
	"encoding/json"
	"fmt"

	"github.com/homelend/loanflow/model"
	"github.com/homelend/loanflow/service/activity/bank"
)

// systemPrompt steers the remote underwriting agent. The debt-to-income rule
// is guidance for the agent, not a mechanical gate in the orchestrator.
const systemPrompt = "You are a home loan underwriter. " +
	"You guide the customer to provide the details of their loan. " +
	"You analyze the provided loan application and gather any missing financial context. " +
	"Reject applications with a debt to income ratio above 0.5. " +
	"Ask for bank account details if needed and verify them against the supplied bank statement. " +
	"Do not approve if bank account details are not verified. " +
	"Summarize your decision as a structured recommendation."

// applicationMessage renders the application with its derived ratios as the
// opening borrower turn.
func applicationMessage(app *model.Application) string {
	payload := map[string]interface{}{
		"application_id":        app.ID,
		"applicant_name":        app.ApplicantName,
		"annual_income":         app.AnnualIncome,
		"requested_loan_amount": app.RequestedLoanAmount,
		"property_value":        app.PropertyValue,
		"loan_to_value_ratio":   app.LoanToValueRatio(),
		"debt_to_income_ratio":  app.DebtToIncomeRatio(),
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

// evidenceMessage folds a bank statement lookup into the conversation.
func evidenceMessage(accountNumber string, statement *bank.FetchOutput) string {
	data, _ := json.Marshal(statement)
	return fmt.Sprintf("The borrower has now provided bank account number %s. Statement lookup: %s", accountNumber, string(data))
}

// recommendationMessage records the agent turn in the conversation.
func recommendationMessage(rec *model.Recommendation) string {
	data, _ := json.Marshal(rec)
	return string(data)
}

// decisionMessage records the reviewer turn in the conversation.
func decisionMessage(decision *model.HumanDecision) string {
	if decision.Reason == "" {
		return fmt.Sprintf("A human reviewer decided to %s the application.", decision.Decision)
	}
	return fmt.Sprintf("A human reviewer decided to %s the application: %s", decision.Decision, decision.Reason)
}
