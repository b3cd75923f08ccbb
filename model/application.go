package model

import "fmt"

// Application represents a structured loan application. It is immutable once
// created – the workflow instance only ever reads it.
type Application struct {
	ID                  string  `json:"applicationId" yaml:"applicationId"`
	ApplicantName       string  `json:"applicantName" yaml:"applicantName"`
	AnnualIncome        float64 `json:"annualIncome" yaml:"annualIncome"`
	RequestedLoanAmount float64 `json:"requestedLoanAmount" yaml:"requestedLoanAmount"`
	PropertyValue       float64 `json:"propertyValue" yaml:"propertyValue"`
}

// ValidationError describes an invalid application payload. Validation
// failures never create durable state.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid loan application: %s %s", e.Field, e.Message)
}

// Validate checks the application against the schema: numeric fields must be
// strictly positive and the identifier/name present.
func (a *Application) Validate() error {
	if a == nil {
		return &ValidationError{Field: "application", Message: "is required"}
	}
	if a.ID == "" {
		return &ValidationError{Field: "applicationId", Message: "is required"}
	}
	if a.ApplicantName == "" {
		return &ValidationError{Field: "applicantName", Message: "is required"}
	}
	if a.AnnualIncome <= 0 {
		return &ValidationError{Field: "annualIncome", Message: "must be greater than 0"}
	}
	if a.RequestedLoanAmount <= 0 {
		return &ValidationError{Field: "requestedLoanAmount", Message: "must be greater than 0"}
	}
	if a.PropertyValue <= 0 {
		return &ValidationError{Field: "propertyValue", Message: "must be greater than 0"}
	}
	return nil
}

// LoanToValueRatio returns requested principal over estimated property value.
func (a *Application) LoanToValueRatio() float64 {
	return a.RequestedLoanAmount / a.PropertyValue
}

// DebtToIncomeRatio estimates the monthly payment as 0.5% of the principal
// and relates it to monthly income.
func (a *Application) DebtToIncomeRatio() float64 {
	monthlyIncome := a.AnnualIncome / 12
	estimatedMonthlyPayment := a.RequestedLoanAmount * 0.005
	return estimatedMonthlyPayment / monthlyIncome
}
