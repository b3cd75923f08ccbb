package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplication_Ratios(t *testing.T) {
	testCases := []struct {
		name      string
		app       Application
		expectLTV float64
		expectDTI float64
	}{
		{
			name: "healthy application",
			app: Application{
				ID:                  "APP_1",
				ApplicantName:       "Tao",
				AnnualIncome:        150000,
				RequestedLoanAmount: 300000,
				PropertyValue:       400000,
			},
			expectLTV: 0.75,
			expectDTI: 0.12,
		},
		{
			name: "stretched application",
			app: Application{
				ID:                  "APP_2",
				ApplicantName:       "Bob",
				AnnualIncome:        42000,
				RequestedLoanAmount: 300000,
				PropertyValue:       310000,
			},
			expectLTV: 300000.0 / 310000.0,
			expectDTI: 1500.0 / 3500.0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Nil(t, tc.app.Validate())
			assert.InDelta(t, tc.expectLTV, tc.app.LoanToValueRatio(), 1e-9)
			assert.InDelta(t, tc.expectDTI, tc.app.DebtToIncomeRatio(), 1e-9)
		})
	}
}

func TestApplication_Validate(t *testing.T) {
	testCases := []struct {
		name        string
		app         Application
		expectField string
	}{
		{name: "missing id", app: Application{ApplicantName: "x", AnnualIncome: 1, RequestedLoanAmount: 1, PropertyValue: 1}, expectField: "applicationId"},
		{name: "missing name", app: Application{ID: "APP_1", AnnualIncome: 1, RequestedLoanAmount: 1, PropertyValue: 1}, expectField: "applicantName"},
		{name: "zero income", app: Application{ID: "APP_1", ApplicantName: "x", RequestedLoanAmount: 1, PropertyValue: 1}, expectField: "annualIncome"},
		{name: "negative amount", app: Application{ID: "APP_1", ApplicantName: "x", AnnualIncome: 1, RequestedLoanAmount: -5, PropertyValue: 1}, expectField: "requestedLoanAmount"},
		{name: "zero property value", app: Application{ID: "APP_1", ApplicantName: "x", AnnualIncome: 1, RequestedLoanAmount: 1}, expectField: "propertyValue"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.app.Validate()
			if !assert.NotNil(t, err) {
				return
			}
			vErr, ok := err.(*ValidationError)
			if assert.True(t, ok) {
				assert.Equal(t, tc.expectField, vErr.Field)
			}
		})
	}
}

func TestRecommendation_Terminal(t *testing.T) {
	assert.True(t, (&Recommendation{Recommendation: RecommendationApprove}).Terminal())
	assert.True(t, (&Recommendation{Recommendation: RecommendationDecline}).Terminal())
	assert.False(t, (&Recommendation{Recommendation: RecommendationReview}).Terminal())
	var nilRec *Recommendation
	assert.False(t, nilRec.Terminal())
}

func TestConversation_Append(t *testing.T) {
	conv := &Conversation{}
	conv.Append(RoleSystem, "you are an underwriter").Append(RoleUser, "application")
	assert.Equal(t, 2, conv.Len())

	clone := conv.Clone()
	conv.Append(RoleAgent, "review")
	assert.Equal(t, 2, clone.Len())
	assert.Equal(t, 3, conv.Len())
}
