package domain

import "github.com/shopspring/decimal"

// RedirectDescriptor tells the caller where to send the customer to pay.
type RedirectDescriptor struct {
	Method        PaymentMethod `json:"paymentMethod"`
	URL           string        `json:"redirectUrl"`
	TransactionID string        `json:"transactionId"`
}

type VerificationResult struct {
	Success               bool
	AlreadyProcessed      bool
	TransactionID         string
	ExternalTransactionID string
	Amount                decimal.Decimal
	ProviderStatus        string
}
