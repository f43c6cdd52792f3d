package api

// ==================== Create Payment ====================

// CreatePaymentRequest represents the request to create a payment intent
type CreatePaymentRequest struct {
	Recipient  string `json:"recipient" validate:"required"`
	DestAsset  string `json:"destAsset" validate:"required"`
	DestAmount string `json:"destAmount" validate:"required"`
	PayAsset   string `json:"payAsset" validate:"required"`
}

// CreatePaymentResponse carries the funding quote for a new payment
type CreatePaymentResponse struct {
	PaymentID            string `json:"paymentId"`
	CollectorAddress     string `json:"collectorAddress"`
	FundingAmount        string `json:"fundingAmount"`
	FundingAmountWithFee string `json:"fundingAmountWithFee"`
	Fee                  string `json:"fee"`
	PayAsset             string `json:"payAsset"`
}

// ==================== Attach Funding Tx ====================

// AttachFundingTxRequest records the user's funding transaction
type AttachFundingTxRequest struct {
	PaymentID     string `json:"paymentId" validate:"required"`
	FundingTxHash string `json:"fundingTxHash" validate:"required"`
}

// AttachFundingTxResponse acknowledges the attach
type AttachFundingTxResponse struct {
	OK bool `json:"ok"`
}

// ==================== Health ====================

// HealthResponse reports service health
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
