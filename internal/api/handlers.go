package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"zuripay/internal/models"
	"zuripay/internal/service"
	"zuripay/internal/store"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	payments *service.PaymentService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(payments *service.PaymentService, logger *zap.Logger) *Handler {
	return &Handler{
		payments: payments,
		validate: validator.New(),
		logger:   logger.Named("api"),
	}
}

// HandleHealth returns service health status
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// HandleCreatePayment handles POST /api/create-payment-intent
func (h *Handler) HandleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Missing required fields", err)
		return
	}

	p, err := h.payments.CreatePayment(r.Context(), req.Recipient, req.DestAsset, req.DestAmount, req.PayAsset)
	if err != nil {
		h.logger.Warn("Failed to create payment", zap.Error(err))
		respondError(w, http.StatusBadRequest, "Failed to create payment", err)
		return
	}

	respondJSON(w, http.StatusOK, CreatePaymentResponse{
		PaymentID:            p.ID,
		CollectorAddress:     p.CollectorAddress,
		FundingAmount:        p.FundingAmount,
		FundingAmountWithFee: p.FundingAmountWithFee,
		Fee:                  p.Fee,
		PayAsset:             p.PayAssetSymbol,
	})
}

// HandleAttachFundingTx handles POST /api/attach-funding-tx
func (h *Handler) HandleAttachFundingTx(w http.ResponseWriter, r *http.Request) {
	var req AttachFundingTxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Missing required fields", err)
		return
	}

	err := h.payments.AttachFundingTx(r.Context(), req.PaymentID, req.FundingTxHash)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, AttachFundingTxResponse{OK: true})
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "Payment not found", nil)
	case errors.Is(err, service.ErrAlreadyFunded):
		respondError(w, http.StatusConflict, "Payment already funded", err)
	default:
		h.logger.Error("Failed to attach funding tx", zap.String("payment_id", req.PaymentID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to attach funding tx", err)
	}
}

// HandlePaymentStatus handles GET /api/payment-status?paymentId=
func (h *Handler) HandlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	paymentID := r.URL.Query().Get("paymentId")
	if paymentID == "" {
		respondError(w, http.StatusBadRequest, "paymentId is required", nil)
		return
	}

	p, err := h.payments.GetPayment(r.Context(), paymentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Payment not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to get payment", err)
		return
	}

	respondJSON(w, http.StatusOK, project(*p))
}

// HandleListPayments handles GET /api/payments. Unauthenticated full dump,
// meant for debugging.
func (h *Handler) HandleListPayments(w http.ResponseWriter, r *http.Request) {
	payments := h.payments.ListPayments(r.Context())
	out := make([]models.Payment, 0, len(payments))
	for _, p := range payments {
		out = append(out, project(p))
	}
	respondJSON(w, http.StatusOK, out)
}

// project aliases the internal burn state to its public label. The state
// machine keeps ZEC_BURNED; clients only ever see ZEC_COLLECTED.
func project(p models.Payment) models.Payment {
	if p.Status == models.StatusZecBurned {
		p.Status = models.StatusZecCollected
	}
	return p
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		fmt.Printf("Failed to encode JSON response: %v\n", err)
	}
}

// respondError sends an error response
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errorMsg := message
	if err != nil {
		errorMsg = fmt.Sprintf("%s: %v", message, err)
	}

	respondJSON(w, statusCode, ErrorResponse{
		Error:   message,
		Message: errorMsg,
	})
}
