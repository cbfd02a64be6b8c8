package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/Khalidabdulkadir/Dhadhan-App/internal/payment"
)

type PaymentHandler struct {
	service  payment.Service
	validate *validator.Validate
}

func NewPaymentHandler(service payment.Service) *PaymentHandler {
	return &PaymentHandler{
		service:  service,
		validate: newValidator(),
	}
}

func (h *PaymentHandler) RegisterRoutes(router chi.Router) {
	router.Post("/payments/intasend/webhook", h.handleWebhook)
}

// Провайдер присылает много лишних полей, поэтому неизвестные поля не отклоняются.
func (h *PaymentHandler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var event payment.WebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		log.Warn().Err(err).Msg("Failed to decode webhook payload")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(event); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
				Error:   "Validation failed",
				Details: formatValidationErrors(validationErrors),
			})
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Internal validation error")
		return
	}

	attempt, err := h.service.HandleWebhook(r.Context(), event)
	if err != nil {
		respondWithServiceError(w, err, "Failed to process webhook")
		return
	}
	respondWithJSON(w, http.StatusOK, attempt)
}
