package http_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	handler "github.com/Khalidabdulkadir/Dhadhan-App/internal/handler/http"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/payment"
)

func TestPaymentHandler_Webhook(t *testing.T) {
	invoice := "INV-7"

	tests := []struct {
		name       string
		body       string
		mockSetup  func(svc *MockPaymentService)
		wantStatus int
	}{
		{
			name: "complete",
			// лишние поля провайдера не мешают
			body: `{"invoice_id":"INV-7","state":"COMPLETE","challenge":"s3cret","value":"1800.00","account":"254712345678"}`,
			mockSetup: func(svc *MockPaymentService) {
				svc.On("HandleWebhook", mock.Anything, payment.WebhookEvent{InvoiceID: "INV-7", State: "COMPLETE", Challenge: "s3cret"}).
					Return(&payment.Attempt{ID: uuid.Must(uuid.NewV4()), InvoiceID: &invoice, State: payment.StateComplete}, nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "bad_challenge",
			body: `{"invoice_id":"INV-7","state":"COMPLETE","challenge":"guess"}`,
			mockSetup: func(svc *MockPaymentService) {
				svc.On("HandleWebhook", mock.Anything, mock.AnythingOfType("payment.WebhookEvent")).Return(nil, payment.ErrInvalidChallenge).Once()
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name: "unknown_invoice",
			body: `{"invoice_id":"INV-0","state":"FAILED","challenge":"s3cret"}`,
			mockSetup: func(svc *MockPaymentService) {
				svc.On("HandleWebhook", mock.Anything, mock.AnythingOfType("payment.WebhookEvent")).Return(nil, payment.ErrAttemptNotFound).Once()
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "unknown_state",
			body: `{"invoice_id":"INV-7","state":"REFUNDED-ISH","challenge":"s3cret"}`,
			mockSetup: func(svc *MockPaymentService) {
				svc.On("HandleWebhook", mock.Anything, mock.AnythingOfType("payment.WebhookEvent")).Return(nil, payment.ErrUnknownState).Once()
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing_invoice",
			body:       `{"state":"COMPLETE"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed",
			body:       `{"invoice_id":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockPaymentService)
			if tt.mockSetup != nil {
				tt.mockSetup(svc)
			}
			h := newHarness(handler.NewPaymentHandler(svc))

			rr := h.do(t, http.MethodPost, "/api/payments/intasend/webhook/", strings.NewReader(tt.body), uuid.Nil, false)

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.mockSetup == nil {
				svc.AssertNotCalled(t, "HandleWebhook", mock.Anything, mock.Anything)
			}
			svc.AssertExpectations(t)
		})
	}
}
