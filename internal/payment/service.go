package payment

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Khalidabdulkadir/Dhadhan-App/internal/metrics"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/order"
)

// Адрес по умолчанию, если у покупателя нет email.
const fallbackEmail = "customer@example.com"

var (
	ErrInvalidChallenge = errors.New("webhook challenge does not match")
	ErrUnknownState     = errors.New("unknown payment state")
)

type Settings struct {
	Currency         string
	WebhookChallenge string
}

type Service interface {
	order.PaymentInitiator
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]Attempt, error)
	Refresh(ctx context.Context, orderID uuid.UUID) ([]Attempt, error)
	HandleWebhook(ctx context.Context, event WebhookEvent) (*Attempt, error)
}

type service struct {
	repo     Repository
	gateway  Gateway
	settings Settings
	metrics  *metrics.Metrics
}

func NewService(repo Repository, gateway Gateway, settings Settings, m *metrics.Metrics) Service {
	return &service{
		repo:     repo,
		gateway:  gateway,
		settings: settings,
		metrics:  m,
	}
}

// InitiatePayment отправляет STK push и сохраняет попытку. Ничего не возвращает:
// заказ уже сохранен, ошибки оплаты только логируются.
func (s *service) InitiatePayment(ctx context.Context, o *order.Order, email string) {
	if email == "" {
		email = fallbackEmail
	}

	attempt := &Attempt{
		OrderID:     o.ID,
		Provider:    ProviderIntaSend,
		State:       StatePending,
		PhoneNumber: strings.TrimSpace(o.PhoneNumber),
		Amount:      o.TotalAmount,
	}

	invoice, err := s.gateway.STKPush(ctx, STKPushRequest{
		Amount:      o.TotalAmount,
		PhoneNumber: attempt.PhoneNumber,
		Email:       email,
		Narrative:   fmt.Sprintf("Order %s", o.ID),
		APIRef:      o.ID.String(),
		Currency:    s.settings.Currency,
	})
	switch {
	case errors.Is(err, ErrNotConfigured):
		s.metrics.PaymentPushes.WithLabelValues(metrics.OutcomeSkipped).Inc()
		log.Warn().Stringer("order_id", o.ID).Msg("service: payment provider not configured, skipping stk push")
		return
	case err != nil:
		s.metrics.PaymentPushes.WithLabelValues(metrics.OutcomeFailure).Inc()
		log.Error().Err(err).Stringer("order_id", o.ID).Msg("service: stk push failed")
		attempt.State = StateFailed
		attempt.FailureReason = err.Error()
	default:
		s.metrics.PaymentPushes.WithLabelValues(metrics.OutcomeSuccess).Inc()
		invoiceID := invoice.InvoiceID
		attempt.InvoiceID = &invoiceID
		if invoice.State != "" {
			attempt.State = invoice.State
		}
	}

	if err := s.repo.Create(ctx, attempt); err != nil {
		log.Error().Err(err).Stringer("order_id", o.ID).Msg("service: failed to record payment attempt")
	}
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]Attempt, error) {
	attempts, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Msg("service: failed to list payment attempts")
		return nil, fmt.Errorf("service: failed to list payment attempts: %w", err)
	}
	return attempts, nil
}

// Refresh запрашивает у провайдера состояние всех незавершенных счетов заказа.
func (s *service) Refresh(ctx context.Context, orderID uuid.UUID) ([]Attempt, error) {
	attempts, err := s.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	for i := range attempts {
		a := &attempts[i]
		if a.InvoiceID == nil || IsFinalState(a.State) {
			continue
		}

		invoice, err := s.gateway.Status(ctx, *a.InvoiceID)
		if err != nil {
			log.Warn().Err(err).Str("invoice_id", *a.InvoiceID).Msg("service: failed to poll payment status")
			continue
		}
		state := strings.ToUpper(strings.TrimSpace(invoice.State))
		if !IsKnownState(state) {
			log.Warn().Str("invoice_id", *a.InvoiceID).Str("state", invoice.State).Msg("service: provider returned unknown payment state")
			continue
		}
		if state == a.State {
			continue
		}

		updated, err := s.repo.UpdateState(ctx, *a.InvoiceID, state, deref(invoice.FailedReason))
		if err != nil {
			log.Error().Err(err).Str("invoice_id", *a.InvoiceID).Msg("service: failed to store polled payment state")
			return nil, fmt.Errorf("service: failed to update payment attempt: %w", err)
		}
		*a = *updated
	}

	return attempts, nil
}

func (s *service) HandleWebhook(ctx context.Context, event WebhookEvent) (*Attempt, error) {
	if s.settings.WebhookChallenge == "" ||
		subtle.ConstantTimeCompare([]byte(event.Challenge), []byte(s.settings.WebhookChallenge)) != 1 {
		log.Warn().Str("invoice_id", event.InvoiceID).Msg("service: webhook rejected, bad challenge")
		return nil, ErrInvalidChallenge
	}

	state := strings.ToUpper(strings.TrimSpace(event.State))
	if !IsKnownState(state) {
		log.Warn().Str("invoice_id", event.InvoiceID).Str("state", event.State).Msg("service: webhook with unknown state")
		return nil, ErrUnknownState
	}

	updated, err := s.repo.UpdateState(ctx, event.InvoiceID, state, event.FailedReason)
	if err != nil {
		if errors.Is(err, ErrAttemptNotFound) {
			log.Warn().Str("invoice_id", event.InvoiceID).Msg("service: webhook for unknown invoice")
			return nil, ErrAttemptNotFound
		}
		log.Error().Err(err).Str("invoice_id", event.InvoiceID).Msg("service: failed to apply webhook")
		return nil, fmt.Errorf("service: failed to apply webhook: %w", err)
	}
	// поздний или повторный callback не меняет завершенную попытку
	if updated.State != state && IsFinalState(updated.State) {
		log.Info().
			Str("invoice_id", event.InvoiceID).
			Str("state", state).
			Str("current_state", updated.State).
			Msg("service: webhook ignored, payment already final")
		return updated, nil
	}
	s.metrics.PaymentCallbacks.WithLabelValues(state).Inc()

	log.Info().
		Str("invoice_id", event.InvoiceID).
		Stringer("order_id", updated.OrderID).
		Str("state", state).
		Msg("service: payment state updated")
	return updated, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
