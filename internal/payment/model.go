package payment

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

const ProviderIntaSend = "intasend"

// Состояния счета у провайдера.
const (
	StatePending    = "PENDING"
	StateProcessing = "PROCESSING"
	StateComplete   = "COMPLETE"
	StateFailed     = "FAILED"
	StateError      = "ERROR"
)

func IsFinalState(state string) bool {
	return state == StateComplete || state == StateFailed || state == StateError
}

func IsKnownState(state string) bool {
	switch state {
	case StatePending, StateProcessing, StateComplete, StateFailed, StateError:
		return true
	}
	return false
}

// Attempt - одна попытка STK push по заказу.
type Attempt struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	OrderID       uuid.UUID       `json:"order" db:"order_id"`
	Provider      string          `json:"provider" db:"provider"`
	InvoiceID     *string         `json:"invoice_id" db:"invoice_id"` // nil, если провайдер отклонил запрос
	State         string          `json:"state" db:"state"`
	PhoneNumber   string          `json:"phone_number" db:"phone_number"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	FailureReason string          `json:"failure_reason,omitempty" db:"failure_reason"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// WebhookEvent - уведомление провайдера об изменении состояния счета.
type WebhookEvent struct {
	InvoiceID    string `json:"invoice_id" validate:"required"`
	State        string `json:"state" validate:"required"`
	APIRef       string `json:"api_ref"`
	FailedReason string `json:"failed_reason"`
	Challenge    string `json:"challenge"`
}
