package order

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusReceived       OrderStatus = "received"
	StatusPreparing      OrderStatus = "preparing"
	StatusReady          OrderStatus = "ready"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
)

func (os OrderStatus) String() string {
	return string(os)
}

func (os OrderStatus) Valid() bool {
	_, ok := allowedTransitions[os]
	return ok
}

// OrderItem хранит цену единицы на момент заказа. После создания не меняется.
type OrderItem struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	OrderID      uuid.UUID       `json:"-" db:"order_id"`
	ProductID    uuid.UUID       `json:"product" db:"product_id"`
	ProductName  string          `json:"product_name" db:"-"`
	ProductImage string          `json:"product_image" db:"-"`
	Quantity     int             `json:"quantity" db:"quantity"`
	Price        decimal.Decimal `json:"price" db:"price"`
	CreatedAt    time.Time       `json:"-" db:"created_at"`
}

type Order struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	UserID          uuid.UUID       `json:"user" db:"user_id"`
	Status          OrderStatus     `json:"status" db:"status"`
	Items           []OrderItem     `json:"items" db:"-"`
	TotalAmount     decimal.Decimal `json:"total_amount" db:"total_amount"`
	DeliveryAddress string          `json:"delivery_address" db:"delivery_address"`
	PaymentMethod   string          `json:"payment_method" db:"payment_method"`
	PhoneNumber     string          `json:"phone_number" db:"phone_number"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// LineInput - одна позиция корзины.
type LineInput struct {
	ProductID uuid.UUID
	Quantity  int
}

type CreateInput struct {
	UserID          uuid.UUID
	Items           []LineInput
	DeliveryAddress string
	PaymentMethod   string
	PhoneNumber     string
	// Email покупателя передается платежному провайдеру.
	Email string
}
