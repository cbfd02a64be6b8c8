package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Khalidabdulkadir/Dhadhan-App/internal/catalog"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/metrics"
)

var allowedTransitions = map[OrderStatus]map[OrderStatus]bool{
	StatusReceived: {
		StatusPreparing: true,
		StatusCancelled: true,
	},
	StatusPreparing: {
		StatusReady:     true,
		StatusCancelled: true,
	},
	StatusReady: {
		StatusOutForDelivery: true,
		StatusDelivered:      true, // самовывоз
		StatusCancelled:      true,
	},
	StatusOutForDelivery: {
		StatusDelivered: true,
		StatusCancelled: true,
	},
	StatusDelivered: {},
	StatusCancelled: {},
}

var (
	ErrEmptyOrder              = errors.New("order must contain at least one item")
	ErrInvalidQuantity         = errors.New("quantity must be greater than zero")
	ErrProductNotFound         = errors.New("product not found")
	ErrInvalidStatus           = errors.New("unknown order status")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrTotalTooLarge           = errors.New("order total exceeds the allowed amount")
)

// ProductLookup - источник товаров для расчета цены.
type ProductLookup interface {
	GetProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.Product, error)
}

// PaymentInitiator запускает оплату после сохранения заказа. Ошибки
// обрабатываются внутри и не влияют на заказ.
type PaymentInitiator interface {
	InitiatePayment(ctx context.Context, o *Order, email string)
}

// MaxQuantity - наибольшее количество одного товара в заказе.
const MaxQuantity = 1000

type Settings struct {
	DeliveryFee       decimal.Decimal
	PickupSentinel    string
	MobileMoneyMethod string
}

type Service interface {
	CreateOrder(ctx context.Context, input CreateInput) (*Order, error)
	GetOrder(ctx context.Context, id uuid.UUID, viewerID uuid.UUID, staff bool) (*Order, error)
	ListOrders(ctx context.Context, viewerID uuid.UUID, staff bool) ([]Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus OrderStatus) (*Order, error)
}

type service struct {
	orderRepo Repository
	products  ProductLookup
	payments  PaymentInitiator
	settings  Settings
	metrics   *metrics.Metrics
}

func NewService(orderRepo Repository, products ProductLookup, payments PaymentInitiator, settings Settings, m *metrics.Metrics) Service {
	return &service{
		orderRepo: orderRepo,
		products:  products,
		payments:  payments,
		settings:  settings,
		metrics:   m,
	}
}

// deliveryApplies: доставка платная для любого адреса, кроме пустого и самовывоза.
func (s *service) deliveryApplies(address string) bool {
	address = strings.TrimSpace(address)
	return address != "" && address != s.settings.PickupSentinel
}

func (s *service) CreateOrder(ctx context.Context, input CreateInput) (*Order, error) {
	if len(input.Items) == 0 {
		log.Warn().Msg("service: attempt to create order with no items")
		return nil, ErrEmptyOrder
	}

	ids := make([]uuid.UUID, 0, len(input.Items))
	for _, line := range input.Items {
		if line.Quantity <= 0 || line.Quantity > MaxQuantity {
			return nil, fmt.Errorf("%w: product %s", ErrInvalidQuantity, line.ProductID)
		}
		ids = append(ids, line.ProductID)
	}

	products, err := s.products.GetProductsByIDs(ctx, ids)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to load products for order")
		return nil, fmt.Errorf("service: failed to load products: %w", err)
	}

	total := decimal.Zero
	items := make([]OrderItem, 0, len(input.Items))
	for _, line := range input.Items {
		product, ok := products[line.ProductID]
		if !ok {
			log.Warn().Stringer("product_id", line.ProductID).Msg("service: order references unknown product")
			return nil, ErrProductNotFound
		}

		unitPrice := product.DiscountedPrice()
		total = total.Add(unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		items = append(items, OrderItem{
			ProductID:    product.ID,
			ProductName:  product.Name,
			ProductImage: product.Image,
			Quantity:     line.Quantity,
			Price:        unitPrice,
		})
	}

	if s.deliveryApplies(input.DeliveryAddress) {
		total = total.Add(s.settings.DeliveryFee)
	}
	if total.GreaterThan(catalog.MaxAmount) {
		log.Warn().Stringer("total", total).Msg("service: order total out of range")
		return nil, ErrTotalTooLarge
	}

	newOrder := &Order{
		UserID:          input.UserID,
		Status:          StatusReceived,
		Items:           items,
		TotalAmount:     total,
		DeliveryAddress: input.DeliveryAddress,
		PaymentMethod:   input.PaymentMethod,
		PhoneNumber:     input.PhoneNumber,
	}

	if _, err := s.orderRepo.CreateOrder(ctx, newOrder); err != nil {
		log.Error().Err(err).Msg("service: failed to create order in repository")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}
	s.metrics.OrdersCreated.Inc()

	log.Info().
		Stringer("order_id", newOrder.ID).
		Stringer("user_id", newOrder.UserID).
		Stringer("total", newOrder.TotalAmount).
		Msg("service: order created")

	if newOrder.PaymentMethod == s.settings.MobileMoneyMethod && newOrder.PhoneNumber != "" && s.payments != nil {
		// клиент мог уже отключиться, а заказ сохранен
		s.payments.InitiatePayment(context.WithoutCancel(ctx), newOrder, input.Email)
	}

	return newOrder, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID, viewerID uuid.UUID, staff bool) (*Order, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Err(err).Stringer("order_id", id).Msg("service: order not found by id")
			return nil, ErrOrderNotFound
		}

		log.Error().Err(err).Msg("service: failed to fetch order by id in repository")
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}

	// чужой заказ для покупателя не существует
	if !staff && order.UserID != viewerID {
		return nil, ErrOrderNotFound
	}

	return order, nil
}

func (s *service) ListOrders(ctx context.Context, viewerID uuid.UUID, staff bool) ([]Order, error) {
	var filter *uuid.UUID
	if !staff {
		filter = &viewerID
	}

	orders, err := s.orderRepo.ListOrders(ctx, filter)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", viewerID).Msg("service: failed to fetch orders in repository")
		return nil, fmt.Errorf("service: failed to fetch orders: %w", err)
	}

	return orders, nil
}

func (s *service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus OrderStatus) (*Order, error) {
	if !newStatus.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}

	currentOrder, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Err(err).Stringer("order_id", orderID).Stringer("new_status", newStatus).Msg("service: order not found, cannot update status")
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", orderID).Msg("service: failed to get order for status update")
		return nil, fmt.Errorf("service: failed to get order for status update: %w", err)
	}

	if currentOrder.Status == newStatus {
		log.Info().Stringer("order_id", orderID).Stringer("status", newStatus).Msg("service: order status is already the same, no update needed")
		return currentOrder, nil
	}

	if !allowedTransitions[currentOrder.Status][newStatus] {
		log.Warn().
			Stringer("order_id", currentOrder.ID).
			Stringer("current_status", currentOrder.Status).
			Stringer("new_status", newStatus).
			Msg("service: invalid status transition attempt")
		return nil, fmt.Errorf("%w: from %s to %s", ErrInvalidStatusTransition, currentOrder.Status, newStatus)
	}

	err = s.orderRepo.UpdateOrderStatus(ctx, orderID, newStatus)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", orderID).Stringer("new_status", newStatus).Msg("service: failed to update order status in repository")
		return nil, fmt.Errorf("service: failed to update order status: %w", err)
	}

	log.Info().Stringer("order_id", orderID).Stringer("old_status", currentOrder.Status).Stringer("new_status", newStatus).Msg("service: order status updated successfully")
	currentOrder.Status = newStatus
	return currentOrder, nil
}
