package order_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Khalidabdulkadir/Dhadhan-App/internal/catalog"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/metrics"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/order"
)

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, o *order.Order) (uuid.UUID, error) {
	args := m.Called(ctx, o)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockOrderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus order.OrderStatus) error {
	args := m.Called(ctx, orderID, newStatus)
	return args.Error(0)
}

func (m *MockOrderRepository) ListOrders(ctx context.Context, userID *uuid.UUID) ([]order.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

type MockProductLookup struct {
	mock.Mock
}

func (m *MockProductLookup) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]*catalog.Product), args.Error(1)
}

type MockPaymentInitiator struct {
	mock.Mock
}

func (m *MockPaymentInitiator) InitiatePayment(ctx context.Context, o *order.Order, email string) {
	m.Called(ctx, o, email)
}

func defaultSettings() order.Settings {
	return order.Settings{
		DeliveryFee:       decimal.NewFromInt(500),
		PickupSentinel:    "Pickup",
		MobileMoneyMethod: "mpesa",
	}
}

// Корзина: P1 1000 со скидкой 20%, P2 500 без скидки.
func scenarioCart() (map[uuid.UUID]*catalog.Product, []order.LineInput) {
	p1 := &catalog.Product{
		ID:                 uuid.Must(uuid.NewV4()),
		Name:               "Biryani",
		Price:              decimal.NewFromInt(1000),
		IsPromoted:         true,
		DiscountPercentage: 20,
	}
	p2 := &catalog.Product{
		ID:    uuid.Must(uuid.NewV4()),
		Name:  "Samosa",
		Price: decimal.NewFromInt(500),
	}
	products := map[uuid.UUID]*catalog.Product{p1.ID: p1, p2.ID: p2}
	lines := []order.LineInput{
		{ProductID: p1.ID, Quantity: 1},
		{ProductID: p2.ID, Quantity: 1},
	}
	return products, lines
}

func TestOrderService_CreateOrder_Totals(t *testing.T) {
	tests := []struct {
		name      string
		address   string
		wantTotal decimal.Decimal
	}{
		{name: "delivery_address", address: "123 Main St", wantTotal: decimal.NewFromInt(1800)},
		{name: "pickup", address: "Pickup", wantTotal: decimal.NewFromInt(1300)},
		{name: "no_address", address: "", wantTotal: decimal.NewFromInt(1300)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockOrderRepository)
			mockProducts := new(MockProductLookup)
			svc := order.NewService(mockRepo, mockProducts, nil, defaultSettings(), metrics.New())

			products, lines := scenarioCart()
			userID := uuid.Must(uuid.NewV4())
			newID := uuid.Must(uuid.NewV4())

			mockProducts.On("GetProductsByIDs", mock.Anything, mock.AnythingOfType("[]uuid.UUID")).Return(products, nil).Once()
			mockRepo.On("CreateOrder", mock.Anything, mock.MatchedBy(func(o *order.Order) bool {
				return o.UserID == userID && o.Status == order.StatusReceived && len(o.Items) == 2
			})).
				Run(func(args mock.Arguments) {
					args.Get(1).(*order.Order).ID = newID
				}).
				Return(newID, nil).
				Once()

			created, err := svc.CreateOrder(context.Background(), order.CreateInput{
				UserID:          userID,
				Items:           lines,
				DeliveryAddress: tt.address,
				PaymentMethod:   "cash",
			})

			require.NoError(t, err)
			assert.Equal(t, newID, created.ID)
			assert.True(t, tt.wantTotal.Equal(created.TotalAmount), "total: want %s, got %s", tt.wantTotal, created.TotalAmount)
			assert.True(t, decimal.NewFromInt(800).Equal(created.Items[0].Price), "discounted unit price snapshot")
			assert.True(t, decimal.NewFromInt(500).Equal(created.Items[1].Price))
			mockRepo.AssertExpectations(t)
			mockProducts.AssertExpectations(t)
		})
	}
}

func TestOrderService_CreateOrder_QuantityMultiplies(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockProducts := new(MockProductLookup)
	svc := order.NewService(mockRepo, mockProducts, nil, defaultSettings(), metrics.New())

	restaurantID := uuid.Must(uuid.NewV4())
	p := &catalog.Product{
		ID:           uuid.Must(uuid.NewV4()),
		Price:        decimal.RequireFromString("250.50"),
		RestaurantID: &restaurantID,
		Restaurant:   &catalog.Restaurant{ID: restaurantID, DiscountPercentage: 10},
	}
	mockProducts.On("GetProductsByIDs", mock.Anything, []uuid.UUID{p.ID}).
		Return(map[uuid.UUID]*catalog.Product{p.ID: p}, nil).Once()
	mockRepo.On("CreateOrder", mock.Anything, mock.AnythingOfType("*order.Order")).Return(uuid.Must(uuid.NewV4()), nil).Once()

	created, err := svc.CreateOrder(context.Background(), order.CreateInput{
		UserID:        uuid.Must(uuid.NewV4()),
		Items:         []order.LineInput{{ProductID: p.ID, Quantity: 3}},
		PaymentMethod: "cash",
	})

	require.NoError(t, err)
	// 250.50 * 0.9 = 225.45; * 3 = 676.35
	assert.Equal(t, "225.45", created.Items[0].Price.StringFixed(2))
	assert.Equal(t, "676.35", created.TotalAmount.StringFixed(2))
}

func TestOrderService_CreateOrder_UnknownProductPersistsNothing(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockProducts := new(MockProductLookup)
	svc := order.NewService(mockRepo, mockProducts, nil, defaultSettings(), metrics.New())

	products, lines := scenarioCart()
	lines = append(lines, order.LineInput{ProductID: uuid.Must(uuid.NewV4()), Quantity: 1})
	mockProducts.On("GetProductsByIDs", mock.Anything, mock.AnythingOfType("[]uuid.UUID")).Return(products, nil).Once()

	created, err := svc.CreateOrder(context.Background(), order.CreateInput{
		UserID:        uuid.Must(uuid.NewV4()),
		Items:         lines,
		PaymentMethod: "mpesa",
	})

	require.ErrorIs(t, err, order.ErrProductNotFound)
	require.Nil(t, created)
	mockRepo.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestOrderService_CreateOrder_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		items   []order.LineInput
		wantErr error
	}{
		{name: "empty_cart", items: nil, wantErr: order.ErrEmptyOrder},
		{name: "zero_quantity", items: []order.LineInput{{ProductID: uuid.Must(uuid.NewV4()), Quantity: 0}}, wantErr: order.ErrInvalidQuantity},
		{name: "quantity_over_limit", items: []order.LineInput{{ProductID: uuid.Must(uuid.NewV4()), Quantity: order.MaxQuantity + 1}}, wantErr: order.ErrInvalidQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockOrderRepository)
			mockProducts := new(MockProductLookup)
			svc := order.NewService(mockRepo, mockProducts, nil, defaultSettings(), metrics.New())

			_, err := svc.CreateOrder(context.Background(), order.CreateInput{Items: tt.items, PaymentMethod: "cash"})

			require.ErrorIs(t, err, tt.wantErr)
			mockProducts.AssertNotCalled(t, "GetProductsByIDs", mock.Anything, mock.Anything)
			mockRepo.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
		})
	}
}

func TestOrderService_CreateOrder_TotalTooLarge(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockProducts := new(MockProductLookup)
	svc := order.NewService(mockRepo, mockProducts, nil, defaultSettings(), metrics.New())

	expensive := &catalog.Product{ID: uuid.Must(uuid.NewV4()), Name: "Catering", Price: decimal.NewFromInt(1_000_000)}
	mockProducts.On("GetProductsByIDs", mock.Anything, []uuid.UUID{expensive.ID}).
		Return(map[uuid.UUID]*catalog.Product{expensive.ID: expensive}, nil).Once()

	created, err := svc.CreateOrder(context.Background(), order.CreateInput{
		UserID:        uuid.Must(uuid.NewV4()),
		Items:         []order.LineInput{{ProductID: expensive.ID, Quantity: order.MaxQuantity}},
		PaymentMethod: "cash",
	})

	require.ErrorIs(t, err, order.ErrTotalTooLarge)
	require.Nil(t, created)
	mockRepo.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestOrderService_CreateOrder_RepositoryError(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockProducts := new(MockProductLookup)
	mockPayments := new(MockPaymentInitiator)
	m := metrics.New()
	svc := order.NewService(mockRepo, mockProducts, mockPayments, defaultSettings(), m)

	products, lines := scenarioCart()
	dbErr := errors.New("tx aborted")
	mockProducts.On("GetProductsByIDs", mock.Anything, mock.Anything).Return(products, nil).Once()
	mockRepo.On("CreateOrder", mock.Anything, mock.Anything).Return(uuid.Nil, dbErr).Once()

	_, err := svc.CreateOrder(context.Background(), order.CreateInput{
		UserID:        uuid.Must(uuid.NewV4()),
		Items:         lines,
		PaymentMethod: "mpesa",
		PhoneNumber:   "254712345678",
	})

	require.ErrorIs(t, err, dbErr)
	mockPayments.AssertNotCalled(t, "InitiatePayment", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.OrdersCreated))
}

func TestOrderService_CreateOrder_PaymentInitiation(t *testing.T) {
	tests := []struct {
		name         string
		method       string
		phone        string
		wantInitiate bool
	}{
		{name: "mpesa_with_phone", method: "mpesa", phone: "254712345678", wantInitiate: true},
		{name: "mpesa_without_phone", method: "mpesa", phone: ""},
		{name: "cash_with_phone", method: "cash", phone: "254712345678"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockOrderRepository)
			mockProducts := new(MockProductLookup)
			mockPayments := new(MockPaymentInitiator)
			m := metrics.New()
			svc := order.NewService(mockRepo, mockProducts, mockPayments, defaultSettings(), m)

			products, lines := scenarioCart()
			mockProducts.On("GetProductsByIDs", mock.Anything, mock.Anything).Return(products, nil).Once()
			mockRepo.On("CreateOrder", mock.Anything, mock.Anything).Return(uuid.Must(uuid.NewV4()), nil).Once()
			if tt.wantInitiate {
				mockPayments.On("InitiatePayment", mock.Anything, mock.MatchedBy(func(o *order.Order) bool {
					return o.PhoneNumber == tt.phone
				}), "buyer@example.com").Return().Once()
			}

			created, err := svc.CreateOrder(context.Background(), order.CreateInput{
				UserID:        uuid.Must(uuid.NewV4()),
				Items:         lines,
				PaymentMethod: tt.method,
				PhoneNumber:   tt.phone,
				Email:         "buyer@example.com",
			})

			require.NoError(t, err)
			require.NotNil(t, created)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersCreated))
			if tt.wantInitiate {
				mockPayments.AssertExpectations(t)
			} else {
				mockPayments.AssertNotCalled(t, "InitiatePayment", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestOrderService_GetOrder_Visibility(t *testing.T) {
	ownerID := uuid.Must(uuid.NewV4())
	orderID := uuid.Must(uuid.NewV4())
	stored := &order.Order{ID: orderID, UserID: ownerID, Status: order.StatusReceived}

	tests := []struct {
		name     string
		viewerID uuid.UUID
		staff    bool
		wantErr  error
	}{
		{name: "owner", viewerID: ownerID},
		{name: "staff", viewerID: uuid.Must(uuid.NewV4()), staff: true},
		{name: "stranger", viewerID: uuid.Must(uuid.NewV4()), wantErr: order.ErrOrderNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockOrderRepository)
			svc := order.NewService(mockRepo, new(MockProductLookup), nil, defaultSettings(), metrics.New())
			mockRepo.On("GetOrderByID", mock.Anything, orderID).Return(stored, nil).Once()

			got, err := svc.GetOrder(context.Background(), orderID, tt.viewerID, tt.staff)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, orderID, got.ID)
		})
	}
}

func TestOrderService_ListOrders_Scope(t *testing.T) {
	viewerID := uuid.Must(uuid.NewV4())

	t.Run("customer_sees_own", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		svc := order.NewService(mockRepo, new(MockProductLookup), nil, defaultSettings(), metrics.New())
		mockRepo.On("ListOrders", mock.Anything, mock.MatchedBy(func(id *uuid.UUID) bool {
			return id != nil && *id == viewerID
		})).Return([]order.Order{{ID: uuid.Must(uuid.NewV4())}}, nil).Once()

		orders, err := svc.ListOrders(context.Background(), viewerID, false)
		require.NoError(t, err)
		assert.Len(t, orders, 1)
		mockRepo.AssertExpectations(t)
	})

	t.Run("staff_sees_all", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		svc := order.NewService(mockRepo, new(MockProductLookup), nil, defaultSettings(), metrics.New())
		mockRepo.On("ListOrders", mock.Anything, (*uuid.UUID)(nil)).Return([]order.Order{}, nil).Once()

		_, err := svc.ListOrders(context.Background(), viewerID, true)
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})
}

func TestOrderService_UpdateOrderStatus(t *testing.T) {
	orderID := uuid.Must(uuid.NewV4())

	tests := []struct {
		name       string
		current    order.OrderStatus
		next       order.OrderStatus
		wantUpdate bool
		wantErr    error
	}{
		{name: "received_to_preparing", current: order.StatusReceived, next: order.StatusPreparing, wantUpdate: true},
		{name: "ready_to_delivered_pickup", current: order.StatusReady, next: order.StatusDelivered, wantUpdate: true},
		{name: "out_for_delivery_to_cancelled", current: order.StatusOutForDelivery, next: order.StatusCancelled, wantUpdate: true},
		{name: "same_status_noop", current: order.StatusReady, next: order.StatusReady},
		{name: "skip_ahead", current: order.StatusReceived, next: order.StatusDelivered, wantErr: order.ErrInvalidStatusTransition},
		{name: "delivered_is_terminal", current: order.StatusDelivered, next: order.StatusCancelled, wantErr: order.ErrInvalidStatusTransition},
		{name: "cancelled_is_terminal", current: order.StatusCancelled, next: order.StatusPreparing, wantErr: order.ErrInvalidStatusTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockOrderRepository)
			svc := order.NewService(mockRepo, new(MockProductLookup), nil, defaultSettings(), metrics.New())

			mockRepo.On("GetOrderByID", mock.Anything, orderID).Return(&order.Order{ID: orderID, Status: tt.current}, nil).Once()
			if tt.wantUpdate {
				mockRepo.On("UpdateOrderStatus", mock.Anything, orderID, tt.next).Return(nil).Once()
			}

			updated, err := svc.UpdateOrderStatus(context.Background(), orderID, tt.next)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				mockRepo.AssertNotCalled(t, "UpdateOrderStatus", mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.next, updated.Status)
			if !tt.wantUpdate {
				mockRepo.AssertNotCalled(t, "UpdateOrderStatus", mock.Anything, mock.Anything, mock.Anything)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestOrderService_UpdateOrderStatus_UnknownStatus(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	svc := order.NewService(mockRepo, new(MockProductLookup), nil, defaultSettings(), metrics.New())

	_, err := svc.UpdateOrderStatus(context.Background(), uuid.Must(uuid.NewV4()), order.OrderStatus("shipped"))

	require.ErrorIs(t, err, order.ErrInvalidStatus)
	mockRepo.AssertNotCalled(t, "GetOrderByID", mock.Anything, mock.Anything)
}
