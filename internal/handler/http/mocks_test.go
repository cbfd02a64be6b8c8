package http_test

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Khalidabdulkadir/Dhadhan-App/internal/auth"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/catalog"
	handler "github.com/Khalidabdulkadir/Dhadhan-App/internal/handler/http"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/metrics"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/order"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/payment"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/reel"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/user"
)

const testSecret = "handler-test-secret"

type harness struct {
	router  *chi.Mux
	tokens  *auth.TokenManager
	metrics *metrics.Metrics
}

func newHarness(registrars ...handler.RouteRegistrar) *harness {
	tokens := auth.NewTokenManager(testSecret, 5*time.Minute, time.Hour)
	m := metrics.New()
	return &harness{
		router:  handler.NewRouter(handler.RouterConfig{Tokens: tokens, Metrics: m}, registrars...),
		tokens:  tokens,
		metrics: m,
	}
}

// do выполняет запрос; userID == uuid.Nil означает анонима.
func (h *harness) do(t *testing.T, method, target string, body io.Reader, userID uuid.UUID, staff bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		access, err := h.tokens.IssueAccess(userID, staff)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+access)
	}
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, newUser *user.User) (*auth.Session, error) {
	args := m.Called(ctx, newUser)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Session), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, login, password string) (auth.TokenPair, error) {
	args := m.Called(ctx, login, password)
	return args.Get(0).(auth.TokenPair), args.Error(1)
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) GoogleLogin(ctx context.Context, token string) (*auth.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Session), args.Error(1)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) CreateUser(ctx context.Context, u *user.User) (*user.User, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, login, password string) (*user.User, error) {
	args := m.Called(ctx, login, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) GetOrCreateByEmail(ctx context.Context, email, firstName, lastName string) (*user.User, bool, error) {
	args := m.Called(ctx, email, firstName, lastName)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*user.User), args.Bool(1), args.Error(2)
}

func (m *MockUserService) GetUserByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, u *user.User) (*user.User, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) ListUsers(ctx context.Context) ([]user.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]user.User), args.Error(1)
}

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) ListRestaurants(ctx context.Context) ([]catalog.Restaurant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Restaurant), args.Error(1)
}

func (m *MockCatalogService) GetRestaurant(ctx context.Context, id uuid.UUID) (*catalog.Restaurant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Restaurant), args.Error(1)
}

func (m *MockCatalogService) CreateRestaurant(ctx context.Context, restaurant *catalog.Restaurant) (*catalog.Restaurant, error) {
	args := m.Called(ctx, restaurant)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Restaurant), args.Error(1)
}

func (m *MockCatalogService) UpdateRestaurant(ctx context.Context, restaurant *catalog.Restaurant) (*catalog.Restaurant, error) {
	args := m.Called(ctx, restaurant)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Restaurant), args.Error(1)
}

func (m *MockCatalogService) DeleteRestaurant(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCatalogService) ListCategories(ctx context.Context, restaurantID *uuid.UUID) ([]catalog.Category, error) {
	args := m.Called(ctx, restaurantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Category), args.Error(1)
}

func (m *MockCatalogService) GetCategory(ctx context.Context, id uuid.UUID) (*catalog.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Category), args.Error(1)
}

func (m *MockCatalogService) CreateCategory(ctx context.Context, category *catalog.Category) (*catalog.Category, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Category), args.Error(1)
}

func (m *MockCatalogService) UpdateCategory(ctx context.Context, category *catalog.Category) (*catalog.Category, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Category), args.Error(1)
}

func (m *MockCatalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCatalogService) ListProducts(ctx context.Context, filter catalog.ProductFilter) ([]catalog.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockCatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockCatalogService) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]*catalog.Product), args.Error(1)
}

func (m *MockCatalogService) CreateProduct(ctx context.Context, product *catalog.Product) (*catalog.Product, error) {
	args := m.Called(ctx, product)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockCatalogService) UpdateProduct(ctx context.Context, product *catalog.Product) (*catalog.Product, error) {
	args := m.Called(ctx, product)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockCatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, input order.CreateInput) (*order.Order, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, id uuid.UUID, viewerID uuid.UUID, staff bool) (*order.Order, error) {
	args := m.Called(ctx, id, viewerID, staff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context, viewerID uuid.UUID, staff bool) ([]order.Order, error) {
	args := m.Called(ctx, viewerID, staff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus order.OrderStatus) (*order.Order, error) {
	args := m.Called(ctx, orderID, newStatus)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) InitiatePayment(ctx context.Context, o *order.Order, email string) {
	m.Called(ctx, o, email)
}

func (m *MockPaymentService) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]payment.Attempt, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]payment.Attempt), args.Error(1)
}

func (m *MockPaymentService) Refresh(ctx context.Context, orderID uuid.UUID) ([]payment.Attempt, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]payment.Attempt), args.Error(1)
}

func (m *MockPaymentService) HandleWebhook(ctx context.Context, event payment.WebhookEvent) (*payment.Attempt, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Attempt), args.Error(1)
}

type MockReelService struct {
	mock.Mock
}

func (m *MockReelService) ListReels(ctx context.Context, filter reel.Filter) ([]reel.Reel, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]reel.Reel), args.Error(1)
}

func (m *MockReelService) ListSaved(ctx context.Context, userID uuid.UUID) ([]reel.Reel, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]reel.Reel), args.Error(1)
}

func (m *MockReelService) GetReel(ctx context.Context, id uuid.UUID, viewer uuid.UUID) (*reel.Reel, error) {
	args := m.Called(ctx, id, viewer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reel.Reel), args.Error(1)
}

func (m *MockReelService) CreateReel(ctx context.Context, rl *reel.Reel) (*reel.Reel, error) {
	args := m.Called(ctx, rl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reel.Reel), args.Error(1)
}

func (m *MockReelService) UpdateReel(ctx context.Context, rl *reel.Reel) (*reel.Reel, error) {
	args := m.Called(ctx, rl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reel.Reel), args.Error(1)
}

func (m *MockReelService) DeleteReel(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockReelService) RecordView(ctx context.Context, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReelService) ToggleSave(ctx context.Context, userID, reelID uuid.UUID) (reel.SaveStatus, error) {
	args := m.Called(ctx, userID, reelID)
	return args.Get(0).(reel.SaveStatus), args.Error(1)
}
