package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Khalidabdulkadir/Dhadhan-App/internal/auth"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/order"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/payment"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/user"
)

// OrderItemRequest: мобильный клиент присылает товар в поле "id".
type OrderItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required_without=ID"`
	ID        uuid.UUID `json:"id"`
	Quantity  int       `json:"quantity" validate:"gte=1,lte=1000"`
}

func (i OrderItemRequest) productID() uuid.UUID {
	if i.ProductID != uuid.Nil {
		return i.ProductID
	}
	return i.ID
}

type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	DeliveryAddress string             `json:"delivery_address"`
	PaymentMethod   string             `json:"payment_method" validate:"required,max=20"`
	PhoneNumber     string             `json:"phone_number" validate:"max=32"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type OrderHandler struct {
	orders   order.Service
	payments payment.Service
	users    user.Service
	validate *validator.Validate
}

func NewOrderHandler(orders order.Service, payments payment.Service, users user.Service) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		payments: payments,
		users:    users,
		validate: newValidator(),
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Get("/orders", h.handleListOrders)
		r.Post("/orders", h.handleCreateOrder)
		r.Get("/orders/{id}", h.handleGetOrder)
		r.Get("/orders/{id}/payments", h.handleListPayments)
		r.Post("/orders/{id}/payment/refresh", h.handleRefreshPayments)

		r.With(auth.RequireStaff).Patch("/orders/{id}/status", h.handleUpdateStatus)
	})
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	caller := viewer(r)
	orders, err := h.orders.ListOrders(r.Context(), caller.UserID, caller.Staff)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list orders")
		return
	}
	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var requestPayload CreateOrderRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	caller := viewer(r)
	input := order.CreateInput{
		UserID:          caller.UserID,
		Items:           make([]order.LineInput, 0, len(requestPayload.Items)),
		DeliveryAddress: strings.TrimSpace(requestPayload.DeliveryAddress),
		PaymentMethod:   requestPayload.PaymentMethod,
		PhoneNumber:     strings.TrimSpace(requestPayload.PhoneNumber),
	}
	for _, item := range requestPayload.Items {
		input.Items = append(input.Items, order.LineInput{ProductID: item.productID(), Quantity: item.Quantity})
	}

	// email нужен только провайдеру платежей, без него заказ все равно создается
	if buyer, err := h.users.GetUserByID(r.Context(), caller.UserID); err == nil {
		input.Email = buyer.Email
	} else {
		log.Warn().Err(err).Stringer("user_id", caller.UserID).Msg("Failed to look up buyer email")
	}

	created, err := h.orders.CreateOrder(r.Context(), input)
	if err != nil {
		respondWithServiceError(w, err, "Failed to create order")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	found, ok := h.visibleOrder(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, found)
}

func (h *OrderHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	var requestPayload UpdateOrderStatusRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	updated, err := h.orders.UpdateOrderStatus(r.Context(), id, order.OrderStatus(requestPayload.Status))
	if err != nil {
		respondWithServiceError(w, err, "Failed to update order status")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *OrderHandler) handleListPayments(w http.ResponseWriter, r *http.Request) {
	found, ok := h.visibleOrder(w, r)
	if !ok {
		return
	}
	attempts, err := h.payments.ListByOrder(r.Context(), found.ID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list payments")
		return
	}
	respondWithJSON(w, http.StatusOK, attempts)
}

func (h *OrderHandler) handleRefreshPayments(w http.ResponseWriter, r *http.Request) {
	found, ok := h.visibleOrder(w, r)
	if !ok {
		return
	}
	attempts, err := h.payments.Refresh(r.Context(), found.ID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to refresh payments")
		return
	}
	respondWithJSON(w, http.StatusOK, attempts)
}

// visibleOrder отдает заказ владельцу или staff; чужой заказ выглядит как 404.
func (h *OrderHandler) visibleOrder(w http.ResponseWriter, r *http.Request) (*order.Order, bool) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return nil, false
	}
	caller := viewer(r)
	found, err := h.orders.GetOrder(r.Context(), id, caller.UserID, caller.Staff)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get order")
		return nil, false
	}
	return found, true
}
