package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/Khalidabdulkadir/Dhadhan-App/internal/auth"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/catalog"
)

type RestaurantRequest struct {
	Name               string `json:"name" validate:"required,max=200"`
	Logo               string `json:"logo"`
	CoverImage         string `json:"cover_image"`
	WhatsAppNumber     string `json:"whatsapp_number" validate:"max=32"`
	Location           string `json:"location"`
	Description        string `json:"description"`
	DeliveryNote       string `json:"delivery_note"`
	IsVerified         bool   `json:"is_verified"`
	DiscountPercentage int    `json:"discount_percentage" validate:"gte=0,lte=100"`
	IsFeaturedCampaign bool   `json:"is_featured_campaign"`
}

type CategoryRequest struct {
	Name         string     `json:"name" validate:"required,max=100"`
	Image        string     `json:"image"`
	RestaurantID *uuid.UUID `json:"restaurant"`
}

type ProductRequest struct {
	Name               string           `json:"name" validate:"required,max=200"`
	Description        string           `json:"description"`
	Price              *decimal.Decimal `json:"price" validate:"required"`
	Image              string           `json:"image"`
	CategoryID         uuid.UUID        `json:"category" validate:"required"`
	RestaurantID       *uuid.UUID       `json:"restaurant"`
	Rating             float64          `json:"rating" validate:"gte=0,lte=5"`
	Calories           int              `json:"calories" validate:"gte=0"`
	IsPromoted         bool             `json:"is_promoted"`
	DiscountPercentage int              `json:"discount_percentage" validate:"gte=0,lte=100"`
	ShippingFee        *decimal.Decimal `json:"shipping_fee"`
	IsAvailable        *bool            `json:"is_available"`
}

// ProductResponse дополняет товар вычисляемыми полями цены.
type ProductResponse struct {
	catalog.Product
	DiscountedPrice   decimal.Decimal `json:"discounted_price"`
	EffectiveDiscount int             `json:"effective_discount"`
}

func newProductResponse(p *catalog.Product) *ProductResponse {
	if p == nil {
		return nil
	}
	return &ProductResponse{
		Product:           *p,
		DiscountedPrice:   p.DiscountedPrice(),
		EffectiveDiscount: p.EffectiveDiscount(),
	}
}

type CatalogHandler struct {
	service  catalog.Service
	validate *validator.Validate
}

func NewCatalogHandler(service catalog.Service) *CatalogHandler {
	return &CatalogHandler{
		service:  service,
		validate: newValidator(),
	}
}

// RegisterRoutes: чтение публичное, запись только для staff.
func (h *CatalogHandler) RegisterRoutes(router chi.Router) {
	router.Get("/restaurants", h.handleListRestaurants)
	router.Get("/restaurants/{id}", h.handleGetRestaurant)
	router.Get("/categories", h.handleListCategories)
	router.Get("/categories/{id}", h.handleGetCategory)
	router.Get("/products", h.handleListProducts)
	router.Get("/products/{id}", h.handleGetProduct)

	router.Group(func(r chi.Router) {
		r.Use(auth.RequireStaff)

		r.Post("/restaurants", h.handleCreateRestaurant)
		r.Put("/restaurants/{id}", h.handleUpdateRestaurant)
		r.Delete("/restaurants/{id}", h.handleDeleteRestaurant)

		r.Post("/categories", h.handleCreateCategory)
		r.Put("/categories/{id}", h.handleUpdateCategory)
		r.Delete("/categories/{id}", h.handleDeleteCategory)

		r.Post("/products", h.handleCreateProduct)
		r.Put("/products/{id}", h.handleUpdateProduct)
		r.Delete("/products/{id}", h.handleDeleteProduct)
	})
}

func (req RestaurantRequest) toDomain(id uuid.UUID) *catalog.Restaurant {
	return &catalog.Restaurant{
		ID:                 id,
		Name:               req.Name,
		Logo:               req.Logo,
		CoverImage:         req.CoverImage,
		WhatsAppNumber:     req.WhatsAppNumber,
		Location:           req.Location,
		Description:        req.Description,
		DeliveryNote:       req.DeliveryNote,
		IsVerified:         req.IsVerified,
		DiscountPercentage: req.DiscountPercentage,
		IsFeaturedCampaign: req.IsFeaturedCampaign,
	}
}

func (h *CatalogHandler) handleListRestaurants(w http.ResponseWriter, r *http.Request) {
	restaurants, err := h.service.ListRestaurants(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to list restaurants")
		return
	}
	respondWithJSON(w, http.StatusOK, restaurants)
}

func (h *CatalogHandler) handleGetRestaurant(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	restaurant, err := h.service.GetRestaurant(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get restaurant")
		return
	}
	respondWithJSON(w, http.StatusOK, restaurant)
}

func (h *CatalogHandler) handleCreateRestaurant(w http.ResponseWriter, r *http.Request) {
	var requestPayload RestaurantRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}
	created, err := h.service.CreateRestaurant(r.Context(), requestPayload.toDomain(uuid.Nil))
	if err != nil {
		respondWithServiceError(w, err, "Failed to create restaurant")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *CatalogHandler) handleUpdateRestaurant(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	var requestPayload RestaurantRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}
	updated, err := h.service.UpdateRestaurant(r.Context(), requestPayload.toDomain(id))
	if err != nil {
		respondWithServiceError(w, err, "Failed to update restaurant")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *CatalogHandler) handleDeleteRestaurant(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteRestaurant(r.Context(), id); err != nil {
		respondWithServiceError(w, err, "Failed to delete restaurant")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := parseOptionalUUIDQuery(w, r, "restaurant")
	if !ok {
		return
	}
	categories, err := h.service.ListCategories(r.Context(), restaurantID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list categories")
		return
	}
	respondWithJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandler) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	category, err := h.service.GetCategory(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get category")
		return
	}
	respondWithJSON(w, http.StatusOK, category)
}

func (h *CatalogHandler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var requestPayload CategoryRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}
	created, err := h.service.CreateCategory(r.Context(), &catalog.Category{
		Name:         requestPayload.Name,
		Image:        requestPayload.Image,
		RestaurantID: requestPayload.RestaurantID,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to create category")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *CatalogHandler) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	var requestPayload CategoryRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}
	updated, err := h.service.UpdateCategory(r.Context(), &catalog.Category{
		ID:           id,
		Name:         requestPayload.Name,
		Image:        requestPayload.Image,
		RestaurantID: requestPayload.RestaurantID,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to update category")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *CatalogHandler) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteCategory(r.Context(), id); err != nil {
		respondWithServiceError(w, err, "Failed to delete category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := parseOptionalUUIDQuery(w, r, "category")
	if !ok {
		return
	}
	restaurantID, ok := parseOptionalUUIDQuery(w, r, "restaurant")
	if !ok {
		return
	}

	products, err := h.service.ListProducts(r.Context(), catalog.ProductFilter{
		CategoryID:   categoryID,
		RestaurantID: restaurantID,
		Search:       strings.TrimSpace(r.URL.Query().Get("search")),
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to list products")
		return
	}

	response := make([]*ProductResponse, 0, len(products))
	for i := range products {
		response = append(response, newProductResponse(&products[i]))
	}
	respondWithJSON(w, http.StatusOK, response)
}

func (h *CatalogHandler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get product")
		return
	}
	respondWithJSON(w, http.StatusOK, newProductResponse(product))
}

func amountError(v decimal.Decimal) string {
	switch {
	case v.IsNegative():
		return "Ensure this value is greater than or equal to 0."
	case v.GreaterThan(catalog.MaxAmount):
		return "Ensure this value is less than or equal to " + catalog.MaxAmount.String() + "."
	}
	return ""
}

// decodeProduct дополнительно проверяет цену: decimal не покрывается тегами валидатора.
func (h *CatalogHandler) decodeProduct(w http.ResponseWriter, r *http.Request, id uuid.UUID) (*catalog.Product, bool) {
	var requestPayload ProductRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return nil, false
	}

	details := map[string]string{}
	if msg := amountError(*requestPayload.Price); msg != "" {
		details["price"] = msg
	}
	if requestPayload.ShippingFee != nil {
		if msg := amountError(*requestPayload.ShippingFee); msg != "" {
			details["shipping_fee"] = msg
		}
	}
	if len(details) > 0 {
		respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{Error: "Validation failed", Details: details})
		return nil, false
	}

	product := &catalog.Product{
		ID:                 id,
		Name:               requestPayload.Name,
		Description:        requestPayload.Description,
		Price:              requestPayload.Price.Round(2),
		Image:              requestPayload.Image,
		CategoryID:         requestPayload.CategoryID,
		RestaurantID:       requestPayload.RestaurantID,
		Rating:             requestPayload.Rating,
		Calories:           requestPayload.Calories,
		IsPromoted:         requestPayload.IsPromoted,
		DiscountPercentage: requestPayload.DiscountPercentage,
		ShippingFee:        decimal.Zero,
		IsAvailable:        true,
	}
	if requestPayload.ShippingFee != nil {
		product.ShippingFee = requestPayload.ShippingFee.Round(2)
	}
	if requestPayload.IsAvailable != nil {
		product.IsAvailable = *requestPayload.IsAvailable
	}
	return product, true
}

func (h *CatalogHandler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	product, ok := h.decodeProduct(w, r, uuid.Nil)
	if !ok {
		return
	}
	created, err := h.service.CreateProduct(r.Context(), product)
	if err != nil {
		respondWithServiceError(w, err, "Failed to create product")
		return
	}
	respondWithJSON(w, http.StatusCreated, newProductResponse(created))
}

func (h *CatalogHandler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	product, ok := h.decodeProduct(w, r, id)
	if !ok {
		return
	}
	updated, err := h.service.UpdateProduct(r.Context(), product)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update product")
		return
	}
	respondWithJSON(w, http.StatusOK, newProductResponse(updated))
}

func (h *CatalogHandler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		respondWithServiceError(w, err, "Failed to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
