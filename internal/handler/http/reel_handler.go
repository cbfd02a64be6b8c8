package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"

	"github.com/Khalidabdulkadir/Dhadhan-App/internal/auth"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/reel"
)

type ReelRequest struct {
	ProductID    uuid.UUID  `json:"product" validate:"required"`
	RestaurantID *uuid.UUID `json:"restaurant"`
	Video        string     `json:"video" validate:"omitempty,url"`
	Caption      string     `json:"caption"`
	IsHighlight  bool       `json:"is_highlight"`
}

// ReelResponse отдает product_details вместе с вычисляемой ценой.
type ReelResponse struct {
	reel.Reel
	Product *ProductResponse `json:"product_details"`
}

func newReelResponse(rl *reel.Reel) ReelResponse {
	return ReelResponse{Reel: *rl, Product: newProductResponse(rl.Product)}
}

func newReelResponses(reels []reel.Reel) []ReelResponse {
	response := make([]ReelResponse, 0, len(reels))
	for i := range reels {
		response = append(response, newReelResponse(&reels[i]))
	}
	return response
}

type ViewsResponse struct {
	Views int64 `json:"views"`
}

type SaveStatusResponse struct {
	Status reel.SaveStatus `json:"status"`
}

type ReelHandler struct {
	service  reel.Service
	validate *validator.Validate
}

func NewReelHandler(service reel.Service) *ReelHandler {
	return &ReelHandler{
		service:  service,
		validate: newValidator(),
	}
}

func (h *ReelHandler) RegisterRoutes(router chi.Router) {
	router.Get("/reels", h.handleListReels)
	router.With(auth.RequireAuth).Get("/reels/saved", h.handleListSaved)
	router.Get("/reels/{id}", h.handleGetReel)
	router.Post("/reels/{id}/view", h.handleView)
	router.With(auth.RequireAuth).Post("/reels/{id}/toggle_save", h.handleToggleSave)

	router.Group(func(r chi.Router) {
		r.Use(auth.RequireStaff)
		r.Post("/reels", h.handleCreateReel)
		r.Put("/reels/{id}", h.handleUpdateReel)
		r.Delete("/reels/{id}", h.handleDeleteReel)
	})
}

func (req ReelRequest) toDomain(id uuid.UUID) *reel.Reel {
	return &reel.Reel{
		ID:           id,
		ProductID:    req.ProductID,
		RestaurantID: req.RestaurantID,
		Video:        req.Video,
		Caption:      req.Caption,
		IsHighlight:  req.IsHighlight,
	}
}

func (h *ReelHandler) handleListReels(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := parseOptionalUUIDQuery(w, r, "restaurant")
	if !ok {
		return
	}
	reels, err := h.service.ListReels(r.Context(), reel.Filter{
		RestaurantID: restaurantID,
		Viewer:       viewer(r).UserID,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to list reels")
		return
	}
	respondWithJSON(w, http.StatusOK, newReelResponses(reels))
}

func (h *ReelHandler) handleListSaved(w http.ResponseWriter, r *http.Request) {
	reels, err := h.service.ListSaved(r.Context(), viewer(r).UserID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list saved reels")
		return
	}
	respondWithJSON(w, http.StatusOK, newReelResponses(reels))
}

func (h *ReelHandler) handleGetReel(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	found, err := h.service.GetReel(r.Context(), id, viewer(r).UserID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get reel")
		return
	}
	respondWithJSON(w, http.StatusOK, newReelResponse(found))
}

func (h *ReelHandler) handleCreateReel(w http.ResponseWriter, r *http.Request) {
	var requestPayload ReelRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}
	created, err := h.service.CreateReel(r.Context(), requestPayload.toDomain(uuid.Nil))
	if err != nil {
		respondWithServiceError(w, err, "Failed to create reel")
		return
	}
	respondWithJSON(w, http.StatusCreated, newReelResponse(created))
}

func (h *ReelHandler) handleUpdateReel(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	var requestPayload ReelRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}
	updated, err := h.service.UpdateReel(r.Context(), requestPayload.toDomain(id))
	if err != nil {
		respondWithServiceError(w, err, "Failed to update reel")
		return
	}
	respondWithJSON(w, http.StatusOK, newReelResponse(updated))
}

func (h *ReelHandler) handleDeleteReel(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteReel(r.Context(), id); err != nil {
		respondWithServiceError(w, err, "Failed to delete reel")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Просмотр засчитывается и анонимам.
func (h *ReelHandler) handleView(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	views, err := h.service.RecordView(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to record view")
		return
	}
	respondWithJSON(w, http.StatusOK, ViewsResponse{Views: views})
}

func (h *ReelHandler) handleToggleSave(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	status, err := h.service.ToggleSave(r.Context(), viewer(r).UserID, id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to toggle saved reel")
		return
	}
	respondWithJSON(w, http.StatusOK, SaveStatusResponse{Status: status})
}
