package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/Khalidabdulkadir/Dhadhan-App/internal/auth"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/metrics"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/ratelimit"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/user"
)

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
}

// LoginRequest принимает username или email.
type LoginRequest struct {
	Username string `json:"username" validate:"required_without=Email"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type GoogleLoginRequest struct {
	Token string `json:"token"`
}

type ProfileReplaceRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
}

type ProfilePatchRequest struct {
	Email     *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,max=150"`
}

type AccessResponse struct {
	Access string `json:"access"`
}

type AuthHandler struct {
	auth     auth.Service
	users    user.Service
	limiter  ratelimit.Limiter
	metrics  *metrics.Metrics
	validate *validator.Validate
}

// NewAuthHandler; limiter может быть nil, тогда лимит не применяется.
func NewAuthHandler(authSvc auth.Service, users user.Service, limiter ratelimit.Limiter, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{
		auth:     authSvc,
		users:    users,
		limiter:  limiter,
		metrics:  m,
		validate: newValidator(),
	}
}

func (h *AuthHandler) RegisterRoutes(router chi.Router) {
	router.With(ratelimit.Middleware(h.limiter, "register", h.metrics)).Post("/auth/register", h.handleRegister)
	router.With(ratelimit.Middleware(h.limiter, "login", h.metrics)).Post("/auth/login", h.handleLogin)
	router.Post("/auth/refresh", h.handleRefresh)
	router.With(ratelimit.Middleware(h.limiter, "google", h.metrics)).Post("/auth/google", h.handleGoogleLogin)

	router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Get("/auth/profile", h.handleGetProfile)
		r.Put("/auth/profile", h.handleReplaceProfile)
		r.Patch("/auth/profile", h.handlePatchProfile)
	})

	router.With(auth.RequireStaff).Get("/users", h.handleListUsers)
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var requestPayload RegisterRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	session, err := h.auth.Register(r.Context(), &user.User{
		Email:        requestPayload.Email,
		FirstName:    requestPayload.FirstName,
		LastName:     requestPayload.LastName,
		PasswordHash: requestPayload.Password,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to register user")
		return
	}

	respondWithJSON(w, http.StatusCreated, session)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var requestPayload LoginRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	login := requestPayload.Username
	if login == "" {
		login = requestPayload.Email
	}

	pair, err := h.auth.Login(r.Context(), login, requestPayload.Password)
	if err != nil {
		respondWithServiceError(w, err, "Failed to log in")
		return
	}

	respondWithJSON(w, http.StatusOK, pair)
}

func (h *AuthHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var requestPayload RefreshRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	access, err := h.auth.Refresh(r.Context(), requestPayload.Refresh)
	if err != nil {
		respondWithServiceError(w, err, "Failed to refresh token")
		return
	}

	respondWithJSON(w, http.StatusOK, AccessResponse{Access: access})
}

// Пустой token проверяет сервис: ответ должен быть "Token is required".
func (h *AuthHandler) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	var requestPayload GoogleLoginRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	session, err := h.auth.GoogleLogin(r.Context(), requestPayload.Token)
	if err != nil {
		respondWithServiceError(w, err, "Failed to log in with Google")
		return
	}

	respondWithJSON(w, http.StatusOK, session)
}

func (h *AuthHandler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	found, err := h.users.GetUserByID(r.Context(), viewer(r).UserID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get profile")
		return
	}

	respondWithJSON(w, http.StatusOK, found)
}

func (h *AuthHandler) handleReplaceProfile(w http.ResponseWriter, r *http.Request) {
	var requestPayload ProfileReplaceRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	h.updateProfile(w, r, func(u *user.User) {
		u.Email = requestPayload.Email
		u.FirstName = requestPayload.FirstName
		u.LastName = requestPayload.LastName
	})
}

func (h *AuthHandler) handlePatchProfile(w http.ResponseWriter, r *http.Request) {
	var requestPayload ProfilePatchRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	h.updateProfile(w, r, func(u *user.User) {
		if requestPayload.Email != nil {
			u.Email = *requestPayload.Email
		}
		if requestPayload.FirstName != nil {
			u.FirstName = *requestPayload.FirstName
		}
		if requestPayload.LastName != nil {
			u.LastName = *requestPayload.LastName
		}
	})
}

func (h *AuthHandler) updateProfile(w http.ResponseWriter, r *http.Request, apply func(u *user.User)) {
	current, err := h.users.GetUserByID(r.Context(), viewer(r).UserID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get profile")
		return
	}

	apply(current)
	// пароль через профиль не меняется
	current.PasswordHash = ""

	updated, err := h.users.UpdateProfile(r.Context(), current)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update profile")
		return
	}

	log.Info().Stringer("user_id", updated.ID).Msg("Profile updated")
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *AuthHandler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to list users")
		return
	}

	respondWithJSON(w, http.StatusOK, users)
}
