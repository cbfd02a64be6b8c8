package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Khalidabdulkadir/Dhadhan-App/internal/auth"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/catalog"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/order"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/payment"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/reel"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/user"
)

type ValidationErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}

// respondWithError отправляет JSON ошибку
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON отправляет JSON ответ
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, user.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, reel.ErrNotFound),
		errors.Is(err, payment.ErrAttemptNotFound):
		return http.StatusNotFound
	case errors.Is(err, user.ErrEmailExists),
		errors.Is(err, order.ErrInvalidStatusTransition):
		return http.StatusConflict
	case errors.Is(err, user.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, payment.ErrInvalidChallenge):
		return http.StatusForbidden
	case errors.Is(err, user.ErrEmptyPassword),
		errors.Is(err, catalog.ErrInvalidReference),
		errors.Is(err, catalog.ErrInvalidDiscount),
		errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrTotalTooLarge),
		errors.Is(err, order.ErrProductNotFound),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, reel.ErrInvalidReference),
		errors.Is(err, auth.ErrTokenRequired),
		errors.Is(err, auth.ErrIdentityNotVerified),
		errors.Is(err, auth.ErrEmailMissing),
		errors.Is(err, payment.ErrUnknownState):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Тексты ответов, которые клиенты ожидают дословно.
var clientMessages = []struct {
	err     error
	message string
}{
	{order.ErrProductNotFound, "Product not found"},
	{auth.ErrTokenRequired, "Token is required"},
	{auth.ErrIdentityNotVerified, "Invalid token. Could not verify with Google."},
	{auth.ErrEmailMissing, "Email not found in Google data"},
}

func clientMessage(err error) string {
	for _, cm := range clientMessages {
		if errors.Is(err, cm.err) {
			return cm.message
		}
	}
	return err.Error()
}

// respondWithServiceError пишет сообщение доменной ошибки, а для 500 - общий текст.
func respondWithServiceError(w http.ResponseWriter, err error, fallback string) {
	code := mapErrorToStatusCode(err)
	if code == http.StatusInternalServerError {
		log.Error().Err(err).Msg(fallback)
		respondWithError(w, code, fallback)
		return
	}
	log.Warn().Err(err).Int("status", code).Msg(fallback)
	respondWithError(w, code, clientMessage(err))
}

func newValidator() *validator.Validate {
	validate := validator.New()
	// в details ключами идут имена полей из JSON
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return validate
}

func formatValidationErrors(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		field := fe.Field()
		switch fe.Tag() {
		case "required", "required_without":
			details[field] = "This field is required."
		case "email":
			details[field] = "Enter a valid email address."
		case "min":
			if fe.Kind() == reflect.String {
				details[field] = fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
			} else if fe.Kind() == reflect.Slice {
				details[field] = fmt.Sprintf("Ensure this field has at least %s elements.", fe.Param())
			} else {
				details[field] = fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
			}
		case "max":
			details[field] = fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
		case "gte":
			details[field] = fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
		case "lte":
			details[field] = fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
		case "url":
			details[field] = "Enter a valid URL."
		default:
			details[field] = fmt.Sprintf("Failed on the '%s' rule.", fe.Tag())
		}
	}
	return details
}

// decodeAndValidate читает тело запроса в dst и прогоняет валидацию.
// При ошибке ответ уже записан и возвращается false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, validate *validator.Validate, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		log.Warn().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request payload: %v", err))
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
				Error:   "Validation failed",
				Details: formatValidationErrors(validationErrors),
			})
		} else {
			log.Error().Err(err).Type("validation_error_type", err).Msg("Unexpected error type during validation")
			respondWithError(w, http.StatusInternalServerError, "Internal validation error")
		}
		return false
	}
	return true
}

func parseIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idParam := chi.URLParam(r, "id")
	id, err := uuid.FromString(idParam)
	if err != nil {
		log.Warn().Err(err).Str("id", idParam).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return uuid.Nil, false
	}
	return id, true
}

// parseOptionalUUIDQuery читает необязательный фильтр из query string.
func parseOptionalUUIDQuery(w http.ResponseWriter, r *http.Request, key string) (*uuid.UUID, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.FromString(raw)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s parameter", key))
		return nil, false
	}
	return &id, true
}

// viewer возвращает вызывающего; аноним получает uuid.Nil.
func viewer(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p
}
