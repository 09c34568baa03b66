package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/dormmenu/internal/audit/domain"
	"github.com/smallbiznis/dormmenu/internal/authorization"
	dishdomain "github.com/smallbiznis/dormmenu/internal/dish/domain"
	"github.com/smallbiznis/dormmenu/internal/identity"
	ingestdomain "github.com/smallbiznis/dormmenu/internal/ingest/domain"
	menudomain "github.com/smallbiznis/dormmenu/internal/menu/domain"
	votedomain "github.com/smallbiznis/dormmenu/internal/vote/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// validationErrors are rejected before any store I/O; the sentinel text is the response code.
var validationErrors = []error{
	ErrInvalidRequest,
	dishdomain.ErrInvalidName,
	votedomain.ErrInvalidDishName,
	votedomain.ErrInvalidUser,
	votedomain.ErrInvalidVoteType,
	menudomain.ErrInvalidID,
	menudomain.ErrInvalidCity,
	menudomain.ErrCityNotAllowed,
	menudomain.ErrInvalidDate,
	menudomain.ErrInvalidMealSlot,
	menudomain.ErrInvalidDishes,
	menudomain.ErrTooManyDishes,
	menudomain.ErrInvalidCalories,
	menudomain.ErrInvalidMonth,
	menudomain.ErrInvalidStatus,
	ingestdomain.ErrInvalidCity,
	ingestdomain.ErrInvalidMonth,
	ingestdomain.ErrInvalidYear,
	ingestdomain.ErrInvalidBatch,
	auditdomain.ErrInvalidPageToken,
	auditdomain.ErrInvalidTimeRange,
	auditdomain.ErrInvalidAction,
}

var conflictErrors = []error{
	menudomain.ErrDuplicateMenu,
	menudomain.ErrMenuPublished,
	menudomain.ErrAlreadyPublished,
	menudomain.ErrNothingToPublish,
	ingestdomain.ErrIngestInProgress,
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if sentinel := matchSentinel(err, validationErrors); sentinel != nil {
		code := sentinel.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Code:    code,
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	if sentinel := matchSentinel(err, conflictErrors); sentinel != nil {
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Code:    sentinel.Error(),
			Message: conflictMessage(sentinel),
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, identity.ErrMissingToken),
		errors.Is(err, identity.ErrInvalidToken),
		errors.Is(err, identity.ErrInvalidRole):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger the same type/code pair the client sees.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Code
	if code == "" && len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func matchSentinel(err error, sentinels []error) error {
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return nil
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, dishdomain.ErrNotFound),
		errors.Is(err, votedomain.ErrDishNotFound),
		errors.Is(err, menudomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "city_not_allowed":
		return "city"
	case "too_many_dishes":
		return "dishes"
	case "invalid_time_range":
		return "end_at"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "city_not_allowed":
		return "city is not served"
	case "too_many_dishes":
		return "too many dishes for one meal"
	default:
		return "invalid value"
	}
}

func conflictMessage(sentinel error) string {
	switch sentinel {
	case menudomain.ErrDuplicateMenu:
		return "a menu already exists for this city, date and meal slot"
	case menudomain.ErrMenuPublished:
		return "published menus cannot be changed"
	case menudomain.ErrAlreadyPublished:
		return "menu is already published"
	case menudomain.ErrNothingToPublish:
		return "no draft menus in this month"
	case ingestdomain.ErrIngestInProgress:
		return "another import for this month is running"
	default:
		return "conflict"
	}
}
