// Package envelope formats every API response into the standard wrapper:
//
//	{meta:{status, alertType, message, timestamp, requestId}, data, errors[]}
//
// Handlers never write raw payloads; success and failure both go through
// here so clients can rely on one shape. Internal details (driver errors,
// stack state) never reach the wire — only the stable codes below.
package envelope

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Stable error codes surfaced in meta.message / errors[].code. These are
// part of the API contract; renaming one is a breaking change.
const (
	CodeValidation            = "VALIDATION"
	CodeInvalidCredentials    = "AUTH_INVALID_CREDENTIALS"
	CodeNotVerified           = "AUTH_NOT_VERIFIED"
	CodeTokenExpired          = "AUTH_TOKEN_EXPIRED"
	CodeTokenInvalid          = "AUTH_TOKEN_INVALID"
	CodeTokenRevoked          = "AUTH_TOKEN_REVOKED"
	CodeForbidden             = "FORBIDDEN"
	CodeNotFound              = "NOT_FOUND"
	CodeRateLimited           = "RATE_LIMITED"
	CodeConflict              = "CONFLICT"
	CodeDependencyUnavailable = "DEPENDENCY_UNAVAILABLE"
)

// Meta carries response metadata common to every call.
type Meta struct {
	Status    string    `json:"status"`    // "ok" or "error"
	AlertType string    `json:"alertType"` // "success", "warning" or "error"
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"requestId"`
}

// FieldError is one field-level validation issue.
type FieldError struct {
	Field string `json:"field,omitempty"`
	Code  string `json:"code"`
	Issue string `json:"issue,omitempty"`
}

// Envelope is the uniform response body.
type Envelope struct {
	Meta   Meta         `json:"meta"`
	Data   interface{}  `json:"data"`
	Errors []FieldError `json:"errors"`
}

// OK writes a success envelope with the given HTTP status and payload.
func OK(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, Envelope{
		Meta: Meta{
			Status:    "ok",
			AlertType: "success",
			Message:   message,
			Timestamp: time.Now().UTC(),
			RequestID: requestID(c),
		},
		Data:   data,
		Errors: []FieldError{},
	})
}

// Fail writes an error envelope. code becomes meta.message; fieldErrs may
// be nil for non-validation failures.
func Fail(c echo.Context, status int, code string, fieldErrs ...FieldError) error {
	if fieldErrs == nil {
		fieldErrs = []FieldError{}
	}
	return c.JSON(status, Envelope{
		Meta: Meta{
			Status:    "error",
			AlertType: "error",
			Message:   code,
			Timestamp: time.Now().UTC(),
			RequestID: requestID(c),
		},
		Data:   nil,
		Errors: fieldErrs,
	})
}

// Internal writes a DEPENDENCY_UNAVAILABLE envelope for unexpected
// failures. The cause is left to the caller's logger.
func Internal(c echo.Context) error {
	return Fail(c, http.StatusInternalServerError, CodeDependencyUnavailable)
}

func requestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}
