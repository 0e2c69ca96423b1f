package dto

import (
	"errors"
	"net/http"

	"github.com/donation/backend/internal/domain/shared"
)

// Error codes that only exist at the HTTP boundary. Domain codes come from
// the shared package and are passed through unchanged.
const (
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeInvalidJSON     = "INVALID_JSON"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	ErrCodeRouteNotFound   = "ROUTE_NOT_FOUND"
	ErrCodeUnavailable     = "SERVICE_UNAVAILABLE"
)

// GenericInternalMessage is the only message ever shown for unexpected failures
const GenericInternalMessage = "An unexpected error occurred"

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	shared.CodeValidation:          http.StatusBadRequest,
	shared.CodeNotFound:            http.StatusNotFound,
	shared.CodeInvalidState:        http.StatusConflict,
	shared.CodeInvalidTransition:   http.StatusConflict,
	shared.CodeUnauthorized:        http.StatusUnauthorized,
	shared.CodeForbidden:           http.StatusForbidden,
	shared.CodeConflict:            http.StatusConflict,
	shared.CodeConcurrencyConflict: http.StatusConflict,
	shared.CodeInternal:            http.StatusInternalServerError,

	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodePayloadTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRouteNotFound:   http.StatusNotFound,
	ErrCodeUnavailable:     http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// FromError converts err into a status code and an error envelope. Domain
// errors keep their code and message; anything else becomes a generic 500
// so internal details never reach the client.
func FromError(err error, requestID string) (int, Response) {
	var de *shared.DomainError
	if !errors.As(err, &de) {
		return http.StatusInternalServerError, NewErrorResponse(shared.CodeInternal, GenericInternalMessage, requestID)
	}
	status := GetHTTPStatus(de.Code)
	message := de.Message
	if status == http.StatusInternalServerError {
		message = GenericInternalMessage
	}
	if de.Code == shared.CodeValidation {
		return status, NewValidationErrorResponse(message, requestID, de.Details)
	}
	return status, NewErrorResponse(de.Code, message, requestID)
}
