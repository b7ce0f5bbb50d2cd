package dto

import (
	"net/http"
	"strings"
)

// Error codes returned in the response envelope. Domain errors travel with
// their own code; these are the ones the HTTP layer itself produces or maps.

// General error codes
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL_ERROR"
)

// Validation error codes
const (
	// ErrCodeValidation is used when request binding or validation fails
	ErrCodeValidation = "VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "INVALID_INPUT"
	// ErrCodePayloadTooLarge is used when the body exceeds the configured limit
	ErrCodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "UNAUTHORIZED"
	// ErrCodeInvalidCredentials is used when login fails
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	// ErrCodeEmailNotVerified is used when an unverified account logs in
	ErrCodeEmailNotVerified = "EMAIL_NOT_VERIFIED"
	// ErrCodeForbidden is used when the user lacks the required role
	ErrCodeForbidden = "FORBIDDEN"
	// ErrCodeTokenExpired is used when the token has expired
	ErrCodeTokenExpired = "TOKEN_EXPIRED"
	// ErrCodeTokenRevoked is used when the token was blacklisted
	ErrCodeTokenRevoked = "TOKEN_REVOKED"
)

// Resource error codes
const (
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeConflict      = "CONFLICT"
)

// Business rule error codes
const (
	ErrCodeInvalidState      = "INVALID_STATE"
	ErrCodeBusinessRule      = "BUSINESS_RULE"
	ErrCodeInsufficientStock = "INSUFFICIENT_STOCK"
	ErrCodePaymentFailed     = "PAYMENT_FAILED"
)

// Availability error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "RATE_LIMITED"
	// ErrCodePaymentsDisabled is used when Stripe is not configured
	ErrCodePaymentsDisabled = "PAYMENTS_DISABLED"
	// ErrCodePDFDisabled is used when invoice rendering is not configured
	ErrCodePDFDisabled = "PDF_DISABLED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,
	"UPLOAD_FAILED": http.StatusInternalServerError,
	"RENDER_FAILED": http.StatusInternalServerError,

	// Input errors -> 400 Bad Request
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	"TOKEN_EXPIRED":        http.StatusBadRequest,
	"EMPTY_CART":           http.StatusBadRequest,
	"CART_CHECKED_OUT":     http.StatusBadRequest,
	"CART_NOT_CHECKED_OUT": http.StatusBadRequest,
	"PRODUCT_UNAVAILABLE":  http.StatusBadRequest,
	"ORDER_NOT_PENDING":    http.StatusBadRequest,
	"ORDER_ALREADY_PAID":   http.StatusBadRequest,
	"EMPTY_ORDER":          http.StatusBadRequest,
	"FILE_TOO_LARGE":       http.StatusBadRequest,
	"STORAGE_DISABLED":     http.StatusBadRequest,
	"IMPORT_DISABLED":      http.StatusBadRequest,
	"IMPORT_FAILED":        http.StatusBadRequest,

	ErrCodePayloadTooLarge: http.StatusRequestEntityTooLarge,

	// Auth errors
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeInvalidCredentials: http.StatusUnauthorized,
	ErrCodeEmailNotVerified:   http.StatusUnauthorized,
	ErrCodeTokenRevoked:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,

	// Resource errors
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeConflict:      http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:      http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:      http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock: http.StatusUnprocessableEntity,

	ErrCodePaymentFailed: http.StatusPaymentRequired,

	// Rate limiting -> 429 Too Many Requests
	ErrCodeRateLimited: http.StatusTooManyRequests,

	// Unconfigured integrations -> 503 Service Unavailable
	ErrCodePaymentsDisabled: http.StatusServiceUnavailable,
	ErrCodePDFDisabled:      http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Codes starting with INVALID_ are input errors; anything else unknown is a 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "INVALID_") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps alternate spellings onto the canonical codes
var LegacyErrorCodeMapping = map[string]string{
	"VALIDATION_ERROR": ErrCodeValidation,
	"ERR_VALIDATION":   ErrCodeValidation,
	"ERR_NOT_FOUND":    ErrCodeNotFound,
	"ERR_INTERNAL":     ErrCodeInternal,
}

// NormalizeErrorCode converts an alternate error code to its canonical form.
// Unknown codes are returned as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
