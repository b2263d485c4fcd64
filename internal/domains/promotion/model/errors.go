package model

import (
	"errors"
	"net/http"
)

var (
	ErrPromotionNotFound   = errors.New("promotion not found")
	ErrVersionConflict     = errors.New("promotion was modified concurrently")
	ErrDuplicateRedemption = errors.New("promotion already redeemed for this order")
)

// ErrorCode is the structured reason a promotion did not apply.
type ErrorCode string

const (
	// Definition errors
	ErrCodeInvalidDefinition ErrorCode = "INVALID_PROMOTION_DEFINITION"

	// Coupon lookup errors, each with its own storefront message
	ErrCodeCodeNotFound     ErrorCode = "CODE_NOT_FOUND"
	ErrCodeCodeExpired      ErrorCode = "CODE_EXPIRED"
	ErrCodeCodeNotYetActive ErrorCode = "CODE_NOT_YET_ACTIVE"
	ErrCodeCodeInactive     ErrorCode = "CODE_INACTIVE"

	// Cart errors
	ErrCodeThresholdNotMet    ErrorCode = "THRESHOLD_NOT_MET"
	ErrCodeUsageLimitExceeded ErrorCode = "USAGE_LIMIT_EXCEEDED"
	ErrCodeNotApplicable      ErrorCode = "NOT_APPLICABLE_TO_CART"
	ErrCodeNotCombinable      ErrorCode = "NOT_COMBINABLE"

	// Commit-time errors
	ErrCodeDiscountConflict ErrorCode = "DISCOUNT_CONFLICT"

	// Request errors
	ErrCodeValidationFailed ErrorCode = "VAL_INVALID_INPUT"
	ErrCodeInternalError    ErrorCode = "SYS_INTERNAL_ERROR"
)

// DefaultMessage is the storefront text used when no specific message is given.
func (c ErrorCode) DefaultMessage() string {
	switch c {
	case ErrCodeInvalidDefinition:
		return "This promotion is misconfigured"
	case ErrCodeCodeNotFound:
		return "This code does not exist"
	case ErrCodeCodeExpired:
		return "This code has expired"
	case ErrCodeCodeNotYetActive:
		return "This code is not active yet"
	case ErrCodeCodeInactive:
		return "This code has been disabled"
	case ErrCodeThresholdNotMet:
		return "Your cart does not meet the minimum for this promotion"
	case ErrCodeUsageLimitExceeded:
		return "This promotion has reached its usage limit"
	case ErrCodeNotApplicable:
		return "This promotion does not apply to the items in your cart"
	case ErrCodeNotCombinable:
		return "This promotion cannot be combined with a promotion already applied"
	case ErrCodeDiscountConflict:
		return "This promotion could no longer be redeemed"
	case ErrCodeValidationFailed:
		return "Invalid input"
	}
	return "Internal error"
}

// HTTPStatus maps a reason to the status the HTTP adapter responds with.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrCodeCodeNotFound:
		return http.StatusNotFound
	case ErrCodeDiscountConflict:
		return http.StatusConflict
	case ErrCodeInternalError:
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

// AppError carries a reason code up to the caller instead of an opaque error.
type AppError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Is matches any *AppError with the same code, so callers can write
// errors.Is(err, model.NewAppError(model.ErrCodeDiscountConflict, "")).
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// NewAppError builds an AppError, falling back to the code's default message.
func NewAppError(code ErrorCode, message string) *AppError {
	if message == "" {
		message = code.DefaultMessage()
	}
	return &AppError{Code: code, Message: message}
}

// WithDetail attaches one detail entry and returns the same error.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrDiscountConflict is the sentinel for a lost redemption race.
var ErrDiscountConflict = &AppError{Code: ErrCodeDiscountConflict, Message: ErrCodeDiscountConflict.DefaultMessage()}

// CodeOf extracts the reason code, or ErrCodeInternalError for foreign errors.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalError
}
