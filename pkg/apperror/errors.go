package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses. Code is stable
// and machine-readable so callers can distinguish retry-later from
// never-retry from requires-human-review.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Retryable  bool   `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Ledger Business Rules (LED) ----

func ErrInsufficientFunds() *AppError {
	return New("LED_001", "Insufficient balance in wallet", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("LED_002", "Invalid amount", http.StatusBadRequest)
}

func ErrDuplicateReward() *AppError {
	return New("LED_003", "Reward with this dedup key already issued", http.StatusConflict)
}

func ErrNotFound(entity string) *AppError {
	return New("LED_004", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrLimitExceeded() *AppError {
	return New("LED_005", "Amount exceeds the single-transaction cap", http.StatusUnprocessableEntity)
}

func ErrWalletBlacklisted() *AppError {
	return New("LED_006", "Wallet is blacklisted", http.StatusForbidden)
}

func ErrWalletInactive() *AppError {
	return New("LED_007", "Wallet is inactive", http.StatusForbidden)
}

func ErrFraudBlocked() *AppError {
	return New("LED_008", "Operation denied by fraud screening", http.StatusForbidden)
}

func ErrInvalidStateTransition(from, to string) *AppError {
	return New("LED_009", fmt.Sprintf("illegal transaction transition %s -> %s", from, to), http.StatusConflict)
}

// ---- Exchange Rates (RATE) ----

func ErrNoRateDefined() *AppError {
	return New("RATE_001", "No exchange rate covers the requested time", http.StatusNotFound)
}

func ErrNonMonotonicRate() *AppError {
	return New("RATE_002", "Rate effective time precedes the latest interval", http.StatusConflict)
}

// ---- Chain Bridge (CHN) ----

// ErrChainUnavailable marks a transient chain failure. Safe to retry with the
// same idempotency key.
func ErrChainUnavailable(err error) *AppError {
	e := Wrap("CHN_001", "Blockchain temporarily unavailable", http.StatusServiceUnavailable, err)
	e.Retryable = true
	return e
}

// ErrChainRejected marks a permanent chain rejection. Never retried.
func ErrChainRejected(err error) *AppError {
	return Wrap("CHN_002", "Blockchain rejected the operation", http.StatusBadGateway, err)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrAdminRequired() *AppError {
	return New("AUTH_002", "Elevated role required", http.StatusForbidden)
}

// ---- Rate Limiting (RATE_LIMIT) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_429", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrCustodyFailure(err error) *AppError {
	return Wrap("SYS_003", "Key custody failure", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a LED_002-style validation error with a custom message.
func Validation(message string) *AppError {
	return New("LED_002", message, http.StatusBadRequest)
}
