package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("LED_001", "Insufficient funds", http.StatusPaymentRequired),
			expected: "[LED_001] Insufficient funds",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
}

func TestAppError_IsNilUnwrap(t *testing.T) {
	appErr := New("LED_001", "test", http.StatusBadRequest)
	assert.Nil(t, appErr.Unwrap())
}

func TestLedgerErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InsufficientFunds", ErrInsufficientFunds(), "LED_001", 402},
		{"InvalidAmount", ErrInvalidAmount(), "LED_002", 400},
		{"DuplicateReward", ErrDuplicateReward(), "LED_003", 409},
		{"NotFound", ErrNotFound("Wallet"), "LED_004", 404},
		{"LimitExceeded", ErrLimitExceeded(), "LED_005", 422},
		{"WalletBlacklisted", ErrWalletBlacklisted(), "LED_006", 403},
		{"WalletInactive", ErrWalletInactive(), "LED_007", 403},
		{"FraudBlocked", ErrFraudBlocked(), "LED_008", 403},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestRateErrors(t *testing.T) {
	assert.Equal(t, "RATE_001", ErrNoRateDefined().Code)
	assert.Equal(t, 404, ErrNoRateDefined().HTTPStatus)
	assert.Equal(t, "RATE_002", ErrNonMonotonicRate().Code)
	assert.Equal(t, 409, ErrNonMonotonicRate().HTTPStatus)
}

func TestChainErrors_RetrySemantics(t *testing.T) {
	inner := fmt.Errorf("dial tcp: connection refused")

	unavailable := ErrChainUnavailable(inner)
	assert.Equal(t, "CHN_001", unavailable.Code)
	assert.Equal(t, 503, unavailable.HTTPStatus)
	assert.True(t, unavailable.Retryable)
	assert.True(t, errors.Is(unavailable, inner))

	rejected := ErrChainRejected(inner)
	assert.Equal(t, "CHN_002", rejected.Code)
	assert.Equal(t, 502, rejected.HTTPStatus)
	assert.False(t, rejected.Retryable)
}

func TestAuthErrors(t *testing.T) {
	assert.Equal(t, "AUTH_001", ErrInvalidToken().Code)
	assert.Equal(t, 401, ErrInvalidToken().HTTPStatus)
	assert.Equal(t, "AUTH_002", ErrAdminRequired().Code)
	assert.Equal(t, 403, ErrAdminRequired().HTTPStatus)
}

func TestSystemErrors(t *testing.T) {
	inner := fmt.Errorf("pg: connection closed")
	dbErr := ErrDatabaseError(inner)
	assert.Equal(t, "SYS_001", dbErr.Code)
	assert.Equal(t, 500, dbErr.HTTPStatus)
	assert.True(t, errors.Is(dbErr, inner))

	custodyErr := ErrCustodyFailure(inner)
	assert.Equal(t, "SYS_003", custodyErr.Code)
	assert.Equal(t, 500, custodyErr.HTTPStatus)
}

func TestInvalidStateTransition(t *testing.T) {
	err := ErrInvalidStateTransition("CONFIRMED", "FAILED")
	assert.Equal(t, "LED_009", err.Code)
	assert.Contains(t, err.Message, "CONFIRMED")
	assert.Contains(t, err.Message, "FAILED")
}

func TestNotFoundEntity(t *testing.T) {
	err := ErrNotFound("ExchangeRate")
	assert.Contains(t, err.Message, "ExchangeRate")
	assert.Equal(t, "LED_004", err.Code)
}
