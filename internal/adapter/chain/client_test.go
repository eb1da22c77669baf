package chain

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"campus-credit-ledger/internal/core/ports"
	"campus-credit-ledger/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "chain-signing-secret"

func newTestClient(serverURL string) *Client {
	return NewClient(serverURL, testSecret, http.DefaultClient, zerolog.Nop())
}

func sampleOp() ports.ChainOp {
	return ports.ChainOp{
		Type:           ports.ChainOpTransfer,
		FromAddress:    "0xaaa",
		ToAddress:      "0xbbb",
		Amount:         1500,
		IdempotencyKey: "tx-123",
	}
}

func TestClient_Submit_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/operations", r.URL.Path)
		assert.Equal(t, "tx-123", r.Header.Get("Idempotency-Key"))

		var op ports.ChainOp
		require.NoError(t, json.NewDecoder(r.Body).Decode(&op))
		// Content hash must verify against the shared secret.
		canonical := fmt.Sprintf("%s|%s|%s|%d|%s",
			op.Type, op.FromAddress, op.ToAddress, op.Amount, op.IdempotencyKey)
		mac := hmac.New(sha256.New, []byte(testSecret))
		mac.Write([]byte(canonical))
		assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), op.ContentHash)

		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"pending_ref": "pend-42"}) //nolint:errcheck
	}))
	defer srv.Close()

	ref, err := newTestClient(srv.URL).Submit(context.Background(), sampleOp())
	require.NoError(t, err)
	assert.Equal(t, "pend-42", ref)
}

func TestClient_Submit_ServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Submit(context.Background(), sampleOp())
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CHN_001", appErr.Code)
	assert.True(t, appErr.Retryable)
}

func TestClient_Submit_RejectionIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Submit(context.Background(), sampleOp())
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CHN_002", appErr.Code)
	assert.False(t, appErr.Retryable)
}

func TestClient_Submit_NetworkErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // refuse connections

	_, err := newTestClient(srv.URL).Submit(context.Background(), sampleOp())
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CHN_001", appErr.Code)
	assert.True(t, appErr.Retryable)
}

func TestClient_PollStatus(t *testing.T) {
	tests := []struct {
		name   string
		status string
		txRef  string
		want   ports.ChainStatus
	}{
		{"pending", "PENDING", "", ports.ChainStatusPending},
		{"confirmed", "CONFIRMED", "chain-tx-1", ports.ChainStatusConfirmed},
		{"failed", "FAILED", "", ports.ChainStatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/operations/pend-42", r.URL.Path)
				json.NewEncoder(w).Encode(map[string]string{ //nolint:errcheck
					"status": tt.status,
					"tx_ref": tt.txRef,
				})
			}))
			defer srv.Close()

			result, err := newTestClient(srv.URL).PollStatus(context.Background(), "pend-42")
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Status)
			assert.Equal(t, tt.txRef, result.TxRef)
		})
	}
}

func TestClient_PollStatus_UnknownStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "EXPLODED"}) //nolint:errcheck
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).PollStatus(context.Background(), "pend-42")
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CHN_002", appErr.Code)
}

func TestClient_GetOnChainBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/addresses/0xaaa/balance", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]int64{"balance": 7500}) //nolint:errcheck
	}))
	defer srv.Close()

	balance, err := newTestClient(srv.URL).GetOnChainBalance(context.Background(), "0xaaa")
	require.NoError(t, err)
	assert.Equal(t, int64(7500), balance)
}

func TestClient_Verify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/transactions/known-ref" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	ok, err := client.Verify(context.Background(), "known-ref")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.Verify(context.Background(), "unknown-ref")
	require.NoError(t, err)
	assert.False(t, ok)
}
