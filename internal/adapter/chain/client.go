package chain

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"campus-credit-ledger/internal/core/ports"
	"campus-credit-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements ports.ChainBridge against the chain node's HTTP API.
// Network failures and 5xx answers map to transient errors; 4xx answers to
// permanent rejections. Duplicate submission is harmless because the node
// keys operations by the Idempotency-Key header.
type Client struct {
	baseURL       string
	signingSecret string
	httpClient    HTTPClient
	log           zerolog.Logger
}

// NewClient creates a new chain bridge client.
func NewClient(baseURL, signingSecret string, httpClient HTTPClient, log zerolog.Logger) *Client {
	return &Client{
		baseURL:       baseURL,
		signingSecret: signingSecret,
		httpClient:    httpClient,
		log:           log,
	}
}

type submitResponse struct {
	PendingRef string `json:"pending_ref"`
}

type statusResponse struct {
	Status string `json:"status"`
	TxRef  string `json:"tx_ref"`
}

type balanceResponse struct {
	Balance int64 `json:"balance"`
}

// Submit sends one signed operation to the node.
func (c *Client) Submit(ctx context.Context, op ports.ChainOp) (string, error) {
	op.ContentHash = c.sign(op)

	body, err := json.Marshal(op)
	if err != nil {
		return "", apperror.InternalError(fmt.Errorf("marshal chain op: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/operations", bytes.NewReader(body))
	if err != nil {
		return "", apperror.InternalError(fmt.Errorf("build chain request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", op.IdempotencyKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperror.ErrChainUnavailable(fmt.Errorf("submit: %w", err))
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := c.checkStatus(resp, "submit"); err != nil {
		return "", err
	}

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apperror.ErrChainUnavailable(fmt.Errorf("decode submit response: %w", err))
	}
	if out.PendingRef == "" {
		return "", apperror.ErrChainRejected(fmt.Errorf("node returned no pending ref"))
	}
	return out.PendingRef, nil
}

// PollStatus asks the node whether an operation settled.
func (c *Client) PollStatus(ctx context.Context, pendingRef string) (*ports.PollResult, error) {
	resp, err := c.get(ctx, "/operations/"+url.PathEscape(pendingRef))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := c.checkStatus(resp, "poll"); err != nil {
		return nil, err
	}

	var out statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperror.ErrChainUnavailable(fmt.Errorf("decode status response: %w", err))
	}

	switch ports.ChainStatus(out.Status) {
	case ports.ChainStatusPending, ports.ChainStatusConfirmed, ports.ChainStatusFailed:
		return &ports.PollResult{Status: ports.ChainStatus(out.Status), TxRef: out.TxRef}, nil
	default:
		return nil, apperror.ErrChainRejected(fmt.Errorf("unknown chain status %q", out.Status))
	}
}

// GetOnChainBalance reads the settled balance of an address.
func (c *Client) GetOnChainBalance(ctx context.Context, address string) (int64, error) {
	resp, err := c.get(ctx, "/addresses/"+url.PathEscape(address)+"/balance")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := c.checkStatus(resp, "balance"); err != nil {
		return 0, err
	}

	var out balanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, apperror.ErrChainUnavailable(fmt.Errorf("decode balance response: %w", err))
	}
	return out.Balance, nil
}

// Verify reports whether a confirmed transaction reference exists on chain.
func (c *Client) Verify(ctx context.Context, txRef string) (bool, error) {
	resp, err := c.get(ctx, "/transactions/"+url.PathEscape(txRef))
	if err != nil {
		return false, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if err := c.checkStatus(resp, "verify"); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("build chain request: %w", err))
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperror.ErrChainUnavailable(err)
	}
	return resp, nil
}

// checkStatus drains the body on failure so the connection can be reused.
func (c *Client) checkStatus(resp *http.Response, action string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	err := fmt.Errorf("%s: node answered %d: %s", action, resp.StatusCode, body)
	if resp.StatusCode >= 500 {
		return apperror.ErrChainUnavailable(err)
	}
	return apperror.ErrChainRejected(err)
}

// sign computes the HMAC-SHA256 content hash over the operation fields.
// Canonical format: TYPE|FROM|TO|AMOUNT|IDEMPOTENCY_KEY
func (c *Client) sign(op ports.ChainOp) string {
	canonical := fmt.Sprintf("%s|%s|%s|%d|%s",
		op.Type, op.FromAddress, op.ToAddress, op.Amount, op.IdempotencyKey)
	mac := hmac.New(sha256.New, []byte(c.signingSecret))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}
