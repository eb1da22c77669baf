package dto

// ProvisionWalletRequest is the request body for wallet provisioning.
type ProvisionWalletRequest struct {
	OwnerID string `json:"owner_id" binding:"required,uuid"`
}

// WalletResponse is the response body for wallet queries.
type WalletResponse struct {
	ID               string `json:"id"`
	OwnerID          string `json:"owner_id"`
	ChainAddress     string `json:"chain_address"`
	CachedBalance    int64  `json:"cached_balance"`
	Status           string `json:"status"`
	DailyTransferred int64  `json:"daily_transferred"`
	CreatedAt        string `json:"created_at"`
}

// BalanceResponse is the response for balance queries.
type BalanceResponse struct {
	WalletID string `json:"wallet_id"`
	Balance  int64  `json:"balance"`
}

// RemainingLimitResponse is the response for daily limit queries.
type RemainingLimitResponse struct {
	WalletID  string `json:"wallet_id"`
	Remaining int64  `json:"remaining_daily_limit"`
}

// SetWalletStatusRequest is the admin request to change a wallet's status.
type SetWalletStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// MintRequest is the request body for minting or issuing rewards.
type MintRequest struct {
	ToWalletID string  `json:"to_wallet_id" binding:"required,uuid"`
	Amount     int64   `json:"amount" binding:"required,gt=0"`
	Reason     string  `json:"reason" binding:"max=500"`
	DedupKey   *string `json:"dedup_key,omitempty"`
	Type       string  `json:"type,omitempty"` // MINT (default) or REWARD
}

// TransferRequest is the request body for wallet-to-wallet transfers.
type TransferRequest struct {
	FromWalletID string `json:"from_wallet_id" binding:"required,uuid"`
	ToWalletID   string `json:"to_wallet_id" binding:"required,uuid"`
	Amount       int64  `json:"amount" binding:"required,gt=0"`
	Reason       string `json:"reason" binding:"max=500"`
}

// BurnRequest is the request body for burning credits.
type BurnRequest struct {
	FromWalletID string `json:"from_wallet_id" binding:"required,uuid"`
	Amount       int64  `json:"amount" binding:"required,gt=0"`
	Reason       string `json:"reason" binding:"max=500"`
	Type         string `json:"type,omitempty"` // BURN (default) or PURCHASE
}

// TransactionResponse is the response body for ledger operations.
type TransactionResponse struct {
	ID           string  `json:"id"`
	Type         string  `json:"type"`
	FromWalletID *string `json:"from_wallet_id,omitempty"`
	ToWalletID   *string `json:"to_wallet_id,omitempty"`
	Amount       int64   `json:"amount"`
	Status       string  `json:"status"`
	ChainTxRef   *string `json:"chain_tx_ref,omitempty"`
	Reason       string  `json:"reason,omitempty"`
	CreatedAt    string  `json:"created_at"`
	ConfirmedAt  *string `json:"confirmed_at,omitempty"`
}

// SetRateRequest is the admin request to append a new exchange rate interval.
type SetRateRequest struct {
	Rate          string `json:"rate" binding:"required"`           // decimal string, reference units per credit
	EffectiveFrom string `json:"effective_from" binding:"required"` // RFC3339
}

// RateResponse is one exchange rate interval.
type RateResponse struct {
	ID            string  `json:"id"`
	Rate          string  `json:"rate"`
	EffectiveFrom string  `json:"effective_from"`
	EffectiveTo   *string `json:"effective_to,omitempty"`
}

// ConvertResponse is the response for a credit conversion query.
type ConvertResponse struct {
	Credits   int64  `json:"credits"`
	Reference string `json:"reference"`
	At        string `json:"at"`
}

// AlertResponse is one fraud alert in the review workflow.
type AlertResponse struct {
	ID            string  `json:"id"`
	WalletID      string  `json:"wallet_id"`
	TransactionID *string `json:"transaction_id,omitempty"`
	AlertType     string  `json:"alert_type"`
	Severity      string  `json:"severity"`
	Status        string  `json:"status"`
	Detail        string  `json:"detail"`
	DetectedAt    string  `json:"detected_at"`
	Resolution    *string `json:"resolution,omitempty"`
}

// AlertListResponse wraps a paginated alert list.
type AlertListResponse struct {
	Alerts   []AlertResponse `json:"alerts"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// UpdateAlertRequest moves an alert through the review workflow.
type UpdateAlertRequest struct {
	Status     string  `json:"status" binding:"required"`
	Resolution *string `json:"resolution,omitempty"`
}

// ReconcileResponse reports the outcome of an on-demand reconciliation.
type ReconcileResponse struct {
	WalletID string `json:"wallet_id"`
	Outcome  string `json:"outcome"`
}

// TokenRequest is the request body for issuing an API token.
type TokenRequest struct {
	SubjectID string `json:"subject_id" binding:"required,uuid"`
	Role      string `json:"role" binding:"required,oneof=student merchant admin"`
}

// TokenResponse is the response body for a freshly issued token.
type TokenResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}
