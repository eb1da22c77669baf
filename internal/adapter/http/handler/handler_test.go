package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campus-credit-ledger/internal/adapter/http/dto"
	"campus-credit-ledger/internal/core/domain"
	"campus-credit-ledger/internal/core/ports"
	"campus-credit-ledger/internal/core/ports/mocks"
	"campus-credit-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func postJSON(t *testing.T, body interface{}) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	c.Request.Header.Set("Content-Type", "application/json")
	return w, c
}

func dataOf(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "response has no data envelope: %s", w.Body.String())
	return data
}

// --- Ledger Handler Tests ---

func TestMint_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewLedgerHandler(mockLedger)

	toID := uuid.New()
	dedupKey := "event-42:orientation"
	confirmed := &domain.Transaction{
		ID:         uuid.New(),
		Type:       domain.TransactionTypeReward,
		ToWalletID: &toID,
		Amount:     500,
		Status:     domain.TransactionStatusConfirmed,
		CreatedAt:  time.Now().UTC(),
	}

	mockLedger.EXPECT().Mint(gomock.Any(), ports.MintRequest{
		ToWalletID: toID,
		Amount:     500,
		Reason:     "orientation reward",
		DedupKey:   &dedupKey,
		Type:       domain.TransactionTypeReward,
	}).Return(confirmed, nil)

	w, c := postJSON(t, dto.MintRequest{
		ToWalletID: toID.String(),
		Amount:     500,
		Reason:     "orientation reward",
		DedupKey:   &dedupKey,
		Type:       "REWARD",
	})

	h.Mint(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, confirmed.ID.String(), data["id"])
	assert.Equal(t, "CONFIRMED", data["status"])
}

func TestMint_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewLedgerHandler(mocks.NewMockLedgerService(ctrl))

	// Missing amount => binding error
	w, c := postJSON(t, map[string]interface{}{"to_wallet_id": uuid.New().String()})

	h.Mint(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMint_DuplicateReward(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewLedgerHandler(mockLedger)

	mockLedger.EXPECT().Mint(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrDuplicateReward())

	key := "event-42:duplicated"
	w, c := postJSON(t, dto.MintRequest{
		ToWalletID: uuid.New().String(),
		Amount:     500,
		DedupKey:   &key,
	})

	h.Mint(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "LED_003", resp["error_code"])
}

func TestTransfer_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewLedgerHandler(mockLedger)

	fromID := uuid.New()
	toID := uuid.New()
	confirmed := &domain.Transaction{
		ID:           uuid.New(),
		Type:         domain.TransactionTypeTransfer,
		FromWalletID: &fromID,
		ToWalletID:   &toID,
		Amount:       1200,
		Status:       domain.TransactionStatusConfirmed,
		CreatedAt:    time.Now().UTC(),
	}

	mockLedger.EXPECT().Transfer(gomock.Any(), ports.TransferRequest{
		FromWalletID: fromID,
		ToWalletID:   toID,
		Amount:       1200,
		Reason:       "lunch",
	}).Return(confirmed, nil)

	w, c := postJSON(t, dto.TransferRequest{
		FromWalletID: fromID.String(),
		ToWalletID:   toID.String(),
		Amount:       1200,
		Reason:       "lunch",
	})

	h.Transfer(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, fromID.String(), data["from_wallet_id"])
	assert.Equal(t, toID.String(), data["to_wallet_id"])
}

func TestTransfer_InsufficientFunds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewLedgerHandler(mockLedger)

	mockLedger.EXPECT().Transfer(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrInsufficientFunds())

	w, c := postJSON(t, dto.TransferRequest{
		FromWalletID: uuid.New().String(),
		ToWalletID:   uuid.New().String(),
		Amount:       99_999,
	})

	h.Transfer(c)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "LED_001", resp["error_code"])
}

func TestBurn_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewLedgerHandler(mockLedger)

	fromID := uuid.New()
	confirmed := &domain.Transaction{
		ID:           uuid.New(),
		Type:         domain.TransactionTypePurchase,
		FromWalletID: &fromID,
		Amount:       300,
		Status:       domain.TransactionStatusConfirmed,
		CreatedAt:    time.Now().UTC(),
	}

	mockLedger.EXPECT().Burn(gomock.Any(), ports.BurnRequest{
		FromWalletID: fromID,
		Amount:       300,
		Reason:       "cafeteria",
		Type:         domain.TransactionTypePurchase,
	}).Return(confirmed, nil)

	w, c := postJSON(t, dto.BurnRequest{
		FromWalletID: fromID.String(),
		Amount:       300,
		Reason:       "cafeteria",
		Type:         "PURCHASE",
	})

	h.Burn(c)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestGetTransaction_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewLedgerHandler(mockLedger)

	txID := uuid.New()
	mockLedger.EXPECT().GetTransaction(gomock.Any(), txID).Return(nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: txID.String()}}

	h.GetTransaction(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancel_InvalidState(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewLedgerHandler(mockLedger)

	txID := uuid.New()
	mockLedger.EXPECT().Cancel(gomock.Any(), txID).
		Return(nil, apperror.ErrInvalidStateTransition("CONFIRMED", "CANCELLED"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: txID.String()}}

	h.Cancel(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

// --- Wallet Handler Tests ---

func TestProvision_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockWalletRegistry(ctrl)
	h := NewWalletHandler(mockRegistry)

	ownerID := uuid.New()
	wallet := &domain.Wallet{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		ChainAddress:  "0x1234567890abcdef1234567890abcdef12345678",
		CachedBalance: 0,
		Status:        domain.WalletStatusActive,
		CreatedAt:     time.Now().UTC(),
	}
	mockRegistry.EXPECT().Provision(gomock.Any(), ownerID).Return(wallet, nil)

	w, c := postJSON(t, dto.ProvisionWalletRequest{OwnerID: ownerID.String()})

	h.Provision(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, wallet.ID.String(), data["id"])
	assert.Equal(t, wallet.ChainAddress, data["chain_address"])
	// Key material must never appear in responses
	assert.NotContains(t, w.Body.String(), "ciphertext")
	assert.NotContains(t, w.Body.String(), "key_")
}

func TestGetBalance_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockWalletRegistry(ctrl)
	h := NewWalletHandler(mockRegistry)

	walletID := uuid.New()
	mockRegistry.EXPECT().GetBalance(gomock.Any(), walletID).Return(int64(4200), nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: walletID.String()}}

	h.GetBalance(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, float64(4200), data["balance"])
}

func TestGetWallet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockWalletRegistry(ctrl)
	h := NewWalletHandler(mockRegistry)

	walletID := uuid.New()
	mockRegistry.EXPECT().GetWallet(gomock.Any(), walletID).Return(nil, apperror.ErrNotFound("wallet"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: walletID.String()}}

	h.GetWallet(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRemainingLimit_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockWalletRegistry(ctrl)
	h := NewWalletHandler(mockRegistry)

	walletID := uuid.New()
	mockRegistry.EXPECT().RemainingDailyLimit(gomock.Any(), walletID).Return(int64(150_000), nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: walletID.String()}}

	h.GetRemainingLimit(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, float64(150_000), data["remaining_daily_limit"])
}

// --- Admin Handler Tests ---

func newAdminHandler(ctrl *gomock.Controller) (*AdminHandler, *mocks.MockWalletRegistry, *mocks.MockRateStore, *mocks.MockAlertRepository, *mocks.MockReconciler, *mocks.MockTokenService) {
	registry := mocks.NewMockWalletRegistry(ctrl)
	rateStore := mocks.NewMockRateStore(ctrl)
	alertRepo := mocks.NewMockAlertRepository(ctrl)
	reconciler := mocks.NewMockReconciler(ctrl)
	tokenSvc := mocks.NewMockTokenService(ctrl)
	h := NewAdminHandler(registry, rateStore, alertRepo, reconciler, tokenSvc)
	return h, registry, rateStore, alertRepo, reconciler, tokenSvc
}

func TestSetWalletStatus_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h, registry, _, _, _, _ := newAdminHandler(ctrl)

	walletID := uuid.New()
	registry.EXPECT().SetStatus(gomock.Any(), walletID, domain.WalletStatusBlacklisted).Return(nil)

	w, c := postJSON(t, dto.SetWalletStatusRequest{Status: "BLACKLISTED"})
	c.Params = gin.Params{{Key: "id", Value: walletID.String()}}

	h.SetWalletStatus(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetRate_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h, _, rateStore, _, _, _ := newAdminHandler(ctrl)

	effectiveFrom := time.Now().UTC().Truncate(time.Second)
	rate := decimal.RequireFromString("0.012")
	rateStore.EXPECT().SetRate(gomock.Any(), rate, effectiveFrom).Return(&domain.ExchangeRate{
		ID:            uuid.New(),
		Rate:          rate,
		EffectiveFrom: effectiveFrom,
		CreatedAt:     effectiveFrom,
	}, nil)

	w, c := postJSON(t, dto.SetRateRequest{
		Rate:          "0.012",
		EffectiveFrom: effectiveFrom.Format(time.RFC3339),
	})

	h.SetRate(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, "0.012", data["rate"])
}

func TestSetRate_NonMonotonic(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h, _, rateStore, _, _, _ := newAdminHandler(ctrl)

	rateStore.EXPECT().SetRate(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrNonMonotonicRate())

	w, c := postJSON(t, dto.SetRateRequest{
		Rate:          "0.01",
		EffectiveFrom: time.Now().UTC().Add(-48 * time.Hour).Format(time.RFC3339),
	})

	h.SetRate(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "RATE_002", resp["error_code"])
}

func TestListAlerts_FilteredByStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h, _, _, alertRepo, _, _ := newAdminHandler(ctrl)

	pending := domain.AlertStatusPending
	alert := domain.FraudAlert{
		ID:         uuid.New(),
		WalletID:   uuid.New(),
		AlertType:  domain.AlertTypeVelocity,
		Severity:   domain.SeverityMedium,
		Status:     pending,
		Detail:     "11 transfers in rolling window",
		DetectedAt: time.Now().UTC(),
	}
	alertRepo.EXPECT().List(gomock.Any(), ports.AlertListParams{
		Status:   &pending,
		Page:     1,
		PageSize: 20,
	}).Return([]domain.FraudAlert{alert}, int64(1), nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?status=PENDING", nil)

	h.ListAlerts(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, float64(1), data["total"])
}

func TestReconcileWallet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h, _, _, _, reconciler, _ := newAdminHandler(ctrl)

	walletID := uuid.New()
	reconciler.EXPECT().ReconcileWallet(gomock.Any(), walletID).Return(ports.ReconcileRepaired, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: walletID.String()}}

	h.ReconcileWallet(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, "REPAIRED", data["outcome"])
}

func TestIssueToken_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h, _, _, _, _, tokenSvc := newAdminHandler(ctrl)

	subjectID := uuid.New()
	expiry := time.Now().Add(24 * time.Hour)
	tokenSvc.EXPECT().Generate(subjectID, "student").Return("jwt-token-123", expiry, nil)

	w, c := postJSON(t, dto.TokenRequest{SubjectID: subjectID.String(), Role: "student"})

	h.IssueToken(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, "jwt-token-123", data["token"])
}

// --- Rate Handler Tests ---

func TestConvert_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	rateStore := mocks.NewMockRateStore(ctrl)
	h := NewRateHandler(rateStore)

	// A whole-number result must still render with two decimal places.
	rateStore.EXPECT().Convert(gomock.Any(), int64(500), gomock.Any()).
		Return(decimal.NewFromInt(5), nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?credits=500", nil)

	h.Convert(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, float64(500), data["credits"])
	assert.Equal(t, "5.00", data["reference"])
}

func TestConvert_HistoricalLookup(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	rateStore := mocks.NewMockRateStore(ctrl)
	h := NewRateHandler(rateStore)

	at, err := time.Parse(time.RFC3339, "2026-03-01T00:00:00Z")
	require.NoError(t, err)

	rateStore.EXPECT().Convert(gomock.Any(), int64(100), at).
		Return(decimal.RequireFromString("1.00"), nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?credits=100&at=2026-03-01T00:00:00Z", nil)

	h.Convert(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, "2026-03-01T00:00:00Z", data["at"])
}

func TestConvert_InvalidCredits(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewRateHandler(mocks.NewMockRateStore(ctrl))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?credits=-5", nil)

	h.Convert(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConvert_NoRateDefined(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	rateStore := mocks.NewMockRateStore(ctrl)
	h := NewRateHandler(rateStore)

	rateStore.EXPECT().Convert(gomock.Any(), int64(100), gomock.Any()).
		Return(decimal.Zero, apperror.ErrNoRateDefined())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?credits=100", nil)

	h.Convert(c)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "RATE_001", resp["error_code"])
}

func TestConvert_ReferenceToCredits(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	rateStore := mocks.NewMockRateStore(ctrl)
	h := NewRateHandler(rateStore)

	rateStore.EXPECT().ConvertToCredits(gomock.Any(), decimal.RequireFromString("10.00"), gomock.Any()).
		Return(int64(500), nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?reference=10.00", nil)

	h.Convert(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, float64(500), data["credits"])
}

func TestConvert_BothParamsRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewRateHandler(mocks.NewMockRateStore(ctrl))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?credits=100&reference=1.00", nil)

	h.Convert(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
