package handler

import (
	"campus-credit-ledger/internal/adapter/http/dto"
	"campus-credit-ledger/internal/core/domain"
	"campus-credit-ledger/internal/core/ports"
	"campus-credit-ledger/pkg/apperror"
	"campus-credit-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles wallet endpoints.
type WalletHandler struct {
	registry ports.WalletRegistry
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(registry ports.WalletRegistry) *WalletHandler {
	return &WalletHandler{registry: registry}
}

// Provision handles POST /api/v1/wallets.
func (h *WalletHandler) Provision(c *gin.Context) {
	var req dto.ProvisionWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid owner_id"))
		return
	}

	wallet, err := h.registry.Provision(c.Request.Context(), ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toWalletResponse(wallet))
}

// GetWallet handles GET /api/v1/wallets/:id.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return
	}

	wallet, err := h.registry.GetWallet(c.Request.Context(), walletID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toWalletResponse(wallet))
}

// GetBalance handles GET /api/v1/wallets/:id/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return
	}

	balance, err := h.registry.GetBalance(c.Request.Context(), walletID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		WalletID: walletID.String(),
		Balance:  balance,
	})
}

// GetRemainingLimit handles GET /api/v1/wallets/:id/remaining-limit.
func (h *WalletHandler) GetRemainingLimit(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return
	}

	remaining, err := h.registry.RemainingDailyLimit(c.Request.Context(), walletID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.RemainingLimitResponse{
		WalletID:  walletID.String(),
		Remaining: remaining,
	})
}

// toWalletResponse converts domain.Wallet to DTO. Key material never leaves
// the custody boundary.
func toWalletResponse(w *domain.Wallet) dto.WalletResponse {
	return dto.WalletResponse{
		ID:               w.ID.String(),
		OwnerID:          w.OwnerID.String(),
		ChainAddress:     w.ChainAddress,
		CachedBalance:    w.CachedBalance,
		Status:           string(w.Status),
		DailyTransferred: w.DailyTransferred,
		CreatedAt:        w.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
