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

// LedgerHandler handles ledger operation endpoints.
type LedgerHandler struct {
	ledgerSvc ports.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerSvc ports.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerSvc: ledgerSvc}
}

// Mint handles POST /api/v1/ledger/mint.
func (h *LedgerHandler) Mint(c *gin.Context) {
	var req dto.MintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	toID, err := uuid.Parse(req.ToWalletID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid to_wallet_id"))
		return
	}

	result, err := h.ledgerSvc.Mint(c.Request.Context(), ports.MintRequest{
		ToWalletID: toID,
		Amount:     req.Amount,
		Reason:     req.Reason,
		DedupKey:   req.DedupKey,
		Type:       domain.TransactionType(req.Type),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTransactionResponse(result))
}

// Transfer handles POST /api/v1/ledger/transfer.
func (h *LedgerHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	fromID, err := uuid.Parse(req.FromWalletID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid from_wallet_id"))
		return
	}
	toID, err := uuid.Parse(req.ToWalletID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid to_wallet_id"))
		return
	}

	result, err := h.ledgerSvc.Transfer(c.Request.Context(), ports.TransferRequest{
		FromWalletID: fromID,
		ToWalletID:   toID,
		Amount:       req.Amount,
		Reason:       req.Reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTransactionResponse(result))
}

// Burn handles POST /api/v1/ledger/burn.
func (h *LedgerHandler) Burn(c *gin.Context) {
	var req dto.BurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	fromID, err := uuid.Parse(req.FromWalletID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid from_wallet_id"))
		return
	}

	result, err := h.ledgerSvc.Burn(c.Request.Context(), ports.BurnRequest{
		FromWalletID: fromID,
		Amount:       req.Amount,
		Reason:       req.Reason,
		Type:         domain.TransactionType(req.Type),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTransactionResponse(result))
}

// GetTransaction handles GET /api/v1/ledger/transactions/:id.
func (h *LedgerHandler) GetTransaction(c *gin.Context) {
	txID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid transaction id"))
		return
	}

	result, err := h.ledgerSvc.GetTransaction(c.Request.Context(), txID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result == nil {
		response.Error(c, apperror.ErrNotFound("transaction"))
		return
	}

	response.OK(c, toTransactionResponse(result))
}

// Cancel handles POST /api/v1/ledger/transactions/:id/cancel.
func (h *LedgerHandler) Cancel(c *gin.Context) {
	txID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid transaction id"))
		return
	}

	result, err := h.ledgerSvc.Cancel(c.Request.Context(), txID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toTransactionResponse(result))
}

// toTransactionResponse converts domain.Transaction to DTO.
func toTransactionResponse(tx *domain.Transaction) dto.TransactionResponse {
	resp := dto.TransactionResponse{
		ID:        tx.ID.String(),
		Type:      string(tx.Type),
		Amount:    tx.Amount,
		Status:    string(tx.Status),
		Reason:    tx.Reason,
		CreatedAt: tx.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if tx.FromWalletID != nil {
		s := tx.FromWalletID.String()
		resp.FromWalletID = &s
	}
	if tx.ToWalletID != nil {
		s := tx.ToWalletID.String()
		resp.ToWalletID = &s
	}
	resp.ChainTxRef = tx.ChainTxRef
	if tx.ConfirmedAt != nil {
		s := tx.ConfirmedAt.Format("2006-01-02T15:04:05Z07:00")
		resp.ConfirmedAt = &s
	}
	return resp
}
