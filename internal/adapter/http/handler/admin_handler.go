package handler

import (
	"net/http"
	"strconv"
	"time"

	"campus-credit-ledger/internal/adapter/http/dto"
	"campus-credit-ledger/internal/core/domain"
	"campus-credit-ledger/internal/core/ports"
	"campus-credit-ledger/pkg/apperror"
	"campus-credit-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdminHandler handles privileged endpoints: wallet status, exchange rates,
// fraud alert review, on-demand reconciliation and token issuance.
type AdminHandler struct {
	registry   ports.WalletRegistry
	rateStore  ports.RateStore
	alertRepo  ports.AlertRepository
	reconciler ports.Reconciler
	tokenSvc   ports.TokenService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	registry ports.WalletRegistry,
	rateStore ports.RateStore,
	alertRepo ports.AlertRepository,
	reconciler ports.Reconciler,
	tokenSvc ports.TokenService,
) *AdminHandler {
	return &AdminHandler{
		registry:   registry,
		rateStore:  rateStore,
		alertRepo:  alertRepo,
		reconciler: reconciler,
		tokenSvc:   tokenSvc,
	}
}

// SetWalletStatus handles PUT /api/v1/admin/wallets/:id/status.
func (h *AdminHandler) SetWalletStatus(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return
	}

	var req dto.SetWalletStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.registry.SetStatus(c.Request.Context(), walletID, domain.WalletStatus(req.Status)); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"wallet_id": walletID.String(), "status": req.Status})
}

// SetRate handles POST /api/v1/admin/rates.
func (h *AdminHandler) SetRate(c *gin.Context) {
	var req dto.SetRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	rate, err := decimal.NewFromString(req.Rate)
	if err != nil || !rate.IsPositive() {
		response.Error(c, apperror.Validation("rate must be a positive decimal"))
		return
	}

	effectiveFrom, err := time.Parse(time.RFC3339, req.EffectiveFrom)
	if err != nil {
		response.Error(c, apperror.Validation("effective_from must be RFC3339"))
		return
	}

	result, err := h.rateStore.SetRate(c.Request.Context(), rate, effectiveFrom)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toRateResponse(result))
}

// GetRate handles GET /api/v1/admin/rates?at=<RFC3339>. Missing "at" means now.
func (h *AdminHandler) GetRate(c *gin.Context) {
	at := time.Now().UTC()
	if raw := c.Query("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, apperror.Validation("at must be RFC3339"))
			return
		}
		at = parsed
	}

	rate, err := h.rateStore.GetRateAt(c.Request.Context(), at)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rate": rate.String(),
		"at":   at.Format(time.RFC3339),
	})
}

// ListAlerts handles GET /api/v1/admin/alerts.
func (h *AdminHandler) ListAlerts(c *gin.Context) {
	params := ports.AlertListParams{Page: 1, PageSize: 20}

	if raw := c.Query("wallet_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Error(c, apperror.Validation("invalid wallet_id"))
			return
		}
		params.WalletID = &id
	}
	if raw := c.Query("status"); raw != "" {
		status := domain.AlertStatus(raw)
		params.Status = &status
	}
	if raw := c.Query("severity"); raw != "" {
		severity := domain.AlertSeverity(raw)
		params.Severity = &severity
	}
	if page := queryInt(c, "page"); page > 0 {
		params.Page = page
	}
	if pageSize := queryInt(c, "page_size"); pageSize > 0 {
		params.PageSize = pageSize
	}

	alerts, total, err := h.alertRepo.List(c.Request.Context(), params)
	if err != nil {
		response.Error(c, apperror.ErrDatabaseError(err))
		return
	}

	resp := dto.AlertListResponse{
		Alerts:   make([]dto.AlertResponse, 0, len(alerts)),
		Total:    total,
		Page:     params.Page,
		PageSize: params.PageSize,
	}
	for i := range alerts {
		resp.Alerts = append(resp.Alerts, toAlertResponse(&alerts[i]))
	}

	response.OK(c, resp)
}

// UpdateAlert handles PUT /api/v1/admin/alerts/:id.
func (h *AdminHandler) UpdateAlert(c *gin.Context) {
	alertID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid alert id"))
		return
	}

	var req dto.UpdateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	status := domain.AlertStatus(req.Status)
	switch status {
	case domain.AlertStatusPending, domain.AlertStatusInvestigating,
		domain.AlertStatusResolved, domain.AlertStatusFalsePositive,
		domain.AlertStatusConfirmedFraud:
	default:
		response.Error(c, apperror.Validation("unknown alert status"))
		return
	}

	if err := h.alertRepo.UpdateStatus(c.Request.Context(), alertID, status, req.Resolution); err != nil {
		response.Error(c, apperror.ErrDatabaseError(err))
		return
	}

	alert, err := h.alertRepo.GetByID(c.Request.Context(), alertID)
	if err != nil || alert == nil {
		response.Error(c, apperror.ErrNotFound("alert"))
		return
	}

	response.OK(c, toAlertResponse(alert))
}

// ReconcileWallet handles POST /api/v1/admin/wallets/:id/reconcile.
func (h *AdminHandler) ReconcileWallet(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return
	}

	outcome, err := h.reconciler.ReconcileWallet(c.Request.Context(), walletID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ReconcileResponse{
		WalletID: walletID.String(),
		Outcome:  string(outcome),
	})
}

// IssueToken handles POST /api/v1/admin/tokens. Bootstrap tokens come from
// the identity provider out of band.
func (h *AdminHandler) IssueToken(c *gin.Context) {
	var req dto.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	subjectID, err := uuid.Parse(req.SubjectID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid subject_id"))
		return
	}

	token, expiry, err := h.tokenSvc.Generate(subjectID, req.Role)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	response.Created(c, dto.TokenResponse{
		Token:  token,
		Expiry: expiry.Unix(),
	})
}

func toRateResponse(r *domain.ExchangeRate) dto.RateResponse {
	resp := dto.RateResponse{
		ID:            r.ID.String(),
		Rate:          r.Rate.String(),
		EffectiveFrom: r.EffectiveFrom.Format(time.RFC3339),
	}
	if r.EffectiveTo != nil {
		s := r.EffectiveTo.Format(time.RFC3339)
		resp.EffectiveTo = &s
	}
	return resp
}

func toAlertResponse(a *domain.FraudAlert) dto.AlertResponse {
	resp := dto.AlertResponse{
		ID:         a.ID.String(),
		WalletID:   a.WalletID.String(),
		AlertType:  string(a.AlertType),
		Severity:   string(a.Severity),
		Status:     string(a.Status),
		Detail:     a.Detail,
		DetectedAt: a.DetectedAt.Format(time.RFC3339),
		Resolution: a.Resolution,
	}
	if a.TransactionID != nil {
		s := a.TransactionID.String()
		resp.TransactionID = &s
	}
	return resp
}

func queryInt(c *gin.Context, name string) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return n
}
