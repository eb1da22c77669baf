package handler

import (
	"strconv"
	"time"

	"campus-credit-ledger/internal/adapter/http/dto"
	"campus-credit-ledger/internal/core/ports"
	"campus-credit-ledger/pkg/apperror"
	"campus-credit-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// RateHandler exposes read-only conversion queries to wallet holders.
// Rate mutation lives on the admin surface.
type RateHandler struct {
	rates ports.RateStore
}

func NewRateHandler(rates ports.RateStore) *RateHandler {
	return &RateHandler{rates: rates}
}

// Convert handles GET /api/v1/rates/convert. Exactly one of credits or
// reference is given; the other side is computed at the rate in effect at
// the optional at timestamp (RFC3339, defaults to now).
func (h *RateHandler) Convert(c *gin.Context) {
	at := time.Now().UTC()
	if raw := c.Query("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, apperror.Validation("at must be an RFC3339 timestamp"))
			return
		}
		at = parsed.UTC()
	}

	creditsRaw, referenceRaw := c.Query("credits"), c.Query("reference")
	if (creditsRaw == "") == (referenceRaw == "") {
		response.Error(c, apperror.Validation("exactly one of credits or reference is required"))
		return
	}

	if creditsRaw != "" {
		credits, err := strconv.ParseInt(creditsRaw, 10, 64)
		if err != nil || credits < 0 {
			response.Error(c, apperror.Validation("credits must be a non-negative integer"))
			return
		}
		reference, err := h.rates.Convert(c.Request.Context(), credits, at)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, dto.ConvertResponse{
			Credits: credits,
			// Fixed two-place rendering: String() drops trailing zeros.
			Reference: reference.StringFixed(2),
			At:        at.Format(time.RFC3339),
		})
		return
	}

	reference, err := decimal.NewFromString(referenceRaw)
	if err != nil || reference.IsNegative() {
		response.Error(c, apperror.Validation("reference must be a non-negative decimal"))
		return
	}
	credits, err := h.rates.ConvertToCredits(c.Request.Context(), reference, at)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ConvertResponse{
		Credits:   credits,
		Reference: reference.StringFixed(2),
		At:        at.Format(time.RFC3339),
	})
}
