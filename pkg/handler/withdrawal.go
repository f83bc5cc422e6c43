package handler

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"withdrawal_settlement/models"
	"withdrawal_settlement/pkg/middleware"
	"withdrawal_settlement/pkg/service"
	"withdrawal_settlement/pkg/validation"
)

type submitWithdrawalInput struct {
	Amount        *decimal.Decimal `json:"amount"`
	Method        models.Method    `json:"method"`
	MethodDetails json.RawMessage  `json:"method_details"`
	Notes         string           `json:"notes" binding:"max=2000"`
}

type submitWithdrawalResponse struct {
	RequestID       string          `json:"request_id"`
	Status          models.Status   `json:"status"`
	TaxFee          decimal.Decimal `json:"tax_fee"`
	MaxWithdrawable decimal.Decimal `json:"max_withdrawable"`
}

// decodeDetails reads method_details for method. A payload tagged with a
// different method decodes as that method, so validation reports the
// mismatch instead of silently dropping fields.
func decodeDetails(method models.Method, raw json.RawMessage) (models.MethodDetails, error) {
	if !method.Valid() || len(bytes.TrimSpace(raw)) == 0 || string(raw) == "null" {
		return models.MethodDetails{}, nil
	}
	var tag struct {
		Method models.Method `json:"method"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return models.MethodDetails{}, err
	}
	if tag.Method.Valid() {
		return models.DecodeMethodDetails(tag.Method, raw)
	}
	return models.DecodeMethodDetails(method, raw)
}

// SubmitWithdrawal body: {amount, method, method_details, notes}
func (h *Handler) SubmitWithdrawal(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	var input submitWithdrawalInput
	if err := c.ShouldBindJSON(&input); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "BadRequest", "invalid request body")
		return
	}
	details, err := decodeDetails(input.Method, input.MethodDetails)
	if err != nil {
		newErrorResponse(c, http.StatusBadRequest, "BadRequest", "invalid method_details")
		return
	}

	req, err := h.service.Submit(c.Request.Context(), service.SubmitInput{
		UserID:  actor.ID,
		Amount:  input.Amount,
		Method:  input.Method,
		Details: details,
		Notes:   input.Notes,
	})
	if err != nil {
		newServiceErrorResponse(c, err)
		return
	}

	limits := validation.ComputeLimits(req.AccountBalanceSnapshot)
	c.JSON(http.StatusCreated, submitWithdrawalResponse{
		RequestID:       req.ID,
		Status:          req.Status,
		TaxFee:          req.TaxFee,
		MaxWithdrawable: limits.MaxWithdrawable,
	})
}

func (h *Handler) GetLimits(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	limits, err := h.service.Limits(c.Request.Context(), actor.ID)
	if err != nil {
		newServiceErrorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"data":               limits,
		"minimum_withdrawal": validation.MinimumWithdrawal,
		"tax_rate":           validation.TaxRate,
	})
}

func (h *Handler) ListMyWithdrawals(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	reqs, err := h.service.ListForUser(c.Request.Context(), actor.ID)
	if err != nil {
		newServiceErrorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"data": reqs,
	})
}

func (h *Handler) GetMyWithdrawal(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	req, err := h.service.GetForUser(c.Request.Context(), actor.ID, c.Param("id"))
	if err != nil {
		newServiceErrorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"data": req,
	})
}
