package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"withdrawal_settlement/models"
	"withdrawal_settlement/pkg/middleware"
	"withdrawal_settlement/pkg/service"
	"withdrawal_settlement/pkg/workflow"
)

type adminActionInput struct {
	Action workflow.Event `json:"action" binding:"required"`
	Notes  string         `json:"notes" binding:"max=2000"`
}

type adminActionResponse struct {
	RequestID string        `json:"request_id"`
	Status    models.Status `json:"status"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ListWithdrawals query: status, method, q (user id fragment), limit, offset
func (h *Handler) ListWithdrawals(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	var filter models.Filter
	if err := c.ShouldBindQuery(&filter); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "BadRequest", "invalid query parameters")
		return
	}

	items, err := h.service.List(c.Request.Context(), actor.ID, filter)
	if err != nil {
		newServiceErrorResponse(c, err)
		return
	}
	filter = filter.Normalize()
	wrapOkJSON(c, map[string]interface{}{
		"data":   items,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func (h *Handler) GetWithdrawal(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	req, err := h.service.GetForAdmin(c.Request.Context(), actor.ID, c.Param("id"))
	if err != nil {
		newServiceErrorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"data": req,
	})
}

func (h *Handler) GetAuditTrail(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	events, err := h.service.AuditTrail(c.Request.Context(), actor.ID, c.Param("id"))
	if err != nil {
		newServiceErrorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"data": events,
	})
}

// ApplyAction body: {action, notes}
func (h *Handler) ApplyAction(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	var input adminActionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "BadRequest", "action is required")
		return
	}

	req, err := h.service.ApplyAdminAction(c.Request.Context(), service.ActionInput{
		RequestID: c.Param("id"),
		AdminID:   actor.ID,
		Action:    input.Action,
		Notes:     input.Notes,
	})
	if err != nil {
		newServiceErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, adminActionResponse{
		RequestID: req.ID,
		Status:    req.Status,
		UpdatedAt: req.UpdatedAt,
	})
}
