package rest

import (
	"net/http"

	"github.com/NasaVasa/aptwatch/internal/domain"
	"github.com/gin-gonic/gin"
)

type createAlertRequest struct {
	Name            string                 `json:"name"`
	Criteria        domain.Criteria        `json:"criteria"`
	AlertConditions domain.AlertConditions `json:"alert_conditions"`
}

type updateAlertRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func (h *Handler) CreateAlert(c *gin.Context) {
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}
	var req createAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	condition, err := h.alertUC.CreateCondition(c.Request.Context(), userID, domain.PriceAlertCondition{
		Name:            req.Name,
		Criteria:        req.Criteria,
		AlertConditions: req.AlertConditions,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, condition)
}

func (h *Handler) ListAlerts(c *gin.Context) {
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}
	conditions, err := h.alertUC.ListConditions(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if conditions == nil {
		conditions = []domain.PriceAlertCondition{}
	}
	c.JSON(http.StatusOK, gin.H{"alerts": conditions})
}

func (h *Handler) UpdateAlert(c *gin.Context) {
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}
	alertID, ok := uintParam(c, "alertID")
	if !ok {
		return
	}
	var req updateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	var err error
	if *req.IsActive {
		err = h.alertUC.EnableCondition(c.Request.Context(), userID, alertID)
	} else {
		err = h.alertUC.DisableCondition(c.Request.Context(), userID, alertID)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": alertID, "is_active": *req.IsActive})
}

func (h *Handler) DeleteAlert(c *gin.Context) {
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}
	alertID, ok := uintParam(c, "alertID")
	if !ok {
		return
	}
	if err := h.alertUC.DeleteCondition(c.Request.Context(), userID, alertID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
