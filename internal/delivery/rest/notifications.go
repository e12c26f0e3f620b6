package rest

import (
	"net/http"

	"github.com/NasaVasa/aptwatch/internal/domain"
	"github.com/gin-gonic/gin"
)

type listNotificationsQuery struct {
	Status    string `form:"status"`
	PageSize  int    `form:"page_size"`
	PageToken string `form:"page_token"`
}

func (h *Handler) ListNotifications(c *gin.Context) {
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}
	var query listNotificationsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, err)
		return
	}
	page, err := h.notificationUC.List(c.Request.Context(), userID, domain.NotificationStatus(query.Status), query.PageSize, query.PageToken)
	if err != nil {
		h.fail(c, err)
		return
	}
	if page.Notifications == nil {
		page.Notifications = []domain.Notification{}
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}
	n, err := h.notificationUC.MarkRead(c.Request.Context(), userID, c.Param("notificationID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *Handler) ArchiveNotification(c *gin.Context) {
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}
	n, err := h.notificationUC.Archive(c.Request.Context(), userID, c.Param("notificationID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *Handler) MarkChannelEngaged(c *gin.Context) {
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}
	channel := domain.Channel(c.Param("channel"))
	if err := h.notificationUC.MarkChannelEngaged(c.Request.Context(), userID, c.Param("notificationID"), channel); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkChannelSent is the delivery callback for channels sent outside this process.
func (h *Handler) MarkChannelSent(c *gin.Context) {
	channel := domain.Channel(c.Param("channel"))
	if err := h.notificationUC.MarkChannelSent(c.Request.Context(), c.Param("notificationID"), channel); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) GetSettings(c *gin.Context) {
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}
	setting, err := h.notificationUC.Settings(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, setting)
}

func (h *Handler) PutSettings(c *gin.Context) {
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}
	var setting domain.NotificationSetting
	if err := c.ShouldBindJSON(&setting); err != nil {
		badRequest(c, err)
		return
	}
	setting.UserID = userID
	if err := h.notificationUC.SaveSettings(c.Request.Context(), setting); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, setting)
}
