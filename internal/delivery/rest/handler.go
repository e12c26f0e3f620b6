package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/NasaVasa/aptwatch/internal/domain"
	"github.com/NasaVasa/aptwatch/internal/usecase"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TransactionSubmitter routes an ingested transaction into the matching pipeline.
type TransactionSubmitter interface {
	Submit(ctx context.Context, tx domain.PropertyTransaction) error
}

type Handler struct {
	userUC         *usecase.UserUsecase
	alertUC        *usecase.AlertUsecase
	notificationUC *usecase.NotificationUsecase
	sheetUC        *usecase.SheetUsecase
	submitter      TransactionSubmitter
	snapshots      domain.SnapshotStore
	logger         *zap.Logger
}

type HandlerDeps struct {
	Users         *usecase.UserUsecase
	Alerts        *usecase.AlertUsecase
	Notifications *usecase.NotificationUsecase
	Sheets        *usecase.SheetUsecase
	Submitter     TransactionSubmitter
	Snapshots     domain.SnapshotStore
	Logger        *zap.Logger
}

func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		userUC:         deps.Users,
		alertUC:        deps.Alerts,
		notificationUC: deps.Notifications,
		sheetUC:        deps.Sheets,
		submitter:      deps.Submitter,
		snapshots:      deps.Snapshots,
		logger:         deps.Logger,
	}
}

type registerUserRequest struct {
	TelegramUserID int64  `json:"telegram_user_id" binding:"required"`
	Username       string `json:"username"`
}

func (h *Handler) RegisterUser(c *gin.Context) {
	var req registerUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.userUC.StartOrGetUser(c.Request.Context(), req.TelegramUserID, req.Username)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{"error": message})
}

func statusFor(err error) (int, string) {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, validationErr.Error()
	case errors.Is(err, domain.ErrInvalidPageToken),
		errors.Is(err, usecase.ErrInvalidStatus),
		errors.Is(err, usecase.ErrInvalidChannel),
		errors.Is(err, usecase.ErrInvalidShardKey):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, usecase.ErrUserNotRegistered),
		errors.Is(err, usecase.ErrAlertNotFound),
		errors.Is(err, usecase.ErrComplexNotFound),
		errors.Is(err, usecase.ErrNotificationNotFound),
		errors.Is(err, usecase.ErrSheetNotFound),
		errors.Is(err, usecase.ErrPropertyNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, usecase.ErrDuplicateProperty),
		errors.Is(err, usecase.ErrNotificationArchived),
		errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, usecase.ErrShardQueueFull),
		errors.Is(err, usecase.ErrManagerStopped),
		errors.Is(err, domain.ErrConsistency):
		return http.StatusServiceUnavailable, err.Error()
	}
	return http.StatusInternalServerError, "internal error"
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || value == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(value), true
}
