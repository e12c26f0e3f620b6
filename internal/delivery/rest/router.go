package rest

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func NewRouter(h *Handler, allowOrigins []string, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	corsConfig := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	if len(allowOrigins) == 0 || slices.Contains(allowOrigins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowOrigins
	}
	r.Use(cors.New(corsConfig))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/users", h.RegisterUser)

		users := api.Group("/users/:userID")
		users.GET("/notifications", h.ListNotifications)
		users.POST("/notifications/:notificationID/read", h.MarkNotificationRead)
		users.POST("/notifications/:notificationID/archive", h.ArchiveNotification)
		users.POST("/notifications/:notificationID/channels/:channel/engaged", h.MarkChannelEngaged)
		users.GET("/settings", h.GetSettings)
		users.PUT("/settings", h.PutSettings)
		users.POST("/alerts", h.CreateAlert)
		users.GET("/alerts", h.ListAlerts)
		users.PATCH("/alerts/:alertID", h.UpdateAlert)
		users.DELETE("/alerts/:alertID", h.DeleteAlert)
		users.POST("/sheets", h.CreateSheet)

		api.GET("/sheets/:sheetID", h.GetSheet)
		api.POST("/sheets/:sheetID/properties", h.AddProperty)
		api.PUT("/sheets/:sheetID/properties/:propertyID", h.UpdateProperty)
		api.DELETE("/sheets/:sheetID/properties/:propertyID", h.RemoveProperty)

		api.POST("/transactions", h.SubmitTransactions)
		api.POST("/snapshots", h.PutSnapshot)
		api.POST("/notifications/:notificationID/channels/:channel/sent", h.MarkChannelSent)
	}
	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
