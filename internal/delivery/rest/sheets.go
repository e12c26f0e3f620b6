package rest

import (
	"net/http"

	"github.com/NasaVasa/aptwatch/internal/domain"
	"github.com/gin-gonic/gin"
)

type createSheetRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsDefault   bool   `json:"is_default"`
}

type sheetResponse struct {
	Sheet      *domain.UserSheet      `json:"sheet"`
	Properties []domain.SheetProperty `json:"properties"`
}

type propertyResponse struct {
	Property   *domain.SheetProperty  `json:"property,omitempty"`
	Statistics domain.SheetStatistics `json:"statistics"`
}

func (h *Handler) CreateSheet(c *gin.Context) {
	userID, ok := uintParam(c, "userID")
	if !ok {
		return
	}
	var req createSheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if _, err := h.userUC.GetUser(c.Request.Context(), userID); err != nil {
		h.fail(c, err)
		return
	}
	sheet, err := h.sheetUC.CreateSheet(c.Request.Context(), userID, req.Name, req.Description, req.IsDefault)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sheet)
}

func (h *Handler) GetSheet(c *gin.Context) {
	sheetID, ok := uintParam(c, "sheetID")
	if !ok {
		return
	}
	sheet, err := h.sheetUC.GetSheet(c.Request.Context(), sheetID)
	if err != nil {
		h.fail(c, err)
		return
	}
	properties, err := h.sheetUC.ListProperties(c.Request.Context(), sheetID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if properties == nil {
		properties = []domain.SheetProperty{}
	}
	c.JSON(http.StatusOK, sheetResponse{Sheet: sheet, Properties: properties})
}

func (h *Handler) AddProperty(c *gin.Context) {
	sheetID, ok := uintParam(c, "sheetID")
	if !ok {
		return
	}
	var property domain.SheetProperty
	if err := c.ShouldBindJSON(&property); err != nil {
		badRequest(c, err)
		return
	}
	property.ID = 0
	added, stats, err := h.sheetUC.AddProperty(c.Request.Context(), sheetID, property)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, propertyResponse{Property: added, Statistics: stats})
}

func (h *Handler) UpdateProperty(c *gin.Context) {
	sheetID, ok := uintParam(c, "sheetID")
	if !ok {
		return
	}
	propertyID, ok := uintParam(c, "propertyID")
	if !ok {
		return
	}
	var property domain.SheetProperty
	if err := c.ShouldBindJSON(&property); err != nil {
		badRequest(c, err)
		return
	}
	property.ID = propertyID
	stats, err := h.sheetUC.UpdateProperty(c.Request.Context(), sheetID, property)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, propertyResponse{Statistics: stats})
}

func (h *Handler) RemoveProperty(c *gin.Context) {
	sheetID, ok := uintParam(c, "sheetID")
	if !ok {
		return
	}
	propertyID, ok := uintParam(c, "propertyID")
	if !ok {
		return
	}
	stats, err := h.sheetUC.RemoveProperty(c.Request.Context(), sheetID, propertyID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, propertyResponse{Statistics: stats})
}
