package rest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/NasaVasa/aptwatch/internal/domain"
	"github.com/gin-gonic/gin"
)

type submitTransactionsRequest struct {
	Transactions []domain.PropertyTransaction `json:"transactions" binding:"required"`
}

// SubmitTransactions validates the whole batch before routing any of it.
func (h *Handler) SubmitTransactions(c *gin.Context) {
	var req submitTransactionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	for i, tx := range req.Transactions {
		if err := validateTransaction(tx); err != nil {
			badRequest(c, fmt.Errorf("transactions[%d]: %w", i, err))
			return
		}
	}

	accepted := 0
	for _, tx := range req.Transactions {
		if err := h.submitter.Submit(c.Request.Context(), tx); err != nil {
			status, message := statusFor(err)
			c.JSON(status, gin.H{"error": message, "accepted": accepted})
			return
		}
		accepted++
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": accepted})
}

func (h *Handler) PutSnapshot(c *gin.Context) {
	var snapshot domain.PriceSnapshot
	if err := c.ShouldBindJSON(&snapshot); err != nil {
		badRequest(c, err)
		return
	}
	if snapshot.ComplexID <= 0 || snapshot.SnapshotDate.IsZero() {
		badRequest(c, errors.New("complex_id and snapshot_date are required"))
		return
	}
	snapshot.SnapshotDate = domain.PeriodDaily.Start(snapshot.SnapshotDate)
	if err := h.snapshots.Put(c.Request.Context(), snapshot); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func validateTransaction(tx domain.PropertyTransaction) error {
	switch {
	case tx.ID == "":
		return errors.New("id is required")
	case tx.ComplexID <= 0:
		return errors.New("complex_id must be positive")
	case tx.RegionCode == "":
		return errors.New("region_code is required")
	case !tx.TransactionType.Valid():
		return errors.New("unknown transaction_type")
	case tx.Price <= 0:
		return errors.New("price must be positive")
	case tx.TransactionDate.IsZero():
		return errors.New("transaction_date is required")
	}
	return nil
}
