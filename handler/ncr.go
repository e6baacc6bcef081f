package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/InfradynAB/infradyn1-sub003/middleware"
	"github.com/InfradynAB/infradyn1-sub003/model"
	"github.com/InfradynAB/infradyn1-sub003/pkg/logger"
	"github.com/InfradynAB/infradyn1-sub003/service"
)

type NCRHandler struct {
	store *service.Store
}

func NewNCRHandler(store *service.Store) *NCRHandler {
	return &NCRHandler{store: store}
}

// Create records a non-conformance report against a purchase order.
func (h *NCRHandler) Create(c *gin.Context) {
	organization := middleware.GetOrganization(c)

	var ncr model.NCR
	if err := c.ShouldBindJSON(&ncr); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	ncr.PurchaseOrderID = c.Param("id")
	if ncr.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	switch ncr.Severity {
	case model.NCRSeverityLow, model.NCRSeverityMedium, model.NCRSeverityHigh, model.NCRSeverityCritical:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid severity"})
		return
	}

	if err := h.store.CreateNCR(c.Request.Context(), organization, &ncr); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Purchase order not found"})
			return
		}
		logger.Error(c.Request.Context(), "failed to create NCR", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create NCR"})
		return
	}

	c.JSON(http.StatusCreated, ncr)
}

// List returns NCRs for one purchase order.
func (h *NCRHandler) List(c *gin.Context) {
	organization := middleware.GetOrganization(c)
	purchaseOrderID := c.Param("id")

	ncrs, err := h.store.ListNCRs(c.Request.Context(), organization, purchaseOrderID)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to list NCRs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list NCRs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ncrs": ncrs})
}

// Close marks an NCR as resolved.
func (h *NCRHandler) Close(c *gin.Context) {
	organization := middleware.GetOrganization(c)
	id := c.Param("ncr_id")

	if err := h.store.CloseNCR(c.Request.Context(), organization, id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "NCR not found"})
			return
		}
		logger.Error(c.Request.Context(), "failed to close NCR", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to close NCR"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "status": model.NCRStatusClosed})
}
