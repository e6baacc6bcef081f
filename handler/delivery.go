package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/InfradynAB/infradyn1-sub003/middleware"
	"github.com/InfradynAB/infradyn1-sub003/model"
	"github.com/InfradynAB/infradyn1-sub003/pkg/logger"
	"github.com/InfradynAB/infradyn1-sub003/service"
)

// DeliveryHandler covers shipments and invoices, the two record types
// raised against a published purchase order as it is delivered and paid.
type DeliveryHandler struct {
	store *service.Store
}

func NewDeliveryHandler(store *service.Store) *DeliveryHandler {
	return &DeliveryHandler{store: store}
}

// CreateShipment records a shipment against a purchase order.
func (h *DeliveryHandler) CreateShipment(c *gin.Context) {
	organization := middleware.GetOrganization(c)

	var sh model.Shipment
	if err := c.ShouldBindJSON(&sh); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	sh.PurchaseOrderID = c.Param("id")

	if err := h.store.CreateShipment(c.Request.Context(), organization, &sh); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Purchase order not found"})
			return
		}
		logger.Error(c.Request.Context(), "failed to create shipment", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create shipment"})
		return
	}

	c.JSON(http.StatusCreated, sh)
}

// ListShipments returns shipments for one purchase order.
func (h *DeliveryHandler) ListShipments(c *gin.Context) {
	organization := middleware.GetOrganization(c)
	purchaseOrderID := c.Param("id")

	shipments, err := h.store.ListShipments(c.Request.Context(), organization, purchaseOrderID)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to list shipments", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list shipments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"shipments": shipments})
}

type ShipmentStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateShipmentStatus moves a shipment through its lifecycle. Marking
// it DELIVERED stamps the actual delivery date.
func (h *DeliveryHandler) UpdateShipmentStatus(c *gin.Context) {
	organization := middleware.GetOrganization(c)
	id := c.Param("shipment_id")

	var req ShipmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var deliveredAt *time.Time
	switch req.Status {
	case model.ShipmentStatusPending, model.ShipmentStatusInTransit:
	case model.ShipmentStatusDelivered:
		now := time.Now()
		deliveredAt = &now
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	if err := h.store.UpdateShipmentStatus(c.Request.Context(), organization, id, req.Status, deliveredAt); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Shipment not found"})
			return
		}
		logger.Error(c.Request.Context(), "failed to update shipment", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update shipment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "status": req.Status})
}

// CreateInvoice records an invoice against a purchase order.
func (h *DeliveryHandler) CreateInvoice(c *gin.Context) {
	organization := middleware.GetOrganization(c)

	var inv model.Invoice
	if err := c.ShouldBindJSON(&inv); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	inv.PurchaseOrderID = c.Param("id")
	if inv.InvoiceNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invoice_number is required"})
		return
	}

	if err := h.store.CreateInvoice(c.Request.Context(), organization, &inv); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Purchase order not found"})
			return
		}
		logger.Error(c.Request.Context(), "failed to create invoice", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create invoice"})
		return
	}

	c.JSON(http.StatusCreated, inv)
}

// ListInvoices returns invoices for one purchase order.
func (h *DeliveryHandler) ListInvoices(c *gin.Context) {
	organization := middleware.GetOrganization(c)
	purchaseOrderID := c.Param("id")

	invoices, err := h.store.ListInvoices(c.Request.Context(), organization, purchaseOrderID)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to list invoices", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list invoices"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

// MarkInvoicePaid transitions an invoice to PAID.
func (h *DeliveryHandler) MarkInvoicePaid(c *gin.Context) {
	organization := middleware.GetOrganization(c)
	id := c.Param("invoice_id")

	if err := h.store.MarkInvoicePaid(c.Request.Context(), organization, id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
			return
		}
		logger.Error(c.Request.Context(), "failed to mark invoice paid", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark invoice paid"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "status": model.InvoiceStatusPaid})
}
