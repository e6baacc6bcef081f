package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/InfradynAB/infradyn1-sub003/middleware"
	"github.com/InfradynAB/infradyn1-sub003/model"
	"github.com/InfradynAB/infradyn1-sub003/pkg/compliance"
	"github.com/InfradynAB/infradyn1-sub003/pkg/logger"
	"github.com/InfradynAB/infradyn1-sub003/service"
)

type PurchaseOrderHandler struct {
	store *service.Store
}

func NewPurchaseOrderHandler(store *service.Store) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{store: store}
}

// ComplianceReport is the evaluation result returned to the client.
type ComplianceReport struct {
	Rules      []compliance.Rule `json:"rules"`
	CanPublish bool              `json:"can_publish"`
	Blockers   []compliance.Rule `json:"blockers,omitempty"`
}

func buildReport(rules []compliance.Rule) ComplianceReport {
	return ComplianceReport{
		Rules:      rules,
		CanPublish: compliance.CanPublish(rules),
		Blockers:   compliance.Blockers(rules),
	}
}

// Create creates a draft purchase order under an existing project.
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	organization := middleware.GetOrganization(c)

	var po model.PurchaseOrder
	if err := c.ShouldBindJSON(&po); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if po.ProjectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project_id is required"})
		return
	}

	// The project fixes the organization scope; the client cannot pick one.
	if _, err := h.store.GetProject(c.Request.Context(), organization, po.ProjectID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load project"})
		return
	}
	po.OrganizationID = organization

	if err := h.store.CreatePurchaseOrder(c.Request.Context(), &po); err != nil {
		logger.Error(c.Request.Context(), "failed to create purchase order", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create purchase order"})
		return
	}

	c.JSON(http.StatusCreated, po)
}

// List returns the organization's purchase orders, optionally filtered
// by ?project_id=.
func (h *PurchaseOrderHandler) List(c *gin.Context) {
	organization := middleware.GetOrganization(c)
	projectID := c.Query("project_id")

	orders, err := h.store.ListPurchaseOrders(c.Request.Context(), organization, projectID)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to list purchase orders", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list purchase orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"purchase_orders": orders})
}

// Get returns a single purchase order with its milestones.
func (h *PurchaseOrderHandler) Get(c *gin.Context) {
	organization := middleware.GetOrganization(c)
	id := c.Param("id")

	po, err := h.store.GetPurchaseOrder(c.Request.Context(), organization, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Purchase order not found"})
			return
		}
		logger.Error(c.Request.Context(), "failed to load purchase order", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load purchase order"})
		return
	}

	c.JSON(http.StatusOK, po)
}

// Update rewrites a draft purchase order.
func (h *PurchaseOrderHandler) Update(c *gin.Context) {
	organization := middleware.GetOrganization(c)
	id := c.Param("id")

	var po model.PurchaseOrder
	if err := c.ShouldBindJSON(&po); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	po.ID = id
	po.OrganizationID = organization

	if err := h.store.UpdatePurchaseOrder(c.Request.Context(), &po); err != nil {
		if errors.Is(err, service.ErrNotDraft) {
			c.JSON(http.StatusConflict, gin.H{"error": "Purchase order is not an editable draft"})
			return
		}
		logger.Error(c.Request.Context(), "failed to update purchase order", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update purchase order"})
		return
	}

	c.JSON(http.StatusOK, po)
}

// Delete removes a purchase order.
func (h *PurchaseOrderHandler) Delete(c *gin.Context) {
	organization := middleware.GetOrganization(c)
	id := c.Param("id")

	if err := h.store.DeletePurchaseOrder(c.Request.Context(), organization, id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Purchase order not found"})
			return
		}
		logger.Error(c.Request.Context(), "failed to delete purchase order", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete purchase order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Purchase order deleted"})
}

// Compliance evaluates the current draft and returns the full report.
func (h *PurchaseOrderHandler) Compliance(c *gin.Context) {
	organization := middleware.GetOrganization(c)
	id := c.Param("id")

	rules, _, err := h.evaluate(c, organization, id)
	if err != nil {
		return // response already written
	}

	c.JSON(http.StatusOK, buildReport(rules))
}

// Publish re-evaluates the draft server-side and flips it to PUBLISHED
// only when no blocking failures remain. A stale client report cannot
// bypass the gate.
func (h *PurchaseOrderHandler) Publish(c *gin.Context) {
	organization := middleware.GetOrganization(c)
	id := c.Param("id")

	rules, po, err := h.evaluate(c, organization, id)
	if err != nil {
		return
	}

	if po.Status != model.POStatusDraft {
		c.JSON(http.StatusConflict, gin.H{"error": "Purchase order is not a draft"})
		return
	}

	if !compliance.CanPublish(rules) {
		report := buildReport(rules)
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":       "Compliance check failed",
			"rules":       report.Rules,
			"blockers":    report.Blockers,
			"can_publish": false,
		})
		return
	}

	if err := h.store.PublishPurchaseOrder(c.Request.Context(), organization, id); err != nil {
		if errors.Is(err, service.ErrNotDraft) {
			c.JSON(http.StatusConflict, gin.H{"error": "Purchase order is not a draft"})
			return
		}
		logger.Error(c.Request.Context(), "failed to publish purchase order", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to publish purchase order"})
		return
	}

	logger.Info(c.Request.Context(), "purchase order published",
		"purchase_order_id", id,
		"po_number", po.PONumber,
	)

	c.JSON(http.StatusOK, gin.H{"id": id, "status": model.POStatusPublished})
}

// Preview evaluates an ad-hoc snapshot without persisting anything. The
// wizard calls this on every edit for live rule feedback.
func (h *PurchaseOrderHandler) Preview(c *gin.Context) {
	var snapshot compliance.Snapshot
	if err := c.ShouldBindJSON(&snapshot); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid snapshot: " + err.Error()})
		return
	}

	rules := compliance.Evaluate(snapshot)
	c.JSON(http.StatusOK, buildReport(rules))
}

// evaluate loads the purchase order and its project currency and runs
// the rule engine. On error it writes the response and returns non-nil.
func (h *PurchaseOrderHandler) evaluate(c *gin.Context, organization, id string) ([]compliance.Rule, *model.PurchaseOrder, error) {
	po, err := h.store.GetPurchaseOrder(c.Request.Context(), organization, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Purchase order not found"})
			return nil, nil, err
		}
		logger.Error(c.Request.Context(), "failed to load purchase order", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load purchase order"})
		return nil, nil, err
	}

	projectCurrency := ""
	if project, err := h.store.GetProject(c.Request.Context(), organization, po.ProjectID); err == nil {
		projectCurrency = project.Currency
	}

	rules := compliance.Evaluate(po.ComplianceSnapshot(projectCurrency))
	return rules, po, nil
}
