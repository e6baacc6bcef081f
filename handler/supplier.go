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

type SupplierHandler struct {
	store *service.Store
}

func NewSupplierHandler(store *service.Store) *SupplierHandler {
	return &SupplierHandler{store: store}
}

// Create registers a new supplier for the organization.
func (h *SupplierHandler) Create(c *gin.Context) {
	organization := middleware.GetOrganization(c)

	var sup model.Supplier
	if err := c.ShouldBindJSON(&sup); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if sup.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	sup.OrganizationID = organization

	if err := h.store.CreateSupplier(c.Request.Context(), &sup); err != nil {
		logger.Error(c.Request.Context(), "failed to create supplier", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create supplier"})
		return
	}

	c.JSON(http.StatusCreated, sup)
}

// List returns the organization's suppliers.
func (h *SupplierHandler) List(c *gin.Context) {
	organization := middleware.GetOrganization(c)

	suppliers, err := h.store.ListSuppliers(c.Request.Context(), organization)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to list suppliers", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list suppliers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"suppliers": suppliers})
}

// Get returns one supplier.
func (h *SupplierHandler) Get(c *gin.Context) {
	organization := middleware.GetOrganization(c)
	id := c.Param("id")

	sup, err := h.store.GetSupplier(c.Request.Context(), organization, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Supplier not found"})
			return
		}
		logger.Error(c.Request.Context(), "failed to load supplier", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load supplier"})
		return
	}

	c.JSON(http.StatusOK, sup)
}

// Update rewrites a supplier's mutable fields.
func (h *SupplierHandler) Update(c *gin.Context) {
	organization := middleware.GetOrganization(c)
	id := c.Param("id")

	var sup model.Supplier
	if err := c.ShouldBindJSON(&sup); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	sup.ID = id
	sup.OrganizationID = organization

	if err := h.store.UpdateSupplier(c.Request.Context(), &sup); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Supplier not found"})
			return
		}
		logger.Error(c.Request.Context(), "failed to update supplier", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update supplier"})
		return
	}

	c.JSON(http.StatusOK, sup)
}
