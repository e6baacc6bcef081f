package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/InfradynAB/infradyn1-sub003/middleware"
	"github.com/InfradynAB/infradyn1-sub003/pkg/logger"
	"github.com/InfradynAB/infradyn1-sub003/service"
)

type KPIHandler struct {
	kpi *service.KPIService
}

func NewKPIHandler(kpi *service.KPIService) *KPIHandler {
	return &KPIHandler{kpi: kpi}
}

// filter builds the KPI filter from query parameters. The organization
// always comes from the token, never from the client.
func (h *KPIHandler) filter(c *gin.Context) (service.KPIFilter, bool) {
	f := service.KPIFilter{
		OrganizationID: middleware.GetOrganization(c),
		ProjectID:      c.Query("project_id"),
	}

	if v := c.Query("date_from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date_from, expected YYYY-MM-DD"})
			return f, false
		}
		f.DateFrom = &t
	}
	if v := c.Query("date_to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date_to, expected YYYY-MM-DD"})
			return f, false
		}
		f.DateTo = &t
	}

	return f, true
}

// Dashboard returns every KPI group in one response.
func (h *KPIHandler) Dashboard(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}

	result, err := h.kpi.Dashboard(c.Request.Context(), f)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to compute dashboard KPIs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute KPIs"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Financial returns committed versus paid totals.
func (h *KPIHandler) Financial(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}

	result, err := h.kpi.Financial(c.Request.Context(), f)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to compute financial KPIs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute KPIs"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Progress returns milestone completion KPIs.
func (h *KPIHandler) Progress(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}

	result, err := h.kpi.Progress(c.Request.Context(), f)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to compute progress KPIs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute KPIs"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Quality returns NCR KPIs.
func (h *KPIHandler) Quality(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}

	result, err := h.kpi.Quality(c.Request.Context(), f)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to compute quality KPIs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute KPIs"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Suppliers returns supplier exposure KPIs.
func (h *KPIHandler) Suppliers(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}

	result, err := h.kpi.Suppliers(c.Request.Context(), f)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to compute supplier KPIs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute KPIs"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Payments returns invoice aging KPIs.
func (h *KPIHandler) Payments(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}

	result, err := h.kpi.Payments(c.Request.Context(), f)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to compute payment KPIs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute KPIs"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Logistics returns shipment delivery KPIs.
func (h *KPIHandler) Logistics(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}

	result, err := h.kpi.Logistics(c.Request.Context(), f)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to compute logistics KPIs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute KPIs"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// SCurve returns monthly planned versus actual cumulative spend.
func (h *KPIHandler) SCurve(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}

	points, err := h.kpi.SCurve(c.Request.Context(), f)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to compute s-curve", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute KPIs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"points": points})
}
