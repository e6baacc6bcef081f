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

type ProjectHandler struct {
	store *service.Store
}

func NewProjectHandler(store *service.Store) *ProjectHandler {
	return &ProjectHandler{store: store}
}

// Create registers a new project. The currency set here becomes the
// reference currency its purchase orders are checked against.
func (h *ProjectHandler) Create(c *gin.Context) {
	organization := middleware.GetOrganization(c)

	var p model.Project
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if p.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	p.OrganizationID = organization

	if err := h.store.CreateProject(c.Request.Context(), &p); err != nil {
		logger.Error(c.Request.Context(), "failed to create project", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create project"})
		return
	}

	c.JSON(http.StatusCreated, p)
}

// List returns the organization's projects.
func (h *ProjectHandler) List(c *gin.Context) {
	organization := middleware.GetOrganization(c)

	projects, err := h.store.ListProjects(c.Request.Context(), organization)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to list projects", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list projects"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// Get returns one project.
func (h *ProjectHandler) Get(c *gin.Context) {
	organization := middleware.GetOrganization(c)
	id := c.Param("id")

	p, err := h.store.GetProject(c.Request.Context(), organization, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}
		logger.Error(c.Request.Context(), "failed to load project", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load project"})
		return
	}

	c.JSON(http.StatusOK, p)
}
