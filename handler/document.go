package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/InfradynAB/infradyn1-sub003/middleware"
	"github.com/InfradynAB/infradyn1-sub003/model"
	"github.com/InfradynAB/infradyn1-sub003/pkg/logger"
	"github.com/InfradynAB/infradyn1-sub003/service"
)

// allowedExtensions maps accepted upload types to their content type.
var allowedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

type DocumentHandler struct {
	minioService  *service.MinioService
	parserService *service.ParserService
	llmService    *service.LLMService
	jobs          *service.JobStore
}

func NewDocumentHandler(minioSvc *service.MinioService, parserSvc *service.ParserService, llmSvc *service.LLMService) *DocumentHandler {
	return &DocumentHandler{
		minioService:  minioSvc,
		parserService: parserSvc,
		llmService:    llmSvc,
		jobs:          service.GetJobStore(),
	}
}

// Upload receives a procurement document, stores it and kicks off the
// parse-and-extract pipeline. The document type query parameter selects
// the extraction schema (purchase_order, invoice or milestone).
func (h *DocumentHandler) Upload(c *gin.Context) {
	organization := middleware.GetOrganization(c)

	docType := model.DocumentType(c.DefaultQuery("type", string(model.DocTypePurchaseOrder)))
	switch docType {
	case model.DocTypePurchaseOrder, model.DocTypeInvoice, model.DocTypeMilestone:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown document type"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	expectedContentType, ok := allowedExtensions[ext]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF, DOCX and XLSX files are allowed"})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = expectedContentType
	}

	documentID := uuid.New().String()
	objectName := fmt.Sprintf("%s/%s/%s", organization, documentID, header.Filename)

	err = h.minioService.UploadDocument(c.Request.Context(), objectName, file, header.Size, contentType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload file: " + err.Error()})
		return
	}

	// Presigned URL lets the parser fetch the document directly.
	fileURL, err := h.minioService.GetPresignedURL(c.Request.Context(), objectName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate URL: " + err.Error()})
		return
	}

	doc := &model.Document{
		ID:           documentID,
		Filename:     header.Filename,
		Organization: organization,
		DocumentType: docType,
		FileURL:      fileURL,
		Status:       model.StatusPending,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	h.jobs.Save(doc)

	go h.processDocument(doc, fileURL)

	c.JSON(http.StatusOK, gin.H{
		"id":            documentID,
		"filename":      header.Filename,
		"document_type": docType,
		"file_url":      fileURL,
		"status":        model.StatusPending,
	})
}

// processDocument runs the parse task and extraction asynchronously.
func (h *DocumentHandler) processDocument(doc *model.Document, fileURL string) {
	ctx := context.Background()
	logger.Info(ctx, "starting document extraction", "document_id", doc.ID, "type", doc.DocumentType)

	h.jobs.UpdateStatus(doc.ID, model.StatusProcessing, "")

	resp, err := h.parserService.CreateTask(fileURL, doc.ID)
	if err != nil {
		logger.Error(ctx, "failed to create parse task", "document_id", doc.ID, "error", err)
		h.jobs.UpdateStatus(doc.ID, model.StatusFailed, err.Error())
		return
	}

	h.jobs.UpdateParseTask(doc.ID, resp.Data.TaskID)

	h.pollParseResult(ctx, doc.ID, resp.Data.TaskID)
}

// pollParseResult polls the parse task until the text is ready, then
// hands it to the LLM for structuring.
func (h *DocumentHandler) pollParseResult(ctx context.Context, documentID, taskID string) {
	maxAttempts := 60 // 5 minutes with 5 second intervals
	for i := 0; i < maxAttempts; i++ {
		time.Sleep(5 * time.Second)

		status, err := h.parserService.GetTaskStatus(taskID)
		if err != nil {
			logger.Warn(ctx, "parse status poll failed", "document_id", documentID, "attempt", i+1, "error", err)
			continue
		}

		switch status.Data.State {
		case "done":
			if status.Data.FullZipURL == "" {
				h.jobs.UpdateStatus(documentID, model.StatusFailed, "Parser returned no result")
				return
			}
			text, err := h.parserService.FetchZipAndExtractText(status.Data.FullZipURL)
			if err != nil {
				logger.Error(ctx, "failed to fetch parse result", "document_id", documentID, "error", err)
				h.jobs.UpdateStatus(documentID, model.StatusFailed, "Failed to fetch parse result: "+err.Error())
				return
			}
			h.extract(ctx, documentID, text)
			return
		case "failed":
			h.jobs.UpdateStatus(documentID, model.StatusFailed, status.Data.ErrorMsg)
			return
		}
	}

	logger.Error(ctx, "parse task polling timeout", "document_id", documentID)
	h.jobs.UpdateStatus(documentID, model.StatusFailed, "Parse task polling timeout")
}

// extract runs the type-specific LLM structuring and completes the job.
func (h *DocumentHandler) extract(ctx context.Context, documentID, text string) {
	doc := h.jobs.Get(documentID)
	if doc == nil {
		return
	}

	var (
		extracted any
		err       error
	)
	switch doc.DocumentType {
	case model.DocTypeInvoice:
		extracted, err = h.llmService.ExtractInvoice(ctx, text)
	case model.DocTypeMilestone:
		var milestones []model.ExtractedMilestone
		milestones, err = h.llmService.ExtractMilestones(ctx, text)
		extracted = gin.H{"milestones": milestones}
	default:
		extracted, err = h.llmService.ExtractPurchaseOrder(ctx, text)
	}
	if err != nil {
		logger.Error(ctx, "extraction failed", "document_id", documentID, "error", err)
		h.jobs.UpdateStatus(documentID, model.StatusFailed, "Extraction failed: "+err.Error())
		return
	}

	h.jobs.UpdateExtracted(documentID, extracted)
	logger.Info(ctx, "document extraction completed", "document_id", documentID)
}

// List returns all extraction jobs for the current organization.
func (h *DocumentHandler) List(c *gin.Context) {
	organization := middleware.GetOrganization(c)
	docs := h.jobs.GetByOrganization(organization)

	// Return without extracted data for list view
	result := make([]gin.H, len(docs))
	for i, doc := range docs {
		result[i] = gin.H{
			"id":            doc.ID,
			"filename":      doc.Filename,
			"document_type": doc.DocumentType,
			"status":        doc.Status,
			"file_url":      doc.FileURL,
			"created_at":    doc.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			"updated_at":    doc.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}

	c.JSON(http.StatusOK, gin.H{"documents": result})
}

// Get returns a single extraction job with its extracted data.
func (h *DocumentHandler) Get(c *gin.Context) {
	organization := middleware.GetOrganization(c)
	id := c.Param("id")

	doc := h.jobs.Get(id)
	if doc == nil || doc.Organization != organization {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	c.JSON(http.StatusOK, doc)
}

// GetStatus returns the processing status of an extraction job.
func (h *DocumentHandler) GetStatus(c *gin.Context) {
	organization := middleware.GetOrganization(c)
	id := c.Param("id")

	doc := h.jobs.Get(id)
	if doc == nil || doc.Organization != organization {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":        doc.ID,
		"status":    doc.Status,
		"error_msg": doc.ErrorMsg,
	})
}

// Delete removes an extraction job.
func (h *DocumentHandler) Delete(c *gin.Context) {
	organization := middleware.GetOrganization(c)
	id := c.Param("id")

	doc := h.jobs.Get(id)
	if doc == nil || doc.Organization != organization {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	h.jobs.Delete(id)

	c.JSON(http.StatusOK, gin.H{"message": "Document deleted"})
}

type CallbackRequest struct {
	Checksum string `json:"checksum"`
	Content  string `json:"content"`
}

type CallbackContent struct {
	TaskID     string `json:"task_id"`
	DataID     string `json:"data_id"`
	State      string `json:"state"`
	FullZipURL string `json:"full_zip_url"`
	ErrorMsg   string `json:"err_msg"`
}

// HandleCallback receives the parser's completion callback. DataID is
// the document ID we passed when creating the task.
func (h *DocumentHandler) HandleCallback(c *gin.Context) {
	var req CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var content CallbackContent
	if err := json.Unmarshal([]byte(req.Content), &content); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid content format"})
		return
	}

	doc := h.jobs.Get(content.DataID)
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	if !h.parserService.VerifyCallback(req.Checksum, req.Content, content.DataID) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid checksum"})
		return
	}

	switch content.State {
	case "done":
		if content.FullZipURL == "" {
			h.jobs.UpdateStatus(doc.ID, model.StatusFailed, "Parser returned no result")
			break
		}
		go func(documentID, zipURL string) {
			ctx := context.Background()
			text, err := h.parserService.FetchZipAndExtractText(zipURL)
			if err != nil {
				h.jobs.UpdateStatus(documentID, model.StatusFailed, "Failed to fetch parse result: "+err.Error())
				return
			}
			h.extract(ctx, documentID, text)
		}(doc.ID, content.FullZipURL)
	case "failed":
		h.jobs.UpdateStatus(doc.ID, model.StatusFailed, content.ErrorMsg)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Callback received"})
}
