package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/junhopark/prdforge/internal/domain"
	"github.com/junhopark/prdforge/internal/service"
)

// ProcessingHandler handles pipeline job endpoints.
type ProcessingHandler struct {
	orchestrator *service.Orchestrator
}

// NewProcessingHandler creates a new processing handler.
// Parameters:
//   - orchestrator: pipeline orchestrator instance.
// Returns:
//   - *ProcessingHandler: initialized handler.
func NewProcessingHandler(orchestrator *service.Orchestrator) *ProcessingHandler {
	return &ProcessingHandler{orchestrator: orchestrator}
}

type startRequest struct {
	DocumentIDs []string `json:"document_ids" binding:"required"`
}

// Start handles POST /api/v1/processing/start. The job is created
// synchronously and processed in the background.
func (h *ProcessingHandler) Start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	job, err := h.orchestrator.Start(c.Request.Context(), req.DocumentIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"job_id": job.ID,
		"status": job.Status,
	})
}

// List handles GET /api/v1/processing.
func (h *ProcessingHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	status := domain.JobStatus(c.Query("status"))

	jobs, err := h.orchestrator.ListJobs(c.Request.Context(), offset, limit, status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "count": len(jobs)})
}

// Status handles GET /api/v1/processing/status/:id.
func (h *ProcessingHandler) Status(c *gin.Context) {
	snapshot, err := h.orchestrator.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// Cancel handles POST /api/v1/processing/cancel/:id. Cancellation is
// cooperative: running jobs stop at the next stage boundary.
func (h *ProcessingHandler) Cancel(c *gin.Context) {
	if err := h.orchestrator.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancellation requested"})
}
