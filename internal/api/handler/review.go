package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/junhopark/prdforge/internal/service"
)

// ReviewHandler handles human review endpoints.
type ReviewHandler struct {
	reviews      *service.ReviewService
	orchestrator *service.Orchestrator
}

// NewReviewHandler creates a new review handler.
// Parameters:
//   - reviews: review service instance.
//   - orchestrator: pipeline orchestrator, used to resume held jobs.
// Returns:
//   - *ReviewHandler: initialized handler.
func NewReviewHandler(reviews *service.ReviewService, orchestrator *service.Orchestrator) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, orchestrator: orchestrator}
}

// Pending handles GET /api/v1/review/pending/:job_id.
func (h *ReviewHandler) Pending(c *gin.Context) {
	list, err := h.reviews.ListItems(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Decision handles POST /api/v1/review/decision.
func (h *ReviewHandler) Decision(c *gin.Context) {
	var d service.Decision
	if err := c.ShouldBindJSON(&d); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	if err := h.reviews.SubmitDecision(c.Request.Context(), d); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

type bulkDecisionRequest struct {
	Decisions []service.Decision `json:"decisions" binding:"required"`
}

// BulkDecision handles POST /api/v1/review/bulk-decision. Individual
// failures are reported per item, not as a request failure.
func (h *ReviewHandler) BulkDecision(c *gin.Context) {
	var req bulkDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	result, err := h.reviews.SubmitBulk(c.Request.Context(), req.Decisions)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Complete handles POST /api/v1/review/complete/:job_id. The job resumes
// synchronously, so the response carries its final state.
func (h *ReviewHandler) Complete(c *gin.Context) {
	job, err := h.orchestrator.ResumeAfterReview(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"job_id": job.ID,
		"status": job.Status,
		"prd_id": job.PRDID,
	})
}

// Stats handles GET /api/v1/review/stats/:job_id.
func (h *ReviewHandler) Stats(c *gin.Context) {
	stats, err := h.reviews.JobStats(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
