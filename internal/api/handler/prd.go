package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/junhopark/prdforge/internal/domain"
	"github.com/junhopark/prdforge/internal/service"
)

// PRDHandler handles generated document endpoints.
type PRDHandler struct {
	generator *service.Generator
}

// NewPRDHandler creates a new PRD handler.
// Parameters:
//   - generator: document generator instance.
// Returns:
//   - *PRDHandler: initialized handler.
func NewPRDHandler(generator *service.Generator) *PRDHandler {
	return &PRDHandler{generator: generator}
}

// List handles GET /api/v1/prds. The kind query selects derivatives;
// without it PRDs are listed.
func (h *PRDHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	kind := domain.GeneratedKind(c.DefaultQuery("kind", string(domain.GeneratedPRD)))

	docs, err := h.generator.List(c.Request.Context(), kind, offset, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
}

// Get handles GET /api/v1/prds/:id.
func (h *PRDHandler) Get(c *gin.Context) {
	doc, err := h.generator.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Export handles GET /api/v1/prds/:id/export?format=markdown|json|html|xlsx.
func (h *PRDHandler) Export(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "markdown"))

	data, contentType, filename, err := h.generator.Export(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}

type deriveRequest struct {
	Kind domain.GeneratedKind `json:"kind" binding:"required"`
}

// Derive handles POST /api/v1/prds/:id/derive.
func (h *PRDHandler) Derive(c *gin.Context) {
	var req deriveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	doc, err := h.generator.Derive(c.Request.Context(), c.Param("id"), req.Kind)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// Delete handles DELETE /api/v1/prds/:id. Deleting a PRD removes its
// derivatives and index entries with it.
func (h *PRDHandler) Delete(c *gin.Context) {
	if err := h.generator.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
