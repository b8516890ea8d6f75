package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/junhopark/prdforge/internal/domain"
	"github.com/junhopark/prdforge/internal/service"
)

// DocumentHandler handles input document endpoints.
type DocumentHandler struct {
	uploads *service.UploadService
}

// NewDocumentHandler creates a new document handler.
// Parameters:
//   - uploads: upload service instance.
// Returns:
//   - *DocumentHandler: initialized handler.
func NewDocumentHandler(uploads *service.UploadService) *DocumentHandler {
	return &DocumentHandler{uploads: uploads}
}

// Upload handles POST /api/v1/documents/upload. Accepts one or more files
// in the multipart "files" field; the whole request fails on the first
// rejected file.
func (h *DocumentHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected multipart form: " + err.Error()})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files in the 'files' field"})
		return
	}

	docs := make([]*domain.InputDocument, 0, len(files))
	for _, header := range files {
		f, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("open %s: %v", header.Filename, err)})
			return
		}
		doc, err := h.uploads.Save(c.Request.Context(), header.Filename, header.Size, f)
		f.Close()
		if err != nil {
			writeError(c, err)
			return
		}
		docs = append(docs, doc)
	}

	c.JSON(http.StatusCreated, gin.H{"documents": docs})
}

// List handles GET /api/v1/documents.
func (h *DocumentHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	docs, err := h.uploads.List(c.Request.Context(), offset, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
}

// Get handles GET /api/v1/documents/:id.
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.uploads.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}
