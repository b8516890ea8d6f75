package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/junhopark/prdforge/internal/service"
)

// SearchHandler handles requirement similarity search endpoints.
type SearchHandler struct {
	search *service.SearchService
}

// NewSearchHandler creates a new search handler.
// Parameters:
//   - search: search service instance, nil when search is disabled.
// Returns:
//   - *SearchHandler: initialized handler.
func NewSearchHandler(search *service.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

// Search handles POST /api/v1/search.
func (h *SearchHandler) Search(c *gin.Context) {
	if h.search == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "similarity search is not configured"})
		return
	}

	var q service.SearchQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	matches, err := h.search.Search(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": matches, "count": len(matches)})
}
