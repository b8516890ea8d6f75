package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/junhopark/prdforge/internal/service"
)

// writeError maps service sentinel errors to HTTP status codes and writes
// the standard error envelope.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrAlreadyResolved),
		errors.Is(err, service.ErrReviewIncomplete):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
