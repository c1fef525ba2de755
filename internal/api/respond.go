package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aqasim81/library-catalog/internal/catalog"
	"github.com/aqasim81/library-catalog/internal/logging"
)

// respondError maps a service error to a status code and JSON body.
func respondError(c *gin.Context, err error) {
	var verr *catalog.ValidationError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": verr.Fields})
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, catalog.ErrInvalidReference):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, catalog.ErrConflict),
		errors.Is(err, catalog.ErrUnavailable),
		errors.Is(err, catalog.ErrAlreadyReturned):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		logging.FromContext(c.Request.Context()).ErrorContext(c.Request.Context(), "request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// pathID parses a positive integer path parameter, answering 400 when it is not one.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + ": " + c.Param(name)})
		return 0, false
	}

	return id, true
}

// queryID parses an optional positive integer query parameter.
func queryID(c *gin.Context, name string) (int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + ": " + raw})
		return 0, false
	}

	return id, true
}
