package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aqasim81/library-catalog/internal/catalog"
)

// CategoryRequest is the body of POST /api/categories.
type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListCategories handles GET /api/categories.
func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.categories.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, nonNil(categories))
}

// GetCategory handles GET /api/categories/:id.
func (h *Handler) GetCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	category, err := h.categories.GetCategory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, category)
}

// CreateCategory handles POST /api/categories.
func (h *Handler) CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	category, err := h.categories.CreateCategory(c.Request.Context(), catalog.CategoryInput{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, category)
}
