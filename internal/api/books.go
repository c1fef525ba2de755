package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aqasim81/library-catalog/internal/catalog"
)

// categoryRef accepts the nested {"category":{"id":N}} form.
type categoryRef struct {
	ID int64 `json:"id"`
}

// BookRequest is the body of POST and PUT /api/books.
type BookRequest struct {
	Title         string       `json:"title"`
	ISBN          string       `json:"isbn"`
	Author        string       `json:"author"`
	Category      *categoryRef `json:"category"`
	CategoryID    *int64       `json:"categoryId"`
	Price         *float64     `json:"price"`
	StockQuantity int          `json:"stockQuantity"`
	Description   string       `json:"description"`
}

func (r BookRequest) input() catalog.BookInput {
	in := catalog.BookInput{
		Title:         strings.TrimSpace(r.Title),
		ISBN:          strings.TrimSpace(r.ISBN),
		Author:        strings.TrimSpace(r.Author),
		CategoryID:    r.CategoryID,
		Price:         r.Price,
		StockQuantity: r.StockQuantity,
		Description:   r.Description,
	}

	if in.CategoryID == nil && r.Category != nil && r.Category.ID != 0 {
		id := r.Category.ID
		in.CategoryID = &id
	}

	return in
}

// ListBooks handles GET /api/books.
func (h *Handler) ListBooks(c *gin.Context) {
	books, err := h.books.ListBooks(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, nonNil(books))
}

// GetBook handles GET /api/books/:id.
func (h *Handler) GetBook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	book, err := h.books.GetBook(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, book)
}

// SearchBooks handles GET /api/books/search?keyword=.
func (h *Handler) SearchBooks(c *gin.Context) {
	keyword := strings.TrimSpace(c.Query("keyword"))
	if keyword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "keyword is required"})
		return
	}

	books, err := h.books.SearchBooks(c.Request.Context(), keyword)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, nonNil(books))
}

// BooksByCategory handles GET /api/books/category/:categoryId.
func (h *Handler) BooksByCategory(c *gin.Context) {
	id, ok := pathID(c, "categoryId")
	if !ok {
		return
	}

	books, err := h.books.BooksByCategory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, nonNil(books))
}

// AvailableBooks handles GET /api/books/available.
func (h *Handler) AvailableBooks(c *gin.Context) {
	books, err := h.books.AvailableBooks(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, nonNil(books))
}

// CreateBook handles POST /api/books.
func (h *Handler) CreateBook(c *gin.Context) {
	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	book, err := h.books.CreateBook(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, book)
}

// UpdateBook handles PUT /api/books/:id.
func (h *Handler) UpdateBook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	book, err := h.books.UpdateBook(c.Request.Context(), id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, book)
}

// DeleteBook handles DELETE /api/books/:id.
func (h *Handler) DeleteBook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.books.DeleteBook(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// nonNil makes empty listings encode as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}

	return items
}
