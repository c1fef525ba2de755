package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aqasim81/library-catalog/internal/catalog"
)

const dateLayout = "2006-01-02"

// BorrowRequest is the body of POST /api/borrowings.
type BorrowRequest struct {
	UserID     int64  `json:"userId" binding:"required,gt=0"`
	BookID     int64  `json:"bookId" binding:"required,gt=0"`
	BorrowDate string `json:"borrowDate" binding:"omitempty,datetime=2006-01-02"`
	DueDate    string `json:"dueDate" binding:"required,datetime=2006-01-02"`
}

// ListBorrowings handles GET /api/borrowings?user_id=&book_id=&status=.
func (h *Handler) ListBorrowings(c *gin.Context) {
	userID, ok := queryID(c, "user_id")
	if !ok {
		return
	}

	bookID, ok := queryID(c, "book_id")
	if !ok {
		return
	}

	filter := catalog.BorrowingFilter{
		UserID: userID,
		BookID: bookID,
		Status: catalog.BorrowingStatus(strings.ToUpper(c.Query("status"))),
	}

	borrowings, err := h.borrowings.ListBorrowings(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, nonNil(borrowings))
}

// OverdueBorrowings handles GET /api/borrowings/overdue.
func (h *Handler) OverdueBorrowings(c *gin.Context) {
	borrowings, err := h.borrowings.Overdue(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, nonNil(borrowings))
}

// Borrow handles POST /api/borrowings.
func (h *Handler) Borrow(c *gin.Context) {
	var req BorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	// The binding tags already guarantee the layout.
	due, _ := time.Parse(dateLayout, req.DueDate)

	in := catalog.BorrowInput{UserID: req.UserID, BookID: req.BookID, DueDate: due}
	if req.BorrowDate != "" {
		in.BorrowDate, _ = time.Parse(dateLayout, req.BorrowDate)
	}

	borrowing, err := h.borrowings.Borrow(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, borrowing)
}

// ReturnBorrowing handles PUT /api/borrowings/:id/return.
func (h *Handler) ReturnBorrowing(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	borrowing, err := h.borrowings.Return(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, borrowing)
}
