// Package catalog maps library rows (categories, books, users, borrowings)
// to Go values and implements the write paths on top of them.
package catalog

import "time"

// Category groups books.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Book is a catalog entry. Category is nil for uncategorized books.
type Book struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	ISBN          string    `json:"isbn,omitempty"`
	Author        string    `json:"author"`
	Category      *Category `json:"category,omitempty"`
	Price         *float64  `json:"price,omitempty"`
	StockQuantity int       `json:"stockQuantity"`
	Description   string    `json:"description,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// BorrowingStatus is the lifecycle state of a borrowing.
type BorrowingStatus string

// Borrowing states.
const (
	StatusBorrowed BorrowingStatus = "BORROWED"
	StatusReturned BorrowingStatus = "RETURNED"
	StatusOverdue  BorrowingStatus = "OVERDUE"
)

// Valid reports whether s is a known status.
func (s BorrowingStatus) Valid() bool {
	switch s {
	case StatusBorrowed, StatusReturned, StatusOverdue:
		return true
	default:
		return false
	}
}

// Borrowing records a book lent to a user.
type Borrowing struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"userId"`
	BookID     int64           `json:"bookId"`
	BorrowDate time.Time       `json:"borrowDate"`
	DueDate    time.Time       `json:"dueDate"`
	ReturnDate *time.Time      `json:"returnDate,omitempty"`
	Status     BorrowingStatus `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// BookInput carries the writable fields of a book.
type BookInput struct {
	Title         string
	ISBN          string
	Author        string
	CategoryID    *int64
	Price         *float64
	StockQuantity int
	Description   string
}

// CategoryInput carries the writable fields of a category.
type CategoryInput struct {
	Name        string
	Description string
}

// BorrowInput describes a new borrowing. A zero BorrowDate means today.
type BorrowInput struct {
	UserID     int64
	BookID     int64
	BorrowDate time.Time
	DueDate    time.Time
}

// BorrowingFilter narrows a borrowing listing; zero fields are ignored.
type BorrowingFilter struct {
	UserID int64
	BookID int64
	Status BorrowingStatus
}
