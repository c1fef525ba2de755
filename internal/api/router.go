// Package api exposes the catalog and the migration status over HTTP.
package api

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/aqasim81/library-catalog/internal/catalog"
	"github.com/aqasim81/library-catalog/internal/runner"
)

// BookService is the book surface used by the handlers.
type BookService interface {
	ListBooks(ctx context.Context) ([]catalog.Book, error)
	GetBook(ctx context.Context, id int64) (*catalog.Book, error)
	SearchBooks(ctx context.Context, keyword string) ([]catalog.Book, error)
	BooksByCategory(ctx context.Context, categoryID int64) ([]catalog.Book, error)
	AvailableBooks(ctx context.Context) ([]catalog.Book, error)
	CreateBook(ctx context.Context, in catalog.BookInput) (*catalog.Book, error)
	UpdateBook(ctx context.Context, id int64, in catalog.BookInput) (*catalog.Book, error)
	DeleteBook(ctx context.Context, id int64) error
}

// CategoryService is the category surface used by the handlers.
type CategoryService interface {
	ListCategories(ctx context.Context) ([]catalog.Category, error)
	GetCategory(ctx context.Context, id int64) (*catalog.Category, error)
	CreateCategory(ctx context.Context, in catalog.CategoryInput) (*catalog.Category, error)
}

// BorrowingService is the borrowing surface used by the handlers.
type BorrowingService interface {
	ListBorrowings(ctx context.Context, f catalog.BorrowingFilter) ([]catalog.Borrowing, error)
	Overdue(ctx context.Context) ([]catalog.Borrowing, error)
	Borrow(ctx context.Context, in catalog.BorrowInput) (*catalog.Borrowing, error)
	Return(ctx context.Context, id int64) (*catalog.Borrowing, error)
}

// MigrationReporter produces the read-only migration status.
type MigrationReporter interface {
	Info(ctx context.Context) (*runner.Report, error)
}

// Deps holds the services injected into the handlers.
type Deps struct {
	Books      BookService
	Categories CategoryService
	Borrowings BorrowingService
	Migrations MigrationReporter
	Logger     *slog.Logger
}

// Handler serves the REST endpoints.
type Handler struct {
	books      BookService
	categories CategoryService
	borrowings BorrowingService
	migrations MigrationReporter
}

// NewRouter builds the gin engine with middleware and every route registered.
func NewRouter(deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		books:      deps.Books,
		categories: deps.Categories,
		borrowings: deps.Borrowings,
		migrations: deps.Migrations,
	}

	r := gin.New()
	r.Use(RequestID(), RequestLogger(logger), Recovery(logger))

	api := r.Group("/api")

	books := api.Group("/books")
	books.GET("", h.ListBooks)
	books.GET("/search", h.SearchBooks)
	books.GET("/available", h.AvailableBooks)
	books.GET("/category/:categoryId", h.BooksByCategory)
	books.GET("/:id", h.GetBook)
	books.POST("", h.CreateBook)
	books.PUT("/:id", h.UpdateBook)
	books.DELETE("/:id", h.DeleteBook)

	categories := api.Group("/categories")
	categories.GET("", h.ListCategories)
	categories.GET("/:id", h.GetCategory)
	categories.POST("", h.CreateCategory)

	borrowings := api.Group("/borrowings")
	borrowings.GET("", h.ListBorrowings)
	borrowings.GET("/overdue", h.OverdueBorrowings)
	borrowings.POST("", h.Borrow)
	borrowings.PUT("/:id/return", h.ReturnBorrowing)

	api.GET("/flyway/info", h.MigrationInfo)

	return r
}
