package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"

	"github.com/aqasim81/library-catalog/internal/database"
	"github.com/aqasim81/library-catalog/internal/logging"
)

// DB is a pool that can both query and begin transactions; *pgxpool.Pool satisfies it.
type DB interface {
	database.Querier
	database.TxBeginner
}

// Column limits, in characters, from the VARCHAR sizes in migrations/.
const (
	maxTitleLen        = 255
	maxAuthorLen       = 255
	maxISBNLen         = 20
	maxCategoryNameLen = 100
)

// BookService implements the book use cases. Reads go straight to the pool;
// each write runs in its own transaction.
type BookService struct {
	db DB
}

// NewBookService creates a BookService.
func NewBookService(db DB) *BookService {
	return &BookService{db: db}
}

// ListBooks returns every book.
func (s *BookService) ListBooks(ctx context.Context) ([]Book, error) {
	return NewBookRepository(s.db).FindAll(ctx)
}

// GetBook returns one book or ErrNotFound.
func (s *BookService) GetBook(ctx context.Context, id int64) (*Book, error) {
	return NewBookRepository(s.db).FindByID(ctx, id)
}

// SearchBooks matches keyword against title, author and ISBN.
func (s *BookService) SearchBooks(ctx context.Context, keyword string) ([]Book, error) {
	return NewBookRepository(s.db).Search(ctx, keyword)
}

// BooksByCategory returns the books of one category.
func (s *BookService) BooksByCategory(ctx context.Context, categoryID int64) ([]Book, error) {
	return NewBookRepository(s.db).FindByCategory(ctx, categoryID)
}

// AvailableBooks returns books in stock.
func (s *BookService) AvailableBooks(ctx context.Context) ([]Book, error) {
	return NewBookRepository(s.db).FindAvailable(ctx)
}

// CreateBook validates and inserts a book. An unknown category id is ignored.
func (s *BookService) CreateBook(ctx context.Context, in BookInput) (*Book, error) {
	if err := ValidateBook(in); err != nil {
		return nil, err
	}

	var created *Book

	err := database.ExecInTransaction(ctx, s.db, func(tx pgx.Tx) error {
		var err error

		in.CategoryID, err = resolveCategory(ctx, tx, in.CategoryID)
		if err != nil {
			return err
		}

		books := NewBookRepository(tx)

		id, err := books.Create(ctx, in)
		if err != nil {
			return err
		}

		created, err = books.FindByID(ctx, id)

		return err
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).InfoContext(ctx, "book created", "book_id", created.ID)

	return created, nil
}

// UpdateBook overwrites a book. The category changes only when the given id
// resolves to an existing category.
func (s *BookService) UpdateBook(ctx context.Context, id int64, in BookInput) (*Book, error) {
	if err := ValidateBook(in); err != nil {
		return nil, err
	}

	var updated *Book

	err := database.ExecInTransaction(ctx, s.db, func(tx pgx.Tx) error {
		var err error

		in.CategoryID, err = resolveCategory(ctx, tx, in.CategoryID)
		if err != nil {
			return err
		}

		books := NewBookRepository(tx)
		if err := books.Update(ctx, id, in); err != nil {
			return err
		}

		updated, err = books.FindByID(ctx, id)

		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteBook removes a book or returns ErrNotFound.
func (s *BookService) DeleteBook(ctx context.Context, id int64) error {
	return database.ExecInTransaction(ctx, s.db, func(tx pgx.Tx) error {
		return NewBookRepository(tx).Delete(ctx, id)
	})
}

// resolveCategory returns id if the category exists and nil otherwise.
func resolveCategory(ctx context.Context, q database.Querier, id *int64) (*int64, error) {
	if id == nil {
		return nil, nil
	}

	c, err := NewCategoryRepository(q).FindByID(ctx, *id)
	if errors.Is(err, ErrNotFound) {
		logging.FromContext(ctx).DebugContext(ctx, "ignoring unknown category", "category_id", *id)

		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &c.ID, nil
}

// ValidateBook checks the writable book fields.
func ValidateBook(in BookInput) error {
	v := validator{}

	v.check(strings.TrimSpace(in.Title) != "", "title", "is required")
	v.check(utf8.RuneCountInString(in.Title) <= maxTitleLen, "title", "must be at most 255 characters")
	v.check(strings.TrimSpace(in.Author) != "", "author", "is required")
	v.check(utf8.RuneCountInString(in.Author) <= maxAuthorLen, "author", "must be at most 255 characters")
	v.check(in.Price == nil || *in.Price >= 0, "price", "must not be negative")
	v.check(in.StockQuantity >= 0, "stockQuantity", "must not be negative")
	v.check(utf8.RuneCountInString(in.ISBN) <= maxISBNLen, "isbn", "must be at most 20 characters")

	return v.err()
}

// ValidateCategory checks the writable category fields.
func ValidateCategory(in CategoryInput) error {
	v := validator{}

	v.check(strings.TrimSpace(in.Name) != "", "name", "is required")
	v.check(utf8.RuneCountInString(in.Name) <= maxCategoryNameLen, "name", "must be at most 100 characters")

	return v.err()
}

// CategoryService implements the category use cases.
type CategoryService struct {
	db DB
}

// NewCategoryService creates a CategoryService.
func NewCategoryService(db DB) *CategoryService {
	return &CategoryService{db: db}
}

// ListCategories returns every category.
func (s *CategoryService) ListCategories(ctx context.Context) ([]Category, error) {
	return NewCategoryRepository(s.db).FindAll(ctx)
}

// GetCategory returns one category or ErrNotFound.
func (s *CategoryService) GetCategory(ctx context.Context, id int64) (*Category, error) {
	return NewCategoryRepository(s.db).FindByID(ctx, id)
}

// CreateCategory validates and inserts a category.
func (s *CategoryService) CreateCategory(ctx context.Context, in CategoryInput) (*Category, error) {
	if err := ValidateCategory(in); err != nil {
		return nil, err
	}

	return NewCategoryRepository(s.db).Create(ctx, in)
}

// BorrowingService lends and takes back books, keeping stock in step.
type BorrowingService struct {
	db  DB
	now func() time.Time
}

// NewBorrowingService creates a BorrowingService.
func NewBorrowingService(db DB) *BorrowingService {
	return &BorrowingService{db: db, now: time.Now}
}

// ListBorrowings returns the borrowings matching f.
func (s *BorrowingService) ListBorrowings(ctx context.Context, f BorrowingFilter) ([]Borrowing, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, &ValidationError{Fields: map[string]string{"status": fmt.Sprintf("unknown status %q", f.Status)}}
	}

	return NewBorrowingRepository(s.db).Find(ctx, f)
}

// Overdue returns open borrowings whose due date has passed.
func (s *BorrowingService) Overdue(ctx context.Context) ([]Borrowing, error) {
	return NewBorrowingRepository(s.db).FindDueBefore(ctx, today(s.now()), StatusBorrowed)
}

// Borrow lends a copy of a book, decrementing its stock.
func (s *BorrowingService) Borrow(ctx context.Context, in BorrowInput) (*Borrowing, error) {
	if in.BorrowDate.IsZero() {
		in.BorrowDate = today(s.now())
	}

	if err := ValidateBorrow(in); err != nil {
		return nil, err
	}

	var created *Borrowing

	err := database.ExecInTransaction(ctx, s.db, func(tx pgx.Tx) error {
		if err := NewBookRepository(tx).AdjustStock(ctx, in.BookID, -1); err != nil {
			return err
		}

		var err error
		created, err = NewBorrowingRepository(tx).Create(ctx, in)

		return err
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).InfoContext(ctx, "book borrowed",
		slog.Int64("borrowing_id", created.ID),
		slog.Int64("book_id", created.BookID),
		slog.Int64("user_id", created.UserID),
	)

	return created, nil
}

// Return closes a borrowing and puts the copy back in stock.
func (s *BorrowingService) Return(ctx context.Context, id int64) (*Borrowing, error) {
	var returned *Borrowing

	err := database.ExecInTransaction(ctx, s.db, func(tx pgx.Tx) error {
		borrowings := NewBorrowingRepository(tx)

		current, err := borrowings.FindByID(ctx, id)
		if err != nil {
			return err
		}

		if current.Status == StatusReturned {
			return fmt.Errorf("borrowing %d: %w", id, ErrAlreadyReturned)
		}

		returned, err = borrowings.MarkReturned(ctx, id, today(s.now()))
		if err != nil {
			return err
		}

		return NewBookRepository(tx).AdjustStock(ctx, current.BookID, 1)
	})
	if err != nil {
		return nil, err
	}

	return returned, nil
}

// ValidateBorrow checks a borrowing request.
func ValidateBorrow(in BorrowInput) error {
	v := validator{}

	v.check(in.UserID > 0, "userId", "is required")
	v.check(in.BookID > 0, "bookId", "is required")
	v.check(!in.DueDate.IsZero(), "dueDate", "is required")
	v.check(in.DueDate.IsZero() || !in.DueDate.Before(in.BorrowDate), "dueDate", "must not be before borrowDate")

	return v.err()
}

func today(t time.Time) time.Time {
	y, m, d := t.Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
