package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/aqasim81/library-catalog/internal/database"
)

func collect[T any](rows pgx.Rows, err error, scan func(rowScanner) (T, error), what string) ([]T, error) {
	if err != nil {
		return nil, translate(err, what)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (T, error) {
		return scan(row)
	})
	if err != nil {
		return nil, translate(err, what)
	}

	return items, nil
}

// CategoryRepository reads and writes categories.
type CategoryRepository struct {
	db database.Querier
}

// NewCategoryRepository returns a repository over db (a pool or a transaction).
func NewCategoryRepository(db database.Querier) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// FindAll returns every category ordered by name.
func (r *CategoryRepository) FindAll(ctx context.Context) ([]Category, error) {
	rows, err := r.db.Query(ctx, `SELECT `+categoryColumns+` FROM categories c ORDER BY c.name`)

	return collect(rows, err, scanCategory, "listing categories")
}

// FindByID returns the category or ErrNotFound.
func (r *CategoryRepository) FindByID(ctx context.Context, id int64) (*Category, error) {
	c, err := scanCategory(r.db.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories c WHERE c.id = $1`, id))
	if err != nil {
		return nil, translate(err, fmt.Sprintf("category %d", id))
	}

	return &c, nil
}

// Create inserts a category. A duplicate name yields ErrConflict.
func (r *CategoryRepository) Create(ctx context.Context, in CategoryInput) (*Category, error) {
	c, err := scanCategory(r.db.QueryRow(ctx,
		`INSERT INTO categories AS c (name, description) VALUES ($1, NULLIF($2, ''))
		 RETURNING `+categoryColumns,
		in.Name, in.Description))
	if err != nil {
		return nil, translate(err, "creating category")
	}

	return &c, nil
}

// BookRepository reads and writes books joined with their category.
type BookRepository struct {
	db database.Querier
}

// NewBookRepository returns a repository over db (a pool or a transaction).
func NewBookRepository(db database.Querier) *BookRepository {
	return &BookRepository{db: db}
}

func (r *BookRepository) list(ctx context.Context, what, where string, args ...any) ([]Book, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookColumns+` `+bookFrom+` `+where+` ORDER BY b.id`, args...)

	return collect(rows, err, scanBook, what)
}

// FindAll returns every book.
func (r *BookRepository) FindAll(ctx context.Context) ([]Book, error) {
	return r.list(ctx, "listing books", "")
}

// FindByID returns the book or ErrNotFound.
func (r *BookRepository) FindByID(ctx context.Context, id int64) (*Book, error) {
	b, err := scanBook(r.db.QueryRow(ctx, `SELECT `+bookColumns+` `+bookFrom+` WHERE b.id = $1`, id))
	if err != nil {
		return nil, translate(err, fmt.Sprintf("book %d", id))
	}

	return &b, nil
}

// Search matches keyword case-insensitively against title, author and ISBN.
func (r *BookRepository) Search(ctx context.Context, keyword string) ([]Book, error) {
	pattern := "%" + escapeLike(keyword) + "%"

	return r.list(ctx, "searching books",
		`WHERE b.title ILIKE $1 OR b.author ILIKE $1 OR b.isbn ILIKE $1`, pattern)
}

// FindByCategory returns the books of one category.
func (r *BookRepository) FindByCategory(ctx context.Context, categoryID int64) ([]Book, error) {
	return r.list(ctx, "listing books by category", `WHERE b.category_id = $1`, categoryID)
}

// FindAvailable returns books with at least one copy in stock.
func (r *BookRepository) FindAvailable(ctx context.Context) ([]Book, error) {
	return r.list(ctx, "listing available books", `WHERE b.stock_quantity > 0`)
}

// Create inserts a book and returns its id.
func (r *BookRepository) Create(ctx context.Context, in BookInput) (int64, error) {
	var id int64

	err := r.db.QueryRow(ctx,
		`INSERT INTO books (title, isbn, author, category_id, price, stock_quantity, description)
		 VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, NULLIF($7, ''))
		 RETURNING id`,
		in.Title, in.ISBN, in.Author, in.CategoryID, in.Price, in.StockQuantity, in.Description,
	).Scan(&id)
	if err != nil {
		return 0, translate(err, "creating book")
	}

	return id, nil
}

// Update overwrites a book's fields. A nil CategoryID keeps the current category.
func (r *BookRepository) Update(ctx context.Context, id int64, in BookInput) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE books SET title = $2, isbn = NULLIF($3, ''), author = $4,
		        category_id = COALESCE($5, category_id), price = $6, stock_quantity = $7,
		        description = NULLIF($8, ''), updated_at = NOW()
		 WHERE id = $1`,
		id, in.Title, in.ISBN, in.Author, in.CategoryID, in.Price, in.StockQuantity, in.Description,
	)
	if err != nil {
		return translate(err, fmt.Sprintf("updating book %d", id))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("book %d: %w", id, ErrNotFound)
	}

	return nil
}

// AdjustStock adds delta to the stock of a book, refusing to go below zero.
func (r *BookRepository) AdjustStock(ctx context.Context, id int64, delta int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE books SET stock_quantity = stock_quantity + $2, updated_at = NOW()
		 WHERE id = $1 AND stock_quantity + $2 >= 0`,
		id, delta)
	if err != nil {
		return translate(err, fmt.Sprintf("adjusting stock of book %d", id))
	}

	if tag.RowsAffected() == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}

		return fmt.Errorf("book %d: %w", id, ErrUnavailable)
	}

	return nil
}

// Delete removes a book and its borrowings.
func (r *BookRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return translate(err, fmt.Sprintf("deleting book %d", id))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("book %d: %w", id, ErrNotFound)
	}

	return nil
}

// BorrowingRepository reads and writes borrowings.
type BorrowingRepository struct {
	db database.Querier
}

// NewBorrowingRepository returns a repository over db (a pool or a transaction).
func NewBorrowingRepository(db database.Querier) *BorrowingRepository {
	return &BorrowingRepository{db: db}
}

func (r *BorrowingRepository) list(ctx context.Context, what, where string, args ...any) ([]Borrowing, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+borrowingColumns+` FROM borrowings `+where+` ORDER BY due_date, id`, args...)

	return collect(rows, err, scanBorrowing, what)
}

// Find returns the borrowings matching every non-zero filter field.
func (r *BorrowingRepository) Find(ctx context.Context, f BorrowingFilter) ([]Borrowing, error) {
	var (
		conds []string
		args  []any
	)

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.UserID != 0 {
		add("user_id = $%d", f.UserID)
	}

	if f.BookID != 0 {
		add("book_id = $%d", f.BookID)
	}

	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	return r.list(ctx, "listing borrowings", where, args...)
}

// FindByUser returns the borrowings of one user.
func (r *BorrowingRepository) FindByUser(ctx context.Context, userID int64) ([]Borrowing, error) {
	return r.Find(ctx, BorrowingFilter{UserID: userID})
}

// FindByBook returns the borrowings of one book.
func (r *BorrowingRepository) FindByBook(ctx context.Context, bookID int64) ([]Borrowing, error) {
	return r.Find(ctx, BorrowingFilter{BookID: bookID})
}

// FindByStatus returns the borrowings in one state.
func (r *BorrowingRepository) FindByStatus(ctx context.Context, status BorrowingStatus) ([]Borrowing, error) {
	return r.Find(ctx, BorrowingFilter{Status: status})
}

// FindDueBefore returns borrowings in status whose due date is before date.
func (r *BorrowingRepository) FindDueBefore(ctx context.Context, date time.Time, status BorrowingStatus) ([]Borrowing, error) {
	return r.list(ctx, "listing due borrowings", `WHERE due_date < $1 AND status = $2`, date, string(status))
}

// FindByID returns the borrowing or ErrNotFound.
func (r *BorrowingRepository) FindByID(ctx context.Context, id int64) (*Borrowing, error) {
	br, err := scanBorrowing(r.db.QueryRow(ctx, `SELECT `+borrowingColumns+` FROM borrowings WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err, fmt.Sprintf("borrowing %d", id))
	}

	return &br, nil
}

// Create inserts a borrowing in status BORROWED.
func (r *BorrowingRepository) Create(ctx context.Context, in BorrowInput) (*Borrowing, error) {
	br, err := scanBorrowing(r.db.QueryRow(ctx,
		`INSERT INTO borrowings (user_id, book_id, borrow_date, due_date, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+borrowingColumns,
		in.UserID, in.BookID, in.BorrowDate, in.DueDate, string(StatusBorrowed)))
	if err != nil {
		return nil, translate(err, "creating borrowing")
	}

	return &br, nil
}

// MarkReturned closes an open borrowing on the given date.
func (r *BorrowingRepository) MarkReturned(ctx context.Context, id int64, on time.Time) (*Borrowing, error) {
	br, err := scanBorrowing(r.db.QueryRow(ctx,
		`UPDATE borrowings SET status = $2, return_date = $3, updated_at = NOW()
		 WHERE id = $1 AND status <> $2
		 RETURNING `+borrowingColumns,
		id, string(StatusReturned), on))
	if err != nil {
		return nil, translate(err, fmt.Sprintf("returning borrowing %d", id))
	}

	return &br, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
