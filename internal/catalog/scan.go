package catalog

import "time"

// rowScanner is satisfied by pgx.Row and pgx.CollectableRow.
type rowScanner interface {
	Scan(dest ...any) error
}

const categoryColumns = `c.id, c.name, COALESCE(c.description, ''), c.created_at`

func scanCategory(row rowScanner) (Category, error) {
	var c Category

	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt)

	return c, err
}

const bookColumns = `b.id, b.title, COALESCE(b.isbn, ''), b.author, b.price::float8, b.stock_quantity,
	COALESCE(b.description, ''), b.created_at, b.updated_at,
	c.id, c.name, COALESCE(c.description, ''), c.created_at`

const bookFrom = `FROM books b LEFT JOIN categories c ON c.id = b.category_id`

// scanBook reads bookColumns; the category columns are NULL for uncategorized books.
func scanBook(row rowScanner) (Book, error) {
	var (
		b          Book
		catID      *int64
		catName    *string
		catDesc    string
		catCreated *time.Time
	)

	err := row.Scan(
		&b.ID, &b.Title, &b.ISBN, &b.Author, &b.Price, &b.StockQuantity,
		&b.Description, &b.CreatedAt, &b.UpdatedAt,
		&catID, &catName, &catDesc, &catCreated,
	)
	if err != nil {
		return Book{}, err
	}

	if catID != nil {
		b.Category = &Category{ID: *catID, Description: catDesc}

		if catName != nil {
			b.Category.Name = *catName
		}

		if catCreated != nil {
			b.Category.CreatedAt = *catCreated
		}
	}

	return b, nil
}

const borrowingColumns = `id, user_id, book_id, borrow_date, due_date, return_date, status, created_at, updated_at`

func scanBorrowing(row rowScanner) (Borrowing, error) {
	var br Borrowing

	err := row.Scan(
		&br.ID, &br.UserID, &br.BookID, &br.BorrowDate, &br.DueDate, &br.ReturnDate,
		&br.Status, &br.CreatedAt, &br.UpdatedAt,
	)

	return br, err
}
