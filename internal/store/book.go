package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/talent-hunters/bookportal/types"
)

const bookColumns = `id, name, subject, status, grade, count, author, img, created_at, updated_at`

// BookRepository handles persistence for catalog books.
type BookRepository struct {
	db *sql.DB
}

func NewBookRepository(db *sql.DB) *BookRepository {
	return &BookRepository{db: db}
}

func (r *BookRepository) GetByID(ctx context.Context, id string) (types.Book, error) {
	return getBook(ctx, r.db, `WHERE id = $1`, id)
}

func (r *BookRepository) GetMany(ctx context.Context, ids []string) ([]types.Book, error) {
	if len(ids) == 0 {
		return []types.Book{}, nil
	}
	return listBooks(ctx, r.db, `WHERE id = ANY($1) ORDER BY created_at, id`, pq.Array(ids))
}

func (r *BookRepository) List(ctx context.Context, filter types.BookFilter) ([]types.Book, error) {
	var (
		clauses []string
		args    []any
	)
	placeholder := func(value any) string {
		args = append(args, value)
		return "$" + strconv.Itoa(len(args))
	}
	if filter.Grade != "" {
		clauses = append(clauses, "grade = "+placeholder(filter.Grade))
	}
	if filter.Subject != "" {
		clauses = append(clauses, "subject = "+placeholder(filter.Subject))
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = "+placeholder(filter.Status))
	}
	if filter.Author != "" {
		clauses = append(clauses, "author = "+placeholder(filter.Author))
	}
	if filter.ExactName != "" {
		clauses = append(clauses, "name = "+placeholder(filter.ExactName))
	}
	if filter.Name != "" {
		clauses = append(clauses, "name ILIKE "+placeholder(containsPattern(filter.Name)))
	}

	var query strings.Builder
	if len(clauses) > 0 {
		query.WriteString("WHERE " + strings.Join(clauses, " AND "))
	}
	query.WriteString(" ORDER BY created_at, id")
	if filter.Offset > 0 {
		query.WriteString(" OFFSET " + placeholder(filter.Offset))
	}
	if filter.Limit > 0 {
		query.WriteString(" LIMIT " + placeholder(filter.Limit))
	}
	return listBooks(ctx, r.db, query.String(), args...)
}

func (r *BookRepository) Create(ctx context.Context, book types.Book) (types.Book, error) {
	if book.ID == "" {
		book.ID = newID()
	}
	ts := now()
	book.CreatedAt = ts
	book.UpdatedAt = ts

	const query = `
		INSERT INTO books (id, name, subject, status, grade, count, author, img, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		book.ID,
		book.Name,
		book.Subject,
		book.Status,
		book.Grade,
		book.Count,
		book.Author,
		book.Img,
		book.CreatedAt,
		book.UpdatedAt,
	); err != nil {
		return types.Book{}, err
	}
	return book, nil
}

func (r *BookRepository) Update(ctx context.Context, id string, patch types.BookPatch) (types.Book, error) {
	var book types.Book
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		current, err := getBook(ctx, tx, `WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return err
		}
		patch.Apply(&current)
		current.UpdatedAt = now()

		const query = `
			UPDATE books
			SET name = $1,
				subject = $2,
				status = $3,
				grade = $4,
				count = $5,
				author = $6,
				img = $7,
				updated_at = $8
			WHERE id = $9`
		if _, err := tx.ExecContext(
			ctx,
			query,
			current.Name,
			current.Subject,
			current.Status,
			current.Grade,
			current.Count,
			current.Author,
			current.Img,
			current.UpdatedAt,
			current.ID,
		); err != nil {
			return err
		}
		book = current
		return nil
	})
	if err != nil {
		return types.Book{}, err
	}
	return book, nil
}

func (r *BookRepository) Delete(ctx context.Context, id string) (types.Book, error) {
	query := `DELETE FROM books WHERE id = $1 RETURNING ` + bookColumns
	book, err := scanBook(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Book{}, ErrBookNotFound
		}
		return types.Book{}, err
	}
	return book, nil
}

func getBook(ctx context.Context, q queryer, where string, args ...any) (types.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books ` + where
	book, err := scanBook(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Book{}, ErrBookNotFound
		}
		return types.Book{}, err
	}
	return book, nil
}

func listBooks(ctx context.Context, q queryer, tail string, args ...any) ([]types.Book, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+bookColumns+` FROM books `+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := make([]types.Book, 0)
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return books, nil
}

func scanBook(row rowScanner) (types.Book, error) {
	var book types.Book
	err := row.Scan(
		&book.ID,
		&book.Name,
		&book.Subject,
		&book.Status,
		&book.Grade,
		&book.Count,
		&book.Author,
		&book.Img,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	return book, err
}
