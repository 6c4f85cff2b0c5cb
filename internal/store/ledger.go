package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/talent-hunters/bookportal/types"
)

// LedgerRepository handles the append-only ownership logs.
type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// RecordOrder appends order to the order log and its book to the user's
// book list in one transaction, returning the updated user.
func (r *LedgerRepository) RecordOrder(ctx context.Context, order types.OrderedBook, opts types.OrderOptions) (types.User, error) {
	if order.ID == "" {
		order.ID = newID()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now()
	}

	var user types.User
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var userID string
		err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, order.UserID).Scan(&userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrUserNotFound
			}
			return err
		}

		if opts.RequireStock {
			if err := checkStock(ctx, tx, order.BookID); err != nil {
				return err
			}
		}

		const insertOrder = `
			INSERT INTO ordered_books (id, user_id, book_id, created_at)
			VALUES ($1, $2, $3, $4)`
		if _, err := tx.ExecContext(ctx, insertOrder, order.ID, order.UserID, order.BookID, order.CreatedAt); err != nil {
			return err
		}

		const insertRef = `
			INSERT INTO user_books (user_id, book_id, added_at)
			VALUES ($1, $2, $3)`
		if _, err := tx.ExecContext(ctx, insertRef, order.UserID, order.BookID, order.CreatedAt); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `UPDATE users SET updated_at = $1 WHERE id = $2`, order.CreatedAt, order.UserID); err != nil {
			return err
		}

		user, err = getUser(ctx, tx, `WHERE id = $1`, order.UserID)
		return err
	})
	if err != nil {
		return types.User{}, err
	}
	return user, nil
}

// checkStock locks the book row and fails unless it has copies left.
func checkStock(ctx context.Context, tx *sql.Tx, bookID string) error {
	var count int
	err := tx.QueryRowContext(ctx, `SELECT count FROM books WHERE id = $1 FOR UPDATE`, bookID).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBookNotFound
		}
		return err
	}

	var ordered int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM ordered_books WHERE book_id = $1`, bookID).Scan(&ordered); err != nil {
		return err
	}
	if ordered >= count {
		return ErrOutOfStock
	}
	return nil
}

func (r *LedgerRepository) AddSoldOut(ctx context.Context, entry types.SoldOutBook) (types.SoldOutBook, error) {
	if entry.ID == "" {
		entry.ID = newID()
	}
	entry.CreatedAt = now()

	const query = `
		INSERT INTO soldout_books (id, user_id, book_id, created_at)
		VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, entry.ID, entry.UserID, entry.BookID, entry.CreatedAt); err != nil {
		return types.SoldOutBook{}, err
	}
	return entry, nil
}

func (r *LedgerRepository) AddRequest(ctx context.Context, entry types.RequestedBook) (types.RequestedBook, error) {
	if entry.ID == "" {
		entry.ID = newID()
	}
	entry.CreatedAt = now()

	const query = `
		INSERT INTO requested_books (id, user_id, bookname, subject, grade, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query, entry.ID, entry.UserID, entry.BookName, entry.Subject, entry.Grade, entry.CreatedAt); err != nil {
		return types.RequestedBook{}, err
	}
	return entry, nil
}

func (r *LedgerRepository) AddDonation(ctx context.Context, entry types.DonatedBook) (types.DonatedBook, error) {
	if entry.ID == "" {
		entry.ID = newID()
	}
	entry.CreatedAt = now()

	const query = `
		INSERT INTO donated_books (id, user_id, bookname, subject, grade, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query, entry.ID, entry.UserID, entry.BookName, entry.Subject, entry.Grade, entry.CreatedAt); err != nil {
		return types.DonatedBook{}, err
	}
	return entry, nil
}

func (r *LedgerRepository) ListOrders(ctx context.Context) ([]types.OrderedBook, error) {
	const query = `SELECT id, user_id, book_id, created_at FROM ordered_books ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]types.OrderedBook, 0)
	for rows.Next() {
		var e types.OrderedBook
		if err := rows.Scan(&e.ID, &e.UserID, &e.BookID, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *LedgerRepository) ListSoldOut(ctx context.Context) ([]types.SoldOutBook, error) {
	const query = `SELECT id, user_id, book_id, created_at FROM soldout_books ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]types.SoldOutBook, 0)
	for rows.Next() {
		var e types.SoldOutBook
		if err := rows.Scan(&e.ID, &e.UserID, &e.BookID, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *LedgerRepository) ListRequests(ctx context.Context) ([]types.RequestedBook, error) {
	const query = `
		SELECT id, user_id, bookname, subject, grade, created_at
		FROM requested_books
		ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]types.RequestedBook, 0)
	for rows.Next() {
		var e types.RequestedBook
		if err := rows.Scan(&e.ID, &e.UserID, &e.BookName, &e.Subject, &e.Grade, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *LedgerRepository) ListDonations(ctx context.Context) ([]types.DonatedBook, error) {
	const query = `
		SELECT id, user_id, bookname, subject, grade, created_at
		FROM donated_books
		ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]types.DonatedBook, 0)
	for rows.Next() {
		var e types.DonatedBook
		if err := rows.Scan(&e.ID, &e.UserID, &e.BookName, &e.Subject, &e.Grade, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
