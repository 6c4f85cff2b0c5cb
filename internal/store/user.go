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

const userColumns = `id, username, father_name, family_name, address, phone_number, email,
		       password_hash, account_type, created_at, updated_at`

// UserRepository handles persistence for users and their book lists.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	return getUser(ctx, r.db, `WHERE id = $1`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return getUser(ctx, r.db, `WHERE email = $1`, email)
}

func (r *UserRepository) GetMany(ctx context.Context, ids []string) ([]types.User, error) {
	if len(ids) == 0 {
		return []types.User{}, nil
	}
	return listUsers(ctx, r.db, `WHERE id = ANY($1)`, pq.Array(ids))
}

func (r *UserRepository) List(ctx context.Context, filter types.UserFilter) ([]types.User, error) {
	var (
		clauses []string
		args    []any
	)
	add := func(column, value string) {
		args = append(args, value)
		clauses = append(clauses, column+" = $"+strconv.Itoa(len(args)))
	}
	if filter.AccountType != "" {
		add("account_type", string(filter.AccountType))
	}
	if filter.Username != "" {
		add("username", filter.Username)
	}
	if filter.FamilyName != "" {
		add("family_name", filter.FamilyName)
	}

	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	return listUsers(ctx, r.db, where, args...)
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	if user.ID == "" {
		user.ID = newID()
	}
	ts := now()
	user.CreatedAt = ts
	user.UpdatedAt = ts
	user.Books = []types.BookRef{}

	const query = `
		INSERT INTO users (id, username, father_name, family_name, address, phone_number, email,
		                   password_hash, account_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Username,
		user.FatherName,
		user.FamilyName,
		user.Address,
		user.PhoneNumber,
		user.Email,
		user.PasswordHash,
		string(user.AccountType),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.User{}, ErrDuplicateEmail
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, id string, patch types.UserPatch) (types.User, error) {
	var user types.User
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		current, err := getUser(ctx, tx, `WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return err
		}
		patch.Apply(&current)
		current.UpdatedAt = now()

		const query = `
			UPDATE users
			SET username = $1,
				father_name = $2,
				family_name = $3,
				address = $4,
				phone_number = $5,
				email = $6,
				account_type = $7,
				updated_at = $8
			WHERE id = $9`
		if _, err := tx.ExecContext(
			ctx,
			query,
			current.Username,
			current.FatherName,
			current.FamilyName,
			current.Address,
			current.PhoneNumber,
			current.Email,
			string(current.AccountType),
			current.UpdatedAt,
			current.ID,
		); err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateEmail
			}
			return err
		}
		user = current
		return nil
	})
	if err != nil {
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) (types.User, error) {
	var user types.User
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		current, err := getUser(ctx, tx, `WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
			return err
		}
		user = current
		return nil
	})
	if err != nil {
		return types.User{}, err
	}
	return user, nil
}

// ClearBookLists empties every user's book list and returns the number of
// users whose list changed.
func (r *UserRepository) ClearBookLists(ctx context.Context) (int64, error) {
	const query = `
		WITH cleared AS (
			DELETE FROM user_books RETURNING user_id
		)
		SELECT COUNT(DISTINCT user_id) FROM cleared`
	var modified int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&modified); err != nil {
		return 0, err
	}
	return modified, nil
}

func getUser(ctx context.Context, q queryer, where string, args ...any) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ` + where
	user, err := scanUser(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrUserNotFound
		}
		return types.User{}, err
	}

	books, err := loadBookRefs(ctx, q, []string{user.ID})
	if err != nil {
		return types.User{}, err
	}
	user.Books = books[user.ID]
	if user.Books == nil {
		user.Books = []types.BookRef{}
	}
	return user, nil
}

func listUsers(ctx context.Context, q queryer, where string, args ...any) ([]types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ` + where + ` ORDER BY created_at, id`
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]types.User, 0)
	ids := make([]string, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
		ids = append(ids, user.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	books, err := loadBookRefs(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Books = books[users[i].ID]
		if users[i].Books == nil {
			users[i].Books = []types.BookRef{}
		}
	}
	return users, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (types.User, error) {
	var (
		user        types.User
		accountType string
	)
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.FatherName,
		&user.FamilyName,
		&user.Address,
		&user.PhoneNumber,
		&user.Email,
		&user.PasswordHash,
		&accountType,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	user.AccountType = types.AccountType(accountType)
	return user, err
}

// loadBookRefs returns the ordered book lists of the given users.
func loadBookRefs(ctx context.Context, q queryer, userIDs []string) (map[string][]types.BookRef, error) {
	refs := make(map[string][]types.BookRef, len(userIDs))
	if len(userIDs) == 0 {
		return refs, nil
	}

	const query = `
		SELECT user_id, book_id
		FROM user_books
		WHERE user_id = ANY($1)
		ORDER BY id`
	rows, err := q.QueryContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var userID, bookID string
		if err := rows.Scan(&userID, &bookID); err != nil {
			return nil, err
		}
		refs[userID] = append(refs[userID], types.BookRef{BookID: bookID})
	}
	return refs, rows.Err()
}
