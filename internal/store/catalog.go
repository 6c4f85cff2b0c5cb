package store

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/talent-hunters/bookportal/types"
)

// CatalogRepository handles the class and subject lookup lists.
type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListClasses returns the matching classes sorted by grade.
func (r *CatalogRepository) ListClasses(ctx context.Context, filter types.ClassFilter) ([]types.Class, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Grade != "" {
		args = append(args, filter.Grade)
		clauses = append(clauses, "grade = $"+strconv.Itoa(len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		clauses = append(clauses, "category = $"+strconv.Itoa(len(args)))
	}

	query := `SELECT id, grade, category FROM classes`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY grade, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	classes := make([]types.Class, 0)
	for rows.Next() {
		var c types.Class
		if err := rows.Scan(&c.ID, &c.Grade, &c.Category); err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

func (r *CatalogRepository) CreateClass(ctx context.Context, class types.Class) (types.Class, error) {
	if class.ID == "" {
		class.ID = newID()
	}
	const query = `INSERT INTO classes (id, grade, category) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, class.ID, class.Grade, class.Category); err != nil {
		return types.Class{}, err
	}
	return class, nil
}

// ListSubjects returns the subjects sorted by name. A non-empty subject
// selects only exact matches.
func (r *CatalogRepository) ListSubjects(ctx context.Context, subject string) ([]types.Subject, error) {
	query := `SELECT id, subject FROM subjects`
	var args []any
	if subject != "" {
		query += ` WHERE subject = $1`
		args = append(args, subject)
	}
	query += ` ORDER BY subject, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subjects := make([]types.Subject, 0)
	for rows.Next() {
		var s types.Subject
		if err := rows.Scan(&s.ID, &s.Subject); err != nil {
			return nil, err
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

func (r *CatalogRepository) CreateSubject(ctx context.Context, subject types.Subject) (types.Subject, error) {
	if subject.ID == "" {
		subject.ID = newID()
	}
	const query = `INSERT INTO subjects (id, subject) VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, query, subject.ID, subject.Subject); err != nil {
		return types.Subject{}, err
	}
	return subject, nil
}
