package memstore

import (
	"cmp"
	"context"
	"slices"

	"github.com/talent-hunters/bookportal/types"
)

// CatalogRepository stores classes and subjects in memory.
type CatalogRepository struct {
	s *Store
}

func (r *CatalogRepository) ListClasses(_ context.Context, filter types.ClassFilter) ([]types.Class, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	classes := make([]types.Class, 0)
	for _, c := range r.s.classes {
		if filter.Matches(c) {
			classes = append(classes, c)
		}
	}
	slices.SortStableFunc(classes, func(a, b types.Class) int {
		return cmp.Compare(a.Grade, b.Grade)
	})
	return classes, nil
}

func (r *CatalogRepository) CreateClass(_ context.Context, class types.Class) (types.Class, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if class.ID == "" {
		class.ID = newID()
	}
	r.s.classes = append(r.s.classes, class)
	return class, nil
}

func (r *CatalogRepository) ListSubjects(_ context.Context, subject string) ([]types.Subject, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	subjects := make([]types.Subject, 0)
	for _, s := range r.s.subjects {
		if subject == "" || s.Subject == subject {
			subjects = append(subjects, s)
		}
	}
	slices.SortStableFunc(subjects, func(a, b types.Subject) int {
		return cmp.Compare(a.Subject, b.Subject)
	})
	return subjects, nil
}

func (r *CatalogRepository) CreateSubject(_ context.Context, subject types.Subject) (types.Subject, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if subject.ID == "" {
		subject.ID = newID()
	}
	r.s.subjects = append(r.s.subjects, subject)
	return subject, nil
}
