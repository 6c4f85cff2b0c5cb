package services

import (
	"context"
	"strings"

	"github.com/talent-hunters/bookportal/types"
)

// CatalogRepository defines persistence for the class and subject lists.
type CatalogRepository interface {
	ListClasses(ctx context.Context, filter types.ClassFilter) ([]types.Class, error)
	CreateClass(ctx context.Context, class types.Class) (types.Class, error)
	ListSubjects(ctx context.Context, subject string) ([]types.Subject, error)
	CreateSubject(ctx context.Context, subject types.Subject) (types.Subject, error)
}

// ClassInput is the payload for adding a class.
type ClassInput struct {
	Grade    string `json:"grade" validate:"required"`
	Category string `json:"category"`
}

// SubjectInput is the payload for adding a subject.
type SubjectInput struct {
	Subject string `json:"subject" validate:"required"`
}

// CatalogService serves the lookup lists used by the portal's menus.
type CatalogService struct {
	repo      CatalogRepository
	validator *Validator
}

func NewCatalogService(repo CatalogRepository, validator *Validator) *CatalogService {
	return &CatalogService{repo: repo, validator: validator}
}

// ListClasses returns matching classes sorted by grade.
func (s *CatalogService) ListClasses(ctx context.Context, filter types.ClassFilter) ([]types.Class, error) {
	return s.repo.ListClasses(ctx, filter)
}

// ListSubjects returns subjects sorted by name, optionally only those
// named subject.
func (s *CatalogService) ListSubjects(ctx context.Context, subject string) ([]types.Subject, error) {
	return s.repo.ListSubjects(ctx, subject)
}

func (s *CatalogService) CreateClass(ctx context.Context, in ClassInput) (types.Class, error) {
	in.Grade = strings.TrimSpace(in.Grade)
	in.Category = strings.TrimSpace(in.Category)
	if err := s.validator.Struct(in); err != nil {
		return types.Class{}, err
	}
	return s.repo.CreateClass(ctx, types.Class{Grade: in.Grade, Category: in.Category})
}

func (s *CatalogService) CreateSubject(ctx context.Context, in SubjectInput) (types.Subject, error) {
	in.Subject = strings.TrimSpace(in.Subject)
	if err := s.validator.Struct(in); err != nil {
		return types.Subject{}, err
	}
	return s.repo.CreateSubject(ctx, types.Subject{Subject: in.Subject})
}
