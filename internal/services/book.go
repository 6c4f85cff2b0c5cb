package services

import (
	"context"
	"fmt"
	"io"
	"math"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/talent-hunters/bookportal/internal/storage"
	"github.com/talent-hunters/bookportal/types"
)

// BooksPerPage is the page size of paginated book listings.
const BooksPerPage = 10

// maxPage is the last page whose offset fits in an int.
const maxPage = math.MaxInt/BooksPerPage + 1

// BookRepository defines persistence operations for books.
type BookRepository interface {
	GetByID(ctx context.Context, id string) (types.Book, error)
	GetMany(ctx context.Context, ids []string) ([]types.Book, error)
	List(ctx context.Context, filter types.BookFilter) ([]types.Book, error)
	Create(ctx context.Context, book types.Book) (types.Book, error)
	Update(ctx context.Context, id string, patch types.BookPatch) (types.Book, error)
	Delete(ctx context.Context, id string) (types.Book, error)
}

// CoverStore keeps cover images in object storage.
type CoverStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

// Cover is an uploaded cover image.
type Cover struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// BookInput is the payload for adding a book.
type BookInput struct {
	Name    string `json:"name" validate:"required"`
	Subject string `json:"subject"`
	Status  string `json:"status" validate:"required"`
	Grade   string `json:"grade" validate:"required"`
	Count   *int   `json:"count" validate:"required,min=0"`
	Author  string `json:"author"`
}

// BookUpdateInput is a partial book update. Nil fields are left alone.
type BookUpdateInput struct {
	Name    *string `json:"name" validate:"omitnil,min=1"`
	Subject *string `json:"subject"`
	Status  *string `json:"status" validate:"omitnil,min=1"`
	Grade   *string `json:"grade" validate:"omitnil,min=1"`
	Count   *int    `json:"count" validate:"omitnil,min=0"`
	Author  *string `json:"author"`
}

func (in *BookUpdateInput) trim() {
	in.Name = trimmed(in.Name)
	in.Subject = trimmed(in.Subject)
	in.Status = trimmed(in.Status)
	in.Grade = trimmed(in.Grade)
	in.Author = trimmed(in.Author)
}

// BookService encapsulates catalog use-cases.
type BookService struct {
	repo          BookRepository
	covers        CoverStore
	publicBaseURL string
	validator     *Validator
}

// NewBookService constructs a BookService. covers may be nil, in which
// case uploads fail with ErrCoverStorageDisabled.
func NewBookService(repo BookRepository, covers CoverStore, publicBaseURL string, validator *Validator) *BookService {
	return &BookService{
		repo:          repo,
		covers:        covers,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		validator:     validator,
	}
}

func (s *BookService) Get(ctx context.Context, id string) (types.Book, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *BookService) List(ctx context.Context, filter types.BookFilter) ([]types.Book, error) {
	return s.repo.List(ctx, filter)
}

// Page returns the 1-based page of the catalog. Pages below 1 are
// treated as the first page; pages past the addressable range are empty.
func (s *BookService) Page(ctx context.Context, page int) ([]types.Book, error) {
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		return []types.Book{}, nil
	}
	return s.repo.List(ctx, types.BookFilter{
		Offset: (page - 1) * BooksPerPage,
		Limit:  BooksPerPage,
	})
}

// Create stores a new book, uploading cover first when one is given.
func (s *BookService) Create(ctx context.Context, in BookInput, cover *Cover) (types.Book, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Status = strings.TrimSpace(in.Status)
	in.Grade = strings.TrimSpace(in.Grade)
	if err := s.validator.Struct(in); err != nil {
		return types.Book{}, err
	}

	book := types.Book{
		Name:    in.Name,
		Subject: strings.TrimSpace(in.Subject),
		Status:  in.Status,
		Grade:   in.Grade,
		Count:   *in.Count,
		Author:  strings.TrimSpace(in.Author),
	}
	var key string
	if cover != nil {
		var err error
		if key, book.Img, err = s.uploadCover(ctx, cover); err != nil {
			return types.Book{}, err
		}
	}
	created, err := s.repo.Create(ctx, book)
	if err != nil {
		s.discardCover(ctx, key)
		return types.Book{}, err
	}
	return created, nil
}

// Update applies the provided fields of in, replacing the cover when one
// is given.
func (s *BookService) Update(ctx context.Context, id string, in BookUpdateInput, cover *Cover) (types.Book, error) {
	in.trim()
	if err := s.validator.Struct(in); err != nil {
		return types.Book{}, err
	}

	patch := types.BookPatch{
		Name:    in.Name,
		Subject: in.Subject,
		Status:  in.Status,
		Grade:   in.Grade,
		Count:   in.Count,
		Author:  in.Author,
	}
	var key string
	if cover != nil {
		if _, err := s.repo.GetByID(ctx, id); err != nil {
			return types.Book{}, err
		}
		var url string
		var err error
		if key, url, err = s.uploadCover(ctx, cover); err != nil {
			return types.Book{}, err
		}
		patch.Img = &url
	}
	if patch.Empty() {
		return s.repo.GetByID(ctx, id)
	}
	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		s.discardCover(ctx, key)
		return types.Book{}, err
	}
	return updated, nil
}

// Delete removes the book. Users' book lists and ledger entries keep
// their references.
func (s *BookService) Delete(ctx context.Context, id string) (types.Book, error) {
	return s.repo.Delete(ctx, id)
}

// CoverKey returns a fresh object key for a cover uploaded as filename.
// Keys are unique per upload, so books whose covers share a file name never
// share an object.
func CoverKey(filename string) (string, bool) {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), `\`, "/"))
	if base == "." || base == "/" || base == ".." {
		return "", false
	}
	return storage.PublicPrefix + uuid.NewString() + "-" + base, true
}

// uploadCover stores cover and returns its key and public URL.
func (s *BookService) uploadCover(ctx context.Context, cover *Cover) (string, string, error) {
	if s.covers == nil {
		return "", "", ErrCoverStorageDisabled
	}
	key, ok := CoverKey(cover.Filename)
	if !ok {
		return "", "", invalid("img", "Invalid image file name")
	}
	if err := s.covers.Put(ctx, key, cover.Body, cover.Size, cover.ContentType); err != nil {
		return "", "", fmt.Errorf("upload cover: %w", err)
	}
	return key, s.publicBaseURL + "/" + key, nil
}

// discardCover removes a cover uploaded for a write that then failed.
// The book write error is what the caller sees, so a failed removal is
// dropped.
func (s *BookService) discardCover(ctx context.Context, key string) {
	if key == "" || s.covers == nil {
		return
	}
	_ = s.covers.Delete(context.WithoutCancel(ctx), key)
}
