package memstore

import (
	"context"

	"github.com/talent-hunters/bookportal/internal/store"
	"github.com/talent-hunters/bookportal/types"
)

// BookRepository stores catalog books in memory.
type BookRepository struct {
	s *Store
}

func (r *BookRepository) GetByID(_ context.Context, id string) (types.Book, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	book, ok := r.s.books[id]
	if !ok {
		return types.Book{}, store.ErrBookNotFound
	}
	return book, nil
}

func (r *BookRepository) GetMany(_ context.Context, ids []string) ([]types.Book, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	books := make([]types.Book, 0, len(ids))
	for _, id := range r.s.bookOrder {
		if _, ok := wanted[id]; ok {
			books = append(books, r.s.books[id])
		}
	}
	return books, nil
}

func (r *BookRepository) List(_ context.Context, filter types.BookFilter) ([]types.Book, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	books := make([]types.Book, 0)
	skipped := 0
	for _, id := range r.s.bookOrder {
		book := r.s.books[id]
		if !filter.Matches(book) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		if filter.Limit > 0 && len(books) == filter.Limit {
			break
		}
		books = append(books, book)
	}
	return books, nil
}

func (r *BookRepository) Create(_ context.Context, book types.Book) (types.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if book.ID == "" {
		book.ID = newID()
	}
	ts := r.s.now()
	book.CreatedAt = ts
	book.UpdatedAt = ts

	r.s.books[book.ID] = book
	r.s.bookOrder = append(r.s.bookOrder, book.ID)
	return book, nil
}

func (r *BookRepository) Update(_ context.Context, id string, patch types.BookPatch) (types.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	book, ok := r.s.books[id]
	if !ok {
		return types.Book{}, store.ErrBookNotFound
	}
	patch.Apply(&book)
	book.UpdatedAt = r.s.now()
	r.s.books[id] = book
	return book, nil
}

func (r *BookRepository) Delete(_ context.Context, id string) (types.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	book, ok := r.s.books[id]
	if !ok {
		return types.Book{}, store.ErrBookNotFound
	}
	delete(r.s.books, id)
	r.s.bookOrder = removeID(r.s.bookOrder, id)
	return book, nil
}
