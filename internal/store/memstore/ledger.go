package memstore

import (
	"context"
	"slices"

	"github.com/talent-hunters/bookportal/internal/store"
	"github.com/talent-hunters/bookportal/types"
)

// LedgerRepository stores the ownership logs in memory.
type LedgerRepository struct {
	s *Store
}

func (r *LedgerRepository) RecordOrder(_ context.Context, order types.OrderedBook, opts types.OrderOptions) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[order.UserID]
	if !ok {
		return types.User{}, store.ErrUserNotFound
	}

	if opts.RequireStock {
		book, ok := r.s.books[order.BookID]
		if !ok {
			return types.User{}, store.ErrBookNotFound
		}
		ordered := 0
		for _, o := range r.s.orders {
			if o.BookID == order.BookID {
				ordered++
			}
		}
		if ordered >= book.Count {
			return types.User{}, store.ErrOutOfStock
		}
	}

	if order.ID == "" {
		order.ID = newID()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = r.s.now()
	}
	r.s.orders = append(r.s.orders, order)

	user.Books = append(slices.Clone(user.Books), types.BookRef{BookID: order.BookID})
	user.UpdatedAt = order.CreatedAt
	r.s.users[user.ID] = user
	return cloneUser(user), nil
}

func (r *LedgerRepository) AddSoldOut(_ context.Context, entry types.SoldOutBook) (types.SoldOutBook, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = newID()
	}
	entry.CreatedAt = r.s.now()
	r.s.soldOut = append(r.s.soldOut, entry)
	return entry, nil
}

func (r *LedgerRepository) AddRequest(_ context.Context, entry types.RequestedBook) (types.RequestedBook, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = newID()
	}
	entry.CreatedAt = r.s.now()
	r.s.requests = append(r.s.requests, entry)
	return entry, nil
}

func (r *LedgerRepository) AddDonation(_ context.Context, entry types.DonatedBook) (types.DonatedBook, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = newID()
	}
	entry.CreatedAt = r.s.now()
	r.s.donations = append(r.s.donations, entry)
	return entry, nil
}

func (r *LedgerRepository) ListOrders(_ context.Context) ([]types.OrderedBook, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]types.OrderedBook{}, r.s.orders...), nil
}

func (r *LedgerRepository) ListSoldOut(_ context.Context) ([]types.SoldOutBook, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]types.SoldOutBook{}, r.s.soldOut...), nil
}

func (r *LedgerRepository) ListRequests(_ context.Context) ([]types.RequestedBook, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]types.RequestedBook{}, r.s.requests...), nil
}

func (r *LedgerRepository) ListDonations(_ context.Context) ([]types.DonatedBook, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]types.DonatedBook{}, r.s.donations...), nil
}
