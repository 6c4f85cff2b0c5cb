// Package memstore keeps every record in process memory. It backs the
// development server and the handler and service tests.
package memstore

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/talent-hunters/bookportal/types"
)

// Store holds all collections behind a single lock, so multi-collection
// writes such as recording an order are atomic.
type Store struct {
	mu sync.RWMutex

	users     map[string]types.User
	userOrder []string
	books     map[string]types.Book
	bookOrder []string

	orders    []types.OrderedBook
	soldOut   []types.SoldOutBook
	requests  []types.RequestedBook
	donations []types.DonatedBook

	classes  []types.Class
	subjects []types.Subject

	now func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users: make(map[string]types.User),
		books: make(map[string]types.Book),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Users returns the user repository view of the store.
func (s *Store) Users() *UserRepository {
	return &UserRepository{s: s}
}

// Books returns the book repository view of the store.
func (s *Store) Books() *BookRepository {
	return &BookRepository{s: s}
}

// Ledger returns the ledger repository view of the store.
func (s *Store) Ledger() *LedgerRepository {
	return &LedgerRepository{s: s}
}

// Catalog returns the class and subject repository view of the store.
func (s *Store) Catalog() *CatalogRepository {
	return &CatalogRepository{s: s}
}

func newID() string {
	return uuid.NewString()
}

func cloneUser(u types.User) types.User {
	u.Books = slices.Clone(u.Books)
	if u.Books == nil {
		u.Books = []types.BookRef{}
	}
	return u
}

func removeID(ids []string, id string) []string {
	return slices.DeleteFunc(ids, func(v string) bool { return v == id })
}
