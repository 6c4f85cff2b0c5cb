package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/talent-hunters/bookportal/types"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// LedgerRepository defines persistence for the append-only ownership logs.
type LedgerRepository interface {
	// RecordOrder appends the order and the user's book reference as one
	// atomic step and returns the updated user.
	RecordOrder(ctx context.Context, order types.OrderedBook, opts types.OrderOptions) (types.User, error)
	AddSoldOut(ctx context.Context, entry types.SoldOutBook) (types.SoldOutBook, error)
	AddRequest(ctx context.Context, entry types.RequestedBook) (types.RequestedBook, error)
	AddDonation(ctx context.Context, entry types.DonatedBook) (types.DonatedBook, error)
	ListOrders(ctx context.Context) ([]types.OrderedBook, error)
	ListSoldOut(ctx context.Context) ([]types.SoldOutBook, error)
	ListRequests(ctx context.Context) ([]types.RequestedBook, error)
	ListDonations(ctx context.Context) ([]types.DonatedBook, error)
}

// EventPublisher sends ledger events to a message queue.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// LedgerOptions configures a LedgerService.
type LedgerOptions struct {
	// StrictOrders rejects orders for missing or exhausted books.
	StrictOrders bool
	// EventsChannel is the queue ledger events are published to.
	EventsChannel string
}

// BookTransferInput identifies a user and a catalog book.
type BookTransferInput struct {
	UserID string `json:"userid" validate:"required"`
	BookID string `json:"bookid" validate:"required"`
}

// BookWishInput describes a book by name, for requests and donations.
type BookWishInput struct {
	UserID   string `json:"userid" validate:"required"`
	BookName string `json:"bookname" validate:"required"`
	Grade    string `json:"grade" validate:"required"`
	Subject  string `json:"subject" validate:"required"`
}

func (in *BookTransferInput) trim() {
	in.UserID = strings.TrimSpace(in.UserID)
	in.BookID = strings.TrimSpace(in.BookID)
}

func (in *BookWishInput) trim() {
	in.UserID = strings.TrimSpace(in.UserID)
	in.BookName = strings.TrimSpace(in.BookName)
	in.Grade = strings.TrimSpace(in.Grade)
	in.Subject = strings.TrimSpace(in.Subject)
}

// LedgerService records and lists book orders, sold-out interest, requests
// and donations.
type LedgerService struct {
	ledger    LedgerRepository
	users     UserRepository
	books     BookRepository
	publisher EventPublisher
	validator *Validator
	log       *zap.Logger
	opts      LedgerOptions
}

// NewLedgerService constructs a LedgerService. publisher may be nil, in
// which case no events are sent.
func NewLedgerService(
	ledger LedgerRepository,
	users UserRepository,
	books BookRepository,
	publisher EventPublisher,
	validator *Validator,
	log *zap.Logger,
	opts LedgerOptions,
) *LedgerService {
	if log == nil {
		log = zap.NewNop()
	}
	return &LedgerService{
		ledger:    ledger,
		users:     users,
		books:     books,
		publisher: publisher,
		validator: validator,
		log:       log,
		opts:      opts,
	}
}

// RecordOrder grants a book to a user: the order entry and the user's book
// reference are written together or not at all.
func (s *LedgerService) RecordOrder(ctx context.Context, in BookTransferInput) (types.OrderedBook, types.User, error) {
	in.trim()
	if err := s.validator.Struct(in); err != nil {
		return types.OrderedBook{}, types.User{}, err
	}

	order := types.OrderedBook{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		BookID:    in.BookID,
		CreatedAt: time.Now().UTC(),
	}
	user, err := s.ledger.RecordOrder(ctx, order, types.OrderOptions{RequireStock: s.opts.StrictOrders})
	if err != nil {
		return types.OrderedBook{}, types.User{}, err
	}

	s.publish(ctx, types.LedgerEvent{
		Kind:       types.LedgerEventOrder,
		EntryID:    order.ID,
		UserID:     order.UserID,
		BookID:     order.BookID,
		RecordedAt: order.CreatedAt,
	})
	return order, user, nil
}

// RecordSoldOutInterest logs that a user wanted a book that is sold out.
func (s *LedgerService) RecordSoldOutInterest(ctx context.Context, in BookTransferInput) (types.SoldOutBook, error) {
	in.trim()
	if err := s.validator.Struct(in); err != nil {
		return types.SoldOutBook{}, err
	}

	entry, err := s.ledger.AddSoldOut(ctx, types.SoldOutBook{UserID: in.UserID, BookID: in.BookID})
	if err != nil {
		return types.SoldOutBook{}, err
	}

	s.publish(ctx, types.LedgerEvent{
		Kind:       types.LedgerEventSoldOut,
		EntryID:    entry.ID,
		UserID:     entry.UserID,
		BookID:     entry.BookID,
		RecordedAt: entry.CreatedAt,
	})
	return entry, nil
}

// RecordRequest logs a request for a book missing from the catalog.
func (s *LedgerService) RecordRequest(ctx context.Context, in BookWishInput) (types.RequestedBook, error) {
	in.trim()
	if err := s.validator.Struct(in); err != nil {
		return types.RequestedBook{}, err
	}

	entry, err := s.ledger.AddRequest(ctx, types.RequestedBook{
		UserID:   in.UserID,
		BookName: in.BookName,
		Subject:  in.Subject,
		Grade:    in.Grade,
	})
	if err != nil {
		return types.RequestedBook{}, err
	}

	s.publish(ctx, types.LedgerEvent{
		Kind:       types.LedgerEventRequest,
		EntryID:    entry.ID,
		UserID:     entry.UserID,
		BookName:   entry.BookName,
		Subject:    entry.Subject,
		Grade:      entry.Grade,
		RecordedAt: entry.CreatedAt,
	})
	return entry, nil
}

// RecordDonation logs an offer to donate a book.
func (s *LedgerService) RecordDonation(ctx context.Context, in BookWishInput) (types.DonatedBook, error) {
	in.trim()
	if err := s.validator.Struct(in); err != nil {
		return types.DonatedBook{}, err
	}

	entry, err := s.ledger.AddDonation(ctx, types.DonatedBook{
		UserID:   in.UserID,
		BookName: in.BookName,
		Subject:  in.Subject,
		Grade:    in.Grade,
	})
	if err != nil {
		return types.DonatedBook{}, err
	}

	s.publish(ctx, types.LedgerEvent{
		Kind:       types.LedgerEventDonation,
		EntryID:    entry.ID,
		UserID:     entry.UserID,
		BookName:   entry.BookName,
		Subject:    entry.Subject,
		Grade:      entry.Grade,
		RecordedAt: entry.CreatedAt,
	})
	return entry, nil
}

// ListOrders returns every order with its user and book expanded.
func (s *LedgerService) ListOrders(ctx context.Context) ([]types.BookTransfer, error) {
	entries, err := s.ledger.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	transfers := make([]types.BookTransfer, len(entries))
	userIDs, bookIDs := make([]string, len(entries)), make([]string, len(entries))
	for i, e := range entries {
		transfers[i] = types.BookTransfer{ID: e.ID, CreatedAt: e.CreatedAt}
		userIDs[i], bookIDs[i] = e.UserID, e.BookID
	}
	return s.expandTransfers(ctx, transfers, userIDs, bookIDs)
}

// ListSoldOut returns every sold-out entry with its user and book expanded.
func (s *LedgerService) ListSoldOut(ctx context.Context) ([]types.BookTransfer, error) {
	entries, err := s.ledger.ListSoldOut(ctx)
	if err != nil {
		return nil, err
	}
	transfers := make([]types.BookTransfer, len(entries))
	userIDs, bookIDs := make([]string, len(entries)), make([]string, len(entries))
	for i, e := range entries {
		transfers[i] = types.BookTransfer{ID: e.ID, CreatedAt: e.CreatedAt}
		userIDs[i], bookIDs[i] = e.UserID, e.BookID
	}
	return s.expandTransfers(ctx, transfers, userIDs, bookIDs)
}

// ListRequests returns every book request with its user expanded.
func (s *LedgerService) ListRequests(ctx context.Context) ([]types.BookWish, error) {
	entries, err := s.ledger.ListRequests(ctx)
	if err != nil {
		return nil, err
	}
	wishes := make([]types.BookWish, 0, len(entries))
	userIDs := make([]string, 0, len(entries))
	for _, e := range entries {
		wishes = append(wishes, types.BookWish{
			ID:        e.ID,
			BookName:  e.BookName,
			Subject:   e.Subject,
			Grade:     e.Grade,
			CreatedAt: e.CreatedAt,
		})
		userIDs = append(userIDs, e.UserID)
	}
	return s.expandWishes(ctx, wishes, userIDs)
}

// ListDonations returns every donation offer with its user expanded.
func (s *LedgerService) ListDonations(ctx context.Context) ([]types.BookWish, error) {
	entries, err := s.ledger.ListDonations(ctx)
	if err != nil {
		return nil, err
	}
	wishes := make([]types.BookWish, 0, len(entries))
	userIDs := make([]string, 0, len(entries))
	for _, e := range entries {
		wishes = append(wishes, types.BookWish{
			ID:        e.ID,
			BookName:  e.BookName,
			Subject:   e.Subject,
			Grade:     e.Grade,
			CreatedAt: e.CreatedAt,
		})
		userIDs = append(userIDs, e.UserID)
	}
	return s.expandWishes(ctx, wishes, userIDs)
}

func (s *LedgerService) expandTransfers(ctx context.Context, transfers []types.BookTransfer, userIDs, bookIDs []string) ([]types.BookTransfer, error) {
	users, err := s.usersByID(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	books, err := s.booksByID(ctx, bookIDs)
	if err != nil {
		return nil, err
	}
	for i := range transfers {
		transfers[i].User = users[userIDs[i]]
		transfers[i].Book = books[bookIDs[i]]
	}
	return transfers, nil
}

func (s *LedgerService) expandWishes(ctx context.Context, wishes []types.BookWish, userIDs []string) ([]types.BookWish, error) {
	users, err := s.usersByID(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	for i := range wishes {
		wishes[i].User = users[userIDs[i]]
	}
	return wishes, nil
}

// usersByID loads the referenced users. Missing ids are absent from the
// map, so they expand to nil. Digests are stripped.
func (s *LedgerService) usersByID(ctx context.Context, ids []string) (map[string]*types.User, error) {
	found, err := s.users.GetMany(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, err
	}
	out := make(map[string]*types.User, len(found))
	for _, u := range found {
		u.PasswordHash = ""
		out[u.ID] = &u
	}
	return out, nil
}

func (s *LedgerService) booksByID(ctx context.Context, ids []string) (map[string]*types.Book, error) {
	found, err := s.books.GetMany(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, err
	}
	out := make(map[string]*types.Book, len(found))
	for _, b := range found {
		out[b.ID] = &b
	}
	return out, nil
}

// publish sends event to the configured channel. The append already
// succeeded, so failures are only logged.
func (s *LedgerService) publish(ctx context.Context, event types.LedgerEvent) {
	if s.publisher == nil || s.opts.EventsChannel == "" {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.log.Error("encode ledger event", zap.Error(err), zap.String("entry_id", event.EntryID))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	attrs := map[string]string{
		"kind":         string(event.Kind),
		"content-type": "application/json",
	}
	if _, err := s.publisher.Publish(ctx, s.opts.EventsChannel, data, attrs); err != nil {
		s.log.Warn("publish ledger event",
			zap.Error(err),
			zap.String("kind", string(event.Kind)),
			zap.String("entry_id", event.EntryID),
		)
	}
}
