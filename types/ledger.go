package types

import "time"

// OrderedBook records that a user was granted a book.
type OrderedBook struct {
	ID        string    `json:"id" db:"id" bson:"_id"`
	UserID    string    `json:"userid" db:"user_id" bson:"userid"`
	BookID    string    `json:"bookid" db:"book_id" bson:"bookid"`
	CreatedAt time.Time `json:"createdAt" db:"created_at" bson:"createdAt"`
}

// SoldOutBook records that a user asked for a book that is sold out.
type SoldOutBook struct {
	ID        string    `json:"id" db:"id" bson:"_id"`
	UserID    string    `json:"userid" db:"user_id" bson:"userid"`
	BookID    string    `json:"bookid" db:"book_id" bson:"bookid"`
	CreatedAt time.Time `json:"createdAt" db:"created_at" bson:"createdAt"`
}

// RequestedBook is a free-text request for a book missing from the catalog.
type RequestedBook struct {
	ID        string    `json:"id" db:"id" bson:"_id"`
	UserID    string    `json:"userid" db:"user_id" bson:"userid"`
	BookName  string    `json:"bookname" db:"bookname" bson:"bookname"`
	Subject   string    `json:"subject" db:"subject" bson:"subject"`
	Grade     string    `json:"grade" db:"grade" bson:"grade"`
	CreatedAt time.Time `json:"createdAt" db:"created_at" bson:"createdAt"`
}

// DonatedBook is an offer by a user to contribute a book.
type DonatedBook struct {
	ID        string    `json:"id" db:"id" bson:"_id"`
	UserID    string    `json:"userid" db:"user_id" bson:"userid"`
	BookName  string    `json:"bookname" db:"bookname" bson:"bookname"`
	Subject   string    `json:"subject" db:"subject" bson:"subject"`
	Grade     string    `json:"grade" db:"grade" bson:"grade"`
	CreatedAt time.Time `json:"createdAt" db:"created_at" bson:"createdAt"`
}

// BookTransfer is an order or sold-out entry with its user and book
// expanded for display. A reference whose record no longer exists
// expands to nil.
type BookTransfer struct {
	ID        string    `json:"id"`
	User      *User     `json:"userid"`
	Book      *Book     `json:"bookid"`
	CreatedAt time.Time `json:"createdAt"`
}

// BookWish is a request or donation entry with its user expanded.
type BookWish struct {
	ID        string    `json:"id"`
	User      *User     `json:"userid"`
	BookName  string    `json:"bookname"`
	Subject   string    `json:"subject"`
	Grade     string    `json:"grade"`
	CreatedAt time.Time `json:"createdAt"`
}

// LedgerEventKind names the ledger collection an event was appended to.
type LedgerEventKind string

const (
	LedgerEventOrder    LedgerEventKind = "order"
	LedgerEventSoldOut  LedgerEventKind = "soldout"
	LedgerEventRequest  LedgerEventKind = "request"
	LedgerEventDonation LedgerEventKind = "donation"
)

// LedgerEvent is published to the message queue after a ledger append.
type LedgerEvent struct {
	Kind       LedgerEventKind `json:"kind"`
	EntryID    string          `json:"entry_id"`
	UserID     string          `json:"user_id"`
	BookID     string          `json:"book_id,omitempty"`
	BookName   string          `json:"bookname,omitempty"`
	Subject    string          `json:"subject,omitempty"`
	Grade      string          `json:"grade,omitempty"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// OrderOptions tunes how an order is recorded.
type OrderOptions struct {
	// RequireStock makes the order fail unless the book exists and has
	// fewer recorded orders than its count.
	RequireStock bool
}
