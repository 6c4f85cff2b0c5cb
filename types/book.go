package types

import (
	"strings"
	"time"
)

// StatusAvailable is the status given to books that can be ordered.
const StatusAvailable = "available"

// Book represents a catalog entry.
type Book struct {
	// ID is the opaque unique identifier of the book.
	ID string `json:"id" db:"id" bson:"_id"`

	// Name is the title of the book.
	Name string `json:"name" db:"name" bson:"name"`

	// Subject is the school subject the book covers.
	Subject string `json:"subject" db:"subject" bson:"subject"`

	// Status is a free-text availability label such as "available".
	// Ledger operations never change it.
	Status string `json:"status" db:"status" bson:"status"`

	// Grade is the class label the book belongs to. It is stored as text,
	// not as a reference to a Class.
	Grade string `json:"grade" db:"grade" bson:"grade"`

	// Count is the stock quantity.
	Count int `json:"count" db:"count" bson:"count"`

	// Author is the book's author.
	Author string `json:"author" db:"author" bson:"author"`

	// Img is the public URL of the cover image, if one was uploaded.
	Img string `json:"img" db:"img" bson:"img"`

	// CreatedAt is the timestamp when the book was added.
	CreatedAt time.Time `json:"createdAt" db:"created_at" bson:"createdAt"`

	// UpdatedAt is the timestamp of the most recent change.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at" bson:"updatedAt"`
}

// BookPatch lists the fields of a partial book update. Nil fields are left
// unchanged.
type BookPatch struct {
	Name    *string
	Subject *string
	Status  *string
	Grade   *string
	Count   *int
	Author  *string
	Img     *string
}

// Empty reports whether the patch changes nothing.
func (p BookPatch) Empty() bool {
	return p.Name == nil && p.Subject == nil && p.Status == nil && p.Grade == nil &&
		p.Count == nil && p.Author == nil && p.Img == nil
}

// Apply copies the set fields of the patch onto b.
func (p BookPatch) Apply(b *Book) {
	if p.Name != nil {
		b.Name = *p.Name
	}
	if p.Subject != nil {
		b.Subject = *p.Subject
	}
	if p.Status != nil {
		b.Status = *p.Status
	}
	if p.Grade != nil {
		b.Grade = *p.Grade
	}
	if p.Count != nil {
		b.Count = *p.Count
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.Img != nil {
		b.Img = *p.Img
	}
}

// BookFilter selects books. Name matches as a case-insensitive substring;
// every other field matches exactly. Empty fields match every book.
// A Limit of zero means no limit.
type BookFilter struct {
	Grade     string
	Subject   string
	Status    string
	Name      string
	ExactName string
	Author    string
	Offset    int
	Limit     int
}

// Matches reports whether b satisfies every set field of the filter.
// Offset and Limit are not considered.
func (f BookFilter) Matches(b Book) bool {
	if f.Grade != "" && b.Grade != f.Grade {
		return false
	}
	if f.Subject != "" && b.Subject != f.Subject {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.Author != "" && b.Author != f.Author {
		return false
	}
	if f.ExactName != "" && b.Name != f.ExactName {
		return false
	}
	if f.Name != "" && !strings.Contains(strings.ToLower(b.Name), strings.ToLower(f.Name)) {
		return false
	}
	return true
}
