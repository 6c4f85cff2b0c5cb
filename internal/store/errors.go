package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

var (
	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = fmt.Errorf("user: %w", ErrNotFound)

	// ErrBookNotFound is returned when a referenced book does not exist.
	ErrBookNotFound = fmt.Errorf("book: %w", ErrNotFound)

	// ErrDuplicateEmail is returned when an email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrOutOfStock is returned when a book has no copies left to order.
	ErrOutOfStock = errors.New("book out of stock")
)
