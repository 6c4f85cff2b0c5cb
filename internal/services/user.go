package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/talent-hunters/bookportal/internal/store"
	"github.com/talent-hunters/bookportal/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetMany(ctx context.Context, ids []string) ([]types.User, error)
	List(ctx context.Context, filter types.UserFilter) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, id string, patch types.UserPatch) (types.User, error)
	Delete(ctx context.Context, id string) (types.User, error)
	ClearBookLists(ctx context.Context) (int64, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

// RegisterInput is the payload for creating an account.
type RegisterInput struct {
	Username    string `json:"username" validate:"required,min=3"`
	FatherName  string `json:"fatherName" validate:"required,min=3"`
	FamilyName  string `json:"familyName" validate:"required,min=3"`
	Address     string `json:"address" validate:"required,min=10"`
	PhoneNumber string `json:"phoneNumber" validate:"required,phone"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=5,bcryptmax"`
	AccountType string `json:"accountType" validate:"required,oneof=Admin User"`
}

// LoginInput is the payload for authenticating.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserUpdateInput is a partial profile update. Nil fields are left alone.
type UserUpdateInput struct {
	Username    *string `json:"username" validate:"omitnil,min=3"`
	FatherName  *string `json:"fatherName" validate:"omitnil,min=3"`
	FamilyName  *string `json:"familyName" validate:"omitnil,min=3"`
	Address     *string `json:"address" validate:"omitnil,min=10"`
	PhoneNumber *string `json:"phoneNumber" validate:"omitnil,phone"`
	Email       *string `json:"email" validate:"omitnil,email"`
	AccountType *string `json:"accountType" validate:"omitnil,oneof=Admin User"`
}

// Profile is a user together with the books on their list. A list entry
// whose book no longer exists is nil.
type Profile struct {
	User  types.User
	Books []*types.Book
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo      UserRepository
	books     BookRepository
	hasher    PasswordHasher
	validator *Validator

	decoyOnce   sync.Once
	decoyDigest string
}

func NewUserService(repo UserRepository, books BookRepository, hasher PasswordHasher, validator *Validator) *UserService {
	return &UserService{
		repo:      repo,
		books:     books,
		hasher:    hasher,
		validator: validator,
	}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register validates in, hashes the password, and stores a new account
// with an empty book list.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (types.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.FatherName = strings.TrimSpace(in.FatherName)
	in.FamilyName = strings.TrimSpace(in.FamilyName)
	in.Address = strings.TrimSpace(in.Address)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.Email = NormalizeEmail(in.Email)
	if err := s.validator.Struct(in); err != nil {
		return types.User{}, err
	}

	if _, err := s.repo.GetByEmail(ctx, in.Email); err == nil {
		return types.User{}, store.ErrDuplicateEmail
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return types.User{}, err
	}

	// The store's unique email constraint settles registrations racing
	// past the check above.
	return s.repo.Create(ctx, types.User{
		Username:     in.Username,
		FatherName:   in.FatherName,
		FamilyName:   in.FamilyName,
		Address:      in.Address,
		PhoneNumber:  in.PhoneNumber,
		Email:        in.Email,
		PasswordHash: digest,
		AccountType:  types.AccountType(in.AccountType),
	})
}

// Authenticate returns the user owning email if password matches.
// Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, in LoginInput) (types.User, error) {
	in.Email = NormalizeEmail(in.Email)
	if err := s.validator.Struct(in); err != nil {
		return types.User{}, err
	}

	user, err := s.repo.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.hasher.Verify(in.Password, s.decoy())
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}
	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// decoy returns a digest compared against when the email is unknown, so
// both failure paths cost one hash comparison.
func (s *UserService) decoy() string {
	s.decoyOnce.Do(func() {
		s.decoyDigest, _ = s.hasher.Hash("decoy-password")
	})
	return s.decoyDigest
}

func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// Profile returns the user with every book on their list expanded, in
// list order.
func (s *UserService) Profile(ctx context.Context, id string) (Profile, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Profile{}, err
	}

	ids := make([]string, 0, len(user.Books))
	for _, ref := range user.Books {
		ids = append(ids, ref.BookID)
	}
	found, err := s.books.GetMany(ctx, uniqueIDs(ids))
	if err != nil {
		return Profile{}, err
	}
	byID := make(map[string]types.Book, len(found))
	for _, b := range found {
		byID[b.ID] = b
	}

	books := make([]*types.Book, 0, len(user.Books))
	for _, ref := range user.Books {
		if b, ok := byID[ref.BookID]; ok {
			books = append(books, &b)
		} else {
			books = append(books, nil)
		}
	}
	return Profile{User: user, Books: books}, nil
}

// trim normalizes the provided fields the way Register does, so a blank
// value fails the same length rules.
func (in *UserUpdateInput) trim() {
	in.Username = trimmed(in.Username)
	in.FatherName = trimmed(in.FatherName)
	in.FamilyName = trimmed(in.FamilyName)
	in.Address = trimmed(in.Address)
	in.PhoneNumber = trimmed(in.PhoneNumber)
	in.AccountType = trimmed(in.AccountType)
	if in.Email != nil {
		email := NormalizeEmail(*in.Email)
		in.Email = &email
	}
}

// Update applies the provided fields of in to the user.
func (s *UserService) Update(ctx context.Context, id string, in UserUpdateInput) (types.User, error) {
	in.trim()
	if err := s.validator.Struct(in); err != nil {
		return types.User{}, err
	}

	patch := types.UserPatch{
		Username:    in.Username,
		FatherName:  in.FatherName,
		FamilyName:  in.FamilyName,
		Address:     in.Address,
		PhoneNumber: in.PhoneNumber,
		Email:       in.Email,
	}
	if in.AccountType != nil {
		accountType := types.AccountType(*in.AccountType)
		patch.AccountType = &accountType
	}
	if patch.Empty() {
		return s.repo.GetByID(ctx, id)
	}
	return s.repo.Update(ctx, id, patch)
}

// Delete removes the user record. Books and ledger entries are untouched.
func (s *UserService) Delete(ctx context.Context, id string) (types.User, error) {
	return s.repo.Delete(ctx, id)
}

func (s *UserService) List(ctx context.Context, filter types.UserFilter) ([]types.User, error) {
	return s.repo.List(ctx, filter)
}

// ClearBookLists empties every user's book list and reports how many
// users changed.
func (s *UserService) ClearBookLists(ctx context.Context) (int64, error) {
	return s.repo.ClearBookLists(ctx)
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
