package types

import "time"

// AccountType is the role recorded on a user account.
type AccountType string

const (
	AccountTypeAdmin AccountType = "Admin"
	AccountTypeUser  AccountType = "User"
)

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	return t == AccountTypeAdmin || t == AccountTypeUser
}

// User represents a portal account.
// It contains the identity profile, credentials, and the list of books
// the user currently holds.
type User struct {
	// ID is the opaque unique identifier of the user.
	ID string `json:"id" db:"id" bson:"_id"`

	// Username is the user's given name.
	Username string `json:"username" db:"username" bson:"username"`

	// FatherName is the name of the user's father.
	FatherName string `json:"fatherName" db:"father_name" bson:"fatherName"`

	// FamilyName is the user's family name.
	FamilyName string `json:"familyName" db:"family_name" bson:"familyName"`

	// Address is the user's postal address.
	Address string `json:"address" db:"address" bson:"address"`

	// PhoneNumber is the user's contact number.
	PhoneNumber string `json:"phoneNumber" db:"phone_number" bson:"phoneNumber"`

	// Email is the user's login identifier. It is stored lower-cased and
	// is unique across all users.
	Email string `json:"email" db:"email" bson:"email"`

	// PasswordHash stores the bcrypt digest of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash" bson:"password"`

	// AccountType indicates whether the user is an administrator.
	AccountType AccountType `json:"accountType" db:"account_type" bson:"accountType"`

	// Books is the ordered list of books held by the user. Entries are
	// appended by the ownership ledger.
	Books []BookRef `json:"books" db:"-" bson:"books"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at" bson:"createdAt"`

	// UpdatedAt is the timestamp of the most recent profile change.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at" bson:"updatedAt"`
}

// BookRef is one entry of a user's book list.
type BookRef struct {
	BookID string `json:"bookid" db:"book_id" bson:"bookid"`
}

// UserPatch lists the profile fields of a partial update. Nil fields are
// left unchanged.
type UserPatch struct {
	Username    *string
	FatherName  *string
	FamilyName  *string
	Address     *string
	PhoneNumber *string
	Email       *string
	AccountType *AccountType
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Username == nil && p.FatherName == nil && p.FamilyName == nil &&
		p.Address == nil && p.PhoneNumber == nil && p.Email == nil && p.AccountType == nil
}

// Apply copies the set fields of the patch onto u.
func (p UserPatch) Apply(u *User) {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.FatherName != nil {
		u.FatherName = *p.FatherName
	}
	if p.FamilyName != nil {
		u.FamilyName = *p.FamilyName
	}
	if p.Address != nil {
		u.Address = *p.Address
	}
	if p.PhoneNumber != nil {
		u.PhoneNumber = *p.PhoneNumber
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.AccountType != nil {
		u.AccountType = *p.AccountType
	}
}

// UserFilter selects users by exact field values. Empty fields match
// every user.
type UserFilter struct {
	AccountType AccountType
	Username    string
	FamilyName  string
}

// Matches reports whether u satisfies every set field of the filter.
func (f UserFilter) Matches(u User) bool {
	if f.AccountType != "" && u.AccountType != f.AccountType {
		return false
	}
	if f.Username != "" && u.Username != f.Username {
		return false
	}
	if f.FamilyName != "" && u.FamilyName != f.FamilyName {
		return false
	}
	return true
}
