package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talent-hunters/bookportal/internal/auth"
	"github.com/talent-hunters/bookportal/internal/store"
	"github.com/talent-hunters/bookportal/internal/store/memstore"
	"github.com/talent-hunters/bookportal/types"
)

func newUserService(t *testing.T) (*UserService, *memstore.Store) {
	t.Helper()
	s := memstore.New()
	return NewUserService(s.Users(), s.Books(), auth.NewBcryptHasher(4), NewValidator()), s
}

func validRegistration(email string) RegisterInput {
	return RegisterInput{
		Username:    "Ayesha",
		FatherName:  "Imran",
		FamilyName:  "Khan",
		Address:     "House 12, Street 4, Lahore",
		PhoneNumber: "+923001234567",
		Email:       email,
		Password:    "secret1",
		AccountType: "User",
	}
}

func TestRegisterStoresDigestAndNormalizedEmail(t *testing.T) {
	svc, _ := newUserService(t)

	user, err := svc.Register(context.Background(), validRegistration("  Ayesha@Example.COM "))
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "ayesha@example.com", user.Email)
	assert.NotEqual(t, "secret1", user.PasswordHash)
	assert.Empty(t, user.Books)
	assert.Equal(t, types.AccountTypeUser, user.AccountType)
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegisterInput)
		param  string
	}{
		{name: "short username", mutate: func(in *RegisterInput) { in.Username = "Al" }, param: "username"},
		{name: "short address", mutate: func(in *RegisterInput) { in.Address = "Lahore" }, param: "address"},
		{name: "bad phone", mutate: func(in *RegisterInput) { in.PhoneNumber = "call me" }, param: "phoneNumber"},
		{name: "bad email", mutate: func(in *RegisterInput) { in.Email = "not-an-email" }, param: "email"},
		{name: "short password", mutate: func(in *RegisterInput) { in.Password = "1234" }, param: "password"},
		{name: "long password", mutate: func(in *RegisterInput) { in.Password = string(make([]byte, 73)) }, param: "password"},
		{name: "unknown account type", mutate: func(in *RegisterInput) { in.AccountType = "Root" }, param: "accountType"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, s := newUserService(t)
			in := validRegistration("a@example.com")
			tc.mutate(&in)

			_, err := svc.Register(context.Background(), in)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			require.Len(t, verr.Errors, 1)
			assert.Equal(t, tc.param, verr.Errors[0].Param)
			assert.NotEmpty(t, verr.Errors[0].Msg)

			users, err := s.Users().List(context.Background(), types.UserFilter{})
			require.NoError(t, err)
			assert.Empty(t, users)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, validRegistration("dup@example.com"))
	require.NoError(t, err)

	_, err = svc.Register(ctx, validRegistration("DUP@example.com"))
	assert.ErrorIs(t, err, store.ErrDuplicateEmail)
}

func TestRegisterConcurrentDuplicateEmail(t *testing.T) {
	svc, s := newUserService(t)
	ctx := context.Background()

	const attempts = 10
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Register(ctx, validRegistration("race@example.com"))
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, store.ErrDuplicateEmail)
	}
	assert.Equal(t, 1, succeeded)

	users, err := s.Users().List(ctx, types.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestAuthenticateUniformFailure(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, validRegistration("login@example.com"))
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, LoginInput{Email: "Login@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	_, wrongPassword := svc.Authenticate(ctx, LoginInput{Email: "login@example.com", Password: "secret2"})
	_, unknownEmail := svc.Authenticate(ctx, LoginInput{Email: "nobody@example.com", Password: "secret1"})

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestAuthenticateRejectsMalformedInput(t *testing.T) {
	svc, _ := newUserService(t)

	_, err := svc.Authenticate(context.Background(), LoginInput{Email: "nope", Password: ""})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Errors, 2)
}

func TestUpdateIsPartial(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	user, err := svc.Register(ctx, validRegistration("patch@example.com"))
	require.NoError(t, err)

	address := "Flat 3, Garden Town, Lahore"
	updated, err := svc.Update(ctx, user.ID, UserUpdateInput{Address: &address})
	require.NoError(t, err)
	assert.Equal(t, address, updated.Address)
	assert.Equal(t, user.Username, updated.Username)
	assert.Equal(t, user.Email, updated.Email)
	assert.Equal(t, user.PasswordHash, updated.PasswordHash)

	short := "x"
	_, err = svc.Update(ctx, user.ID, UserUpdateInput{Username: &short})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = svc.Update(ctx, "missing", UserUpdateInput{Address: &address})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateRejectsBlankRequiredFields(t *testing.T) {
	svc, s := newUserService(t)
	ctx := context.Background()
	user, err := svc.Register(ctx, validRegistration("blank@example.com"))
	require.NoError(t, err)

	blank := "    "
	tests := []struct {
		name  string
		in    UserUpdateInput
		param string
	}{
		{name: "username", in: UserUpdateInput{Username: &blank}, param: "username"},
		{name: "father name", in: UserUpdateInput{FatherName: &blank}, param: "fatherName"},
		{name: "family name", in: UserUpdateInput{FamilyName: &blank}, param: "familyName"},
		{name: "address", in: UserUpdateInput{Address: &blank}, param: "address"},
		{name: "phone number", in: UserUpdateInput{PhoneNumber: &blank}, param: "phoneNumber"},
		{name: "email", in: UserUpdateInput{Email: &blank}, param: "email"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Update(ctx, user.ID, tc.in)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.param, verr.Errors[0].Param)
		})
	}

	stored, err := s.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Username, stored.Username)
	assert.Equal(t, user.Address, stored.Address)

	padded := "  Bilal  "
	updated, err := svc.Update(ctx, user.ID, UserUpdateInput{Username: &padded})
	require.NoError(t, err)
	assert.Equal(t, "Bilal", updated.Username)
}

func TestUpdateRejectsTakenEmail(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, validRegistration("first@example.com"))
	require.NoError(t, err)
	second, err := svc.Register(ctx, validRegistration("second@example.com"))
	require.NoError(t, err)

	email := "FIRST@example.com"
	_, err = svc.Update(ctx, second.ID, UserUpdateInput{Email: &email})
	assert.ErrorIs(t, err, store.ErrDuplicateEmail)
}

func TestProfileExpandsBooksInListOrder(t *testing.T) {
	svc, s := newUserService(t)
	ctx := context.Background()
	user, err := svc.Register(ctx, validRegistration("profile@example.com"))
	require.NoError(t, err)

	physics, err := s.Books().Create(ctx, types.Book{Name: "Physics", Status: types.StatusAvailable, Grade: "9", Count: 3})
	require.NoError(t, err)
	for _, bookID := range []string{physics.ID, "deleted-book", physics.ID} {
		_, err := s.Ledger().RecordOrder(ctx, types.OrderedBook{UserID: user.ID, BookID: bookID}, types.OrderOptions{})
		require.NoError(t, err)
	}

	profile, err := svc.Profile(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, profile.Books, 3)
	assert.Equal(t, "Physics", profile.Books[0].Name)
	assert.Nil(t, profile.Books[1])
	assert.Equal(t, physics.ID, profile.Books[2].ID)
}

func TestDeleteUser(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	user, err := svc.Register(ctx, validRegistration("bye@example.com"))
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, deleted.ID)

	_, err = svc.Delete(ctx, user.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
