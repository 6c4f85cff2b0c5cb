package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcryptHasherRoundTrip(t *testing.T) {
	h := NewBcryptHasher(4)

	digest, err := h.Hash("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", digest)

	assert.True(t, h.Verify("hunter22", digest))
	assert.False(t, h.Verify("hunter23", digest))
	assert.False(t, h.Verify("hunter22", "not-a-digest"))
	assert.False(t, h.Verify("hunter22", ""))
}

func TestBcryptHasherSaltsEachCall(t *testing.T) {
	h := NewBcryptHasher(4)

	a, err := h.Hash("same-password")
	require.NoError(t, err)
	b, err := h.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, h.Verify("same-password", a))
	assert.True(t, h.Verify("same-password", b))
}

func TestNewBcryptHasherFallsBackToDefaultCost(t *testing.T) {
	assert.Equal(t, DefaultBcryptCost, NewBcryptHasher(0).cost)
	assert.Equal(t, DefaultBcryptCost, NewBcryptHasher(64).cost)
	assert.Equal(t, 12, NewBcryptHasher(12).cost)
}

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("secret", 0)

	token, err := svc.Issue("user-1")
	require.NoError(t, err)

	userID, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestTokenCarriesUserObject(t *testing.T) {
	svc := NewTokenService("secret", 0)
	token, err := svc.Issue("user-1")
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)

	user, ok := claims["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "user-1", user["id"])
	assert.NotContains(t, claims, "exp")
}

func TestTokenIssueRejectsEmptyUser(t *testing.T) {
	_, err := NewTokenService("secret", 0).Issue(" ")
	assert.Error(t, err)
}

func TestTokenVerifyRejects(t *testing.T) {
	svc := NewTokenService("secret", 0)
	valid, err := svc.Issue("user-1")
	require.NoError(t, err)

	otherSecret, err := NewTokenService("other", 0).Issue("user-1")
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		User: TokenUser{ID: "user-1"},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		User: TokenUser{ID: "user-1"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not.a.token"},
		{name: "wrong secret", token: otherSecret},
		{name: "altered byte", token: alterPayload(valid)},
		{name: "other algorithm", token: hs512},
		{name: "unsigned", token: unsigned},
		{name: "missing user", token: noUser},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			userID, err := svc.Verify(tc.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Empty(t, userID)
		})
	}
}

func TestTokenExpiryWhenTTLSet(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)
	issuedAt := time.Now()
	svc.now = func() time.Time { return issuedAt }

	token, err := svc.Issue("user-1")
	require.NoError(t, err)

	_, err = svc.Verify(token)
	require.NoError(t, err)

	svc.now = func() time.Time { return issuedAt.Add(2 * time.Hour) }
	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// alterPayload swaps one character inside the payload segment.
func alterPayload(token string) string {
	dot := strings.IndexByte(token, '.')
	i := dot + 3
	b := []byte(token)
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}
