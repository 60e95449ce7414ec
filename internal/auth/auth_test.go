package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	ti := NewTokenIssuer("secret", time.Hour)

	token, err := ti.Issue("64b7f0c2a1b2c3d4e5f60718")
	require.NoError(t, err)

	id, err := ti.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "64b7f0c2a1b2c3d4e5f60718", id)
}

func TestTokenIssuer_Expired(t *testing.T) {
	ti := NewTokenIssuer("secret", time.Minute)
	issued := time.Now().Add(-time.Hour)
	ti.now = func() time.Time { return issued }

	token, err := ti.Issue("user")
	require.NoError(t, err)

	ti.now = time.Now
	_, err = ti.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	token, err := NewTokenIssuer("one", time.Hour).Issue("user")
	require.NoError(t, err)

	_, err = NewTokenIssuer("two", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenIssuer_Garbage(t *testing.T) {
	_, err := NewTokenIssuer("secret", time.Hour).Verify("not.a.token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRole_Can(t *testing.T) {
	assert.True(t, RoleAdmin.Can(ManageOrders))
	assert.True(t, RoleAdmin.Can(ModerateReviews))
	assert.False(t, RoleUser.Can(ManageOrders))
	assert.False(t, Role("seller").Can(ManageProducts))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("admin")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, r)

	_, err = ParseRole("root")
	assert.Error(t, err)
}
