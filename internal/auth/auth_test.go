package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"yuva/server/internal/db"
	"yuva/server/internal/session"
	"yuva/server/internal/utils"
)

func TestJWT_RoundTripsIdentity(t *testing.T) {
	id := &session.Identity{ID: "ABCDEFGHJK", Email: "ayse@example.com"}
	token, err := GenerateJWT(id, "secret", time.Minute)
	require.NoError(t, err)

	claims, err := ValidateJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, id, claims.Identity())

	_, err = ValidateJWT(token, "other-secret")
	assert.Error(t, err)
}

func TestJWT_Expired(t *testing.T) {
	token, err := GenerateJWT(&session.Identity{ID: "U1"}, "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateJWT(token, "secret")
	assert.Error(t, err)
}

func TestPasswordRules(t *testing.T) {
	assert.True(t, IsWeakPassword("12345"))
	assert.False(t, IsWeakPassword("123456"))
	assert.True(t, IsWeakPassword("şifre"), "counts characters, not bytes")

	assert.Equal(t, "ayse@example.com", NormalizeEmail("  Ayse@Example.COM "))
	assert.True(t, IsValidEmail("ayse@example.com"))
	assert.False(t, IsValidEmail("ayse@"))

	hash, err := HashPassword("gizli123")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("gizli123", hash))
	assert.False(t, CheckPasswordHash("gizli124", hash))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeWrongPassword, CodeOf(fmt.Errorf("sign in: %w", newError(CodeWrongPassword))))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
	assert.Equal(t, "", CodeOf(nil))
}

func TestFailureLimiter(t *testing.T) {
	l := NewFailureLimiter(2, time.Hour)

	assert.False(t, l.Blocked("a@b.co"))
	l.Fail("a@b.co")
	assert.False(t, l.Blocked("a@b.co"))
	l.Fail("a@b.co")
	assert.True(t, l.Blocked("a@b.co"))
	assert.False(t, l.Blocked("c@d.co"))

	l.Reset("a@b.co")
	assert.False(t, l.Blocked("a@b.co"))
}

func TestMongoProvider(t *testing.T) {
	database := utils.SetupTestDB(t, "yuva_test_auth", db.AccountsCollection)
	require.NoError(t, db.EnsureIndexes(context.Background(), database))
	p := NewMongoProvider(database, NewFailureLimiter(2, time.Hour), zap.NewNop())
	ctx := context.Background()

	_, err := p.SignUp(ctx, "not-an-email", "gizli123")
	assert.Equal(t, CodeInvalidEmail, CodeOf(err))
	_, err = p.SignUp(ctx, "ayse@example.com", "123")
	assert.Equal(t, CodeWeakPassword, CodeOf(err))

	created, err := p.SignUp(ctx, " Ayse@Example.com", "gizli123")
	require.NoError(t, err)
	assert.Equal(t, "ayse@example.com", created.Email)

	_, err = p.SignUp(ctx, "ayse@example.com", "baska123")
	assert.Equal(t, CodeEmailAlreadyInUse, CodeOf(err))

	signedIn, err := p.SignIn(ctx, "AYSE@example.com", "gizli123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, signedIn.ID)

	_, err = p.SignIn(ctx, "nobody@example.com", "gizli123")
	assert.Equal(t, CodeUserNotFound, CodeOf(err))

	_, err = p.SignIn(ctx, "ayse@example.com", "yanlis1")
	assert.Equal(t, CodeWrongPassword, CodeOf(err))
	_, err = p.SignIn(ctx, "ayse@example.com", "yanlis2")
	assert.Equal(t, CodeWrongPassword, CodeOf(err))
	_, err = p.SignIn(ctx, "ayse@example.com", "gizli123")
	assert.Equal(t, CodeTooManyRequests, CodeOf(err))
}
