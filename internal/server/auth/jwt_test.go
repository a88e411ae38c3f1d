package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/hiinen/internal/common"
)

func TestIssueAndParse_Success(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer([]byte("super-secret"), time.Hour)

	tok, err := issuer.Issue("user-123")
	require.NoError(t, err)
	assert.NotEmpty(t, tok.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.ExpiresAt, 2*time.Second)

	claims, err := issuer.Parse(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, tok.ID, claims.ID)
}

func TestIssue_UniqueIDs(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer([]byte("s"), time.Hour)
	a, err := issuer.Issue("u")
	require.NoError(t, err)
	b, err := issuer.Issue("u")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEqual(t, a.Token, b.Token)
}

func TestParse_Expired(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer([]byte("secret"), time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	tok, err := issuer.Issue("u1")
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Parse(tok.Token)
	if err != common.ErrTokenExpired {
		t.Fatalf("expected common.ErrTokenExpired, got %v", err)
	}
}

func TestParse_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewTokenIssuer([]byte("right-secret"), time.Hour).Issue("u2")
	require.NoError(t, err)

	_, err = NewTokenIssuer([]byte("wrong-secret"), time.Hour).Parse(tok.Token)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParse_Tampered(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer([]byte("secret"), time.Hour)
	victim, err := issuer.Issue("u3")
	require.NoError(t, err)
	other, err := issuer.Issue("admin")
	require.NoError(t, err)

	// other's payload with victim's signature
	v := strings.Split(victim.Token, ".")
	o := strings.Split(other.Token, ".")
	forged := strings.Join([]string{v[0], o[1], v[2]}, ".")

	_, err = issuer.Parse(forged)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParse_Garbage(t *testing.T) {
	t.Parallel()

	_, err := NewTokenIssuer([]byte("s"), time.Hour).Parse("not-a-jwt")
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParse_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "id",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID: "u",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(secret)
	require.NoError(t, err)

	_, err = NewTokenIssuer(secret, time.Hour).Parse(signed)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParse_RequiresUserAndID(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(secret)
	require.NoError(t, err)

	_, err = NewTokenIssuer(secret, time.Hour).Parse(signed)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}
