package auth

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/buoytelemetry/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")

	tok, err := GenerateToken(123, "researcher", secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, int64(123), claims.UserID)
	assert.Equal(t, "researcher", claims.Role)
	assert.Equal(t, "123", claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestGenerateToken_UniqueJTI(t *testing.T) {
	t.Parallel()

	secret := []byte("s")
	a, err := GenerateToken(1, "admin", secret, time.Hour)
	require.NoError(t, err)
	b, err := GenerateToken(1, "admin", secret, time.Hour)
	require.NoError(t, err)

	ca, err := ParseToken(a, secret)
	require.NoError(t, err)
	cb, err := ParseToken(b, secret)
	require.NoError(t, err)
	assert.NotEqual(t, ca.ID, cb.ID)
}

func TestParseToken_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	tok, err := GenerateToken(1, "admin", secret, -1*time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(tok, secret)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestParseToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken(2, "admin", []byte("right-secret"), time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(tok, []byte("wrong-secret"))
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParseToken_Garbage(t *testing.T) {
	t.Parallel()

	_, err := ParseToken("not-a-jwt", []byte("s"))
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	secret := []byte("s")
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           1,
		Role:             "admin",
	})
	signed, err := tok.SignedString(secret)
	require.NoError(t, err)

	_, err = ParseToken(signed, secret)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParseToken_RequiresExpiry(t *testing.T) {
	t.Parallel()

	secret := []byte("s")
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: 1, Role: "admin"}).SignedString(secret)
	require.NoError(t, err)

	_, err = ParseToken(signed, secret)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}
