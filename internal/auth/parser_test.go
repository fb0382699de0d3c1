package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_RoundTrip(t *testing.T) {
	p := NewParser("secret")
	userID := uuid.New()

	token, err := p.Sign(Claims{
		UserID: userID,
		Email:  "user@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	require.NoError(t, err)

	claims, err := p.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
}

func TestParser_RejectsWrongSecret(t *testing.T) {
	token, err := NewParser("one").Sign(Claims{UserID: uuid.New()})
	require.NoError(t, err)

	_, err = NewParser("two").Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParser_RejectsExpired(t *testing.T) {
	p := NewParser("secret")
	token, err := p.Sign(Claims{
		UserID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	require.NoError(t, err)

	_, err = p.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParser_RejectsMissingUser(t *testing.T) {
	p := NewParser("secret")
	token, err := p.Sign(Claims{})
	require.NoError(t, err)

	_, err = p.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
