package auth

import (
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_IssueAndParse(t *testing.T) {
	m := NewTokenManager("test-secret", 5*time.Minute, 24*time.Hour)
	userID := uuid.Must(uuid.NewV4())

	pair, err := m.IssuePair(userID, true)
	require.NoError(t, err)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)

	claims, err := m.Parse(pair.Access, AccessToken)
	require.NoError(t, err)
	gotID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, gotID)
	assert.True(t, claims.Staff)
	assert.Equal(t, AccessToken, claims.Type)

	claims, err = m.Parse(pair.Refresh, RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, RefreshToken, claims.Type)
}

func TestTokenManager_Parse_Rejects(t *testing.T) {
	m := NewTokenManager("test-secret", 5*time.Minute, 24*time.Hour)
	userID := uuid.Must(uuid.NewV4())
	pair, err := m.IssuePair(userID, false)
	require.NoError(t, err)

	other := NewTokenManager("another-secret", 5*time.Minute, 24*time.Hour)

	expired := NewTokenManager("test-secret", 5*time.Minute, 24*time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	oldAccess, err := expired.IssueAccess(userID, false)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Type: AccessToken,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name     string
		token    string
		expected TokenType
		parser   *TokenManager
	}{
		{name: "refresh_used_as_access", token: pair.Refresh, expected: AccessToken, parser: m},
		{name: "access_used_as_refresh", token: pair.Access, expected: RefreshToken, parser: m},
		{name: "wrong_secret", token: pair.Access, expected: AccessToken, parser: other},
		{name: "expired", token: oldAccess, expected: AccessToken, parser: m},
		{name: "alg_none", token: unsigned, expected: AccessToken, parser: m},
		{name: "garbage", token: "not.a.jwt", expected: AccessToken, parser: m},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := tt.parser.Parse(tt.token, tt.expected)
			require.ErrorIs(t, err, ErrInvalidToken)
			require.Nil(t, claims)
		})
	}
}
