package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndAuthenticate(t *testing.T) {
	require.NoError(t, Init(time.Hour))
	tableID := uuid.New()

	tok, err := CreateJWT(tableID, RoleFeeder)
	require.NoError(t, err)

	claims, err := AuthenticateJWT(tok)
	require.NoError(t, err)
	assert.Equal(t, tableID, claims.TableID)
	assert.Equal(t, RoleFeeder, claims.Role)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestNeverExpiringToken(t *testing.T) {
	require.NoError(t, Init(0))
	tok, err := CreateJWT(uuid.New(), RoleViewer)
	require.NoError(t, err)

	claims, err := AuthenticateJWT(tok)
	require.NoError(t, err)
	assert.Nil(t, claims.ExpiresAt)
}

func TestAllows(t *testing.T) {
	tableID := uuid.New()
	feeder := Claims{TableID: tableID, Role: RoleFeeder}
	viewer := Claims{TableID: tableID, Role: RoleViewer}

	assert.True(t, feeder.Allows(tableID, RoleFeeder))
	assert.True(t, feeder.Allows(tableID, RoleViewer))
	assert.True(t, viewer.Allows(tableID, RoleViewer))
	assert.False(t, viewer.Allows(tableID, RoleFeeder))
	assert.False(t, feeder.Allows(uuid.New(), RoleViewer))
}

func TestRejectsBadTokens(t *testing.T) {
	require.NoError(t, Init(time.Hour))
	tableID := uuid.New()

	_, err := AuthenticateJWT("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := Claims{
		TableID: tableID,
		Role:    RoleViewer,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, expired).SignedString(privateKey)
	require.NoError(t, err)
	_, err = AuthenticateJWT(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	badRole := Claims{TableID: tableID, Role: "admin"}
	tok, err = jwt.NewWithClaims(jwt.SigningMethodEdDSA, badRole).SignedString(privateKey)
	require.NoError(t, err)
	_, err = AuthenticateJWT(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// signed by a key pair that was since replaced
	tok, err = CreateJWT(tableID, RoleFeeder)
	require.NoError(t, err)
	require.NoError(t, Init(time.Hour))
	_, err = AuthenticateJWT(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
