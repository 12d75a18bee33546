// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role is what a token holder may do on a table.
type Role string

const (
	// RoleFeeder may push snapshots and control the table.
	RoleFeeder Role = "feeder"
	// RoleViewer only receives frames.
	RoleViewer Role = "viewer"
)

// ErrInvalidToken wraps every token verification failure.
var ErrInvalidToken = errors.New("invalid token")

// privateKey and publicKey are used for signing and verifying table tokens.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// tokenTTL is the lifetime of a new token; 0 means tokens never expire.
	tokenTTL time.Duration
)

// Claims binds a token to one table and role.
type Claims struct {
	TableID uuid.UUID `json:"tid"`
	Role    Role      `json:"role"`
	jwt.RegisteredClaims
}

// Init generates a fresh ed25519 key pair. Tokens issued before a restart
// stop verifying.
func Init(ttl time.Duration) error {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	publicKey, privateKey, tokenTTL = pub, priv, ttl
	return nil
}

// InitFromPath reads a raw ed25519 key pair from disk.
func InitFromPath(privatePath, publicPath string, ttl time.Duration) error {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return fmt.Errorf("ed25519 key files have the wrong size")
	}
	privateKey = ed25519.PrivateKey(privateKeyData)
	publicKey = ed25519.PublicKey(publicKeyData)
	tokenTTL = ttl
	return nil
}

// CreateJWT signs a token for role on tableID.
func CreateJWT(tableID uuid.UUID, role Role) (string, error) {
	if privateKey == nil {
		return "", errors.New("auth: keys not initialized")
	}
	now := time.Now()
	claims := Claims{
		TableID: tableID,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  string(role) + ":" + tableID.String(),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if tokenTTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(tokenTTL))
	}
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(privateKey)
}

// AuthenticateJWT verifies a token and returns its claims.
func AuthenticateJWT(tokenString string) (Claims, error) {
	var claims Claims
	t, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return publicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}))
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !t.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.Role != RoleFeeder && claims.Role != RoleViewer {
		return Claims{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	return claims, nil
}

// Allows reports whether the claims grant at least role on tableID. A feeder
// token also grants viewing.
func (c Claims) Allows(tableID uuid.UUID, role Role) bool {
	if c.TableID != tableID {
		return false
	}
	return role == RoleViewer || c.Role == RoleFeeder
}
