// Package auth hashes user secrets and issues and verifies signed,
// time-limited identity tokens.
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/itparc/inventory/types"
	"golang.org/x/crypto/bcrypt"
)

const DefaultTokenTTL = time.Hour

// MaxSecretLength is the longest secret bcrypt accepts, in bytes.
const MaxSecretLength = 72

var (
	// ErrMissingSigningKey is returned by New when no signing key is configured.
	ErrMissingSigningKey = errors.New("token signing key is not configured")

	// ErrInvalidToken covers expired, tampered and malformed tokens.
	ErrInvalidToken = errors.New("invalid token")

	// ErrSecretTooLong is returned by HashSecret for secrets over MaxSecretLength bytes.
	ErrSecretTooLong = errors.New("secret exceeds 72 bytes")
)

// Claims is the token payload: the user id and role plus registered claims.
type Claims struct {
	ID   int        `json:"id"`
	Role types.Role `json:"role"`
	jwt.RegisteredClaims
}

// Credentials hashes secrets and signs tokens with a process-wide key.
type Credentials struct {
	secret    []byte
	ttl       time.Duration
	cost      int
	now       func() time.Time
	dummyHash []byte
}

// Option customizes Credentials.
type Option func(*Credentials)

// WithTokenTTL overrides the token lifetime.
func WithTokenTTL(ttl time.Duration) Option {
	return func(c *Credentials) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithHashCost overrides the bcrypt cost.
func WithHashCost(cost int) Option {
	return func(c *Credentials) {
		c.cost = cost
	}
}

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(c *Credentials) {
		c.now = now
	}
}

// New constructs Credentials. An empty signing key is a fatal configuration
// error.
func New(signingKey string, opts ...Option) (*Credentials, error) {
	signingKey = strings.TrimSpace(signingKey)
	if signingKey == "" {
		return nil, ErrMissingSigningKey
	}

	c := &Credentials{
		secret: []byte(signingKey),
		ttl:    DefaultTokenTTL,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	// Login compares against this hash when the username is unknown so the
	// response time does not reveal whether the account exists.
	var filler [32]byte
	if _, err := rand.Read(filler[:]); err != nil {
		return nil, fmt.Errorf("generate dummy secret: %w", err)
	}
	dummy, err := bcrypt.GenerateFromPassword(filler[:16], c.cost)
	if err != nil {
		return nil, fmt.Errorf("hash dummy secret: %w", err)
	}
	c.dummyHash = dummy

	return c, nil
}

// TokenTTL returns the lifetime of issued tokens.
func (c *Credentials) TokenTTL() time.Duration {
	return c.ttl
}

// HashSecret hashes plaintext with a freshly generated salt.
func (c *Credentials) HashSecret(plaintext string) (string, error) {
	if len(plaintext) > MaxSecretLength {
		return "", ErrSecretTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), c.cost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(hashed), nil
}

// VerifySecret reports whether plaintext matches hash.
func (c *Credentials) VerifySecret(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// BurnVerification performs a comparison against a dummy hash and always
// reports false. It is used when there is no stored hash to compare with.
func (c *Credentials) BurnVerification(plaintext string) bool {
	_ = bcrypt.CompareHashAndPassword(c.dummyHash, []byte(plaintext))
	return false
}

// IssueToken signs a token embedding userID and role.
func (c *Credentials) IssueToken(userID int, role types.Role) (string, error) {
	now := c.now()
	claims := Claims{
		ID:   userID,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// VerifyToken validates the signature and expiry of tokenString and returns
// its claims. Every failure wraps ErrInvalidToken.
func (c *Credentials) VerifyToken(tokenString string) (Claims, error) {
	claims := Claims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now), jwt.WithExpirationRequired())
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.ID < 1 || !claims.Role.Valid() {
		return Claims{}, fmt.Errorf("%w: malformed payload", ErrInvalidToken)
	}
	return claims, nil
}
