package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var ErrBadToken = errors.New("invalid token")

// default access token lifetime issued by the api
const AccessTTL = 15 * time.Minute

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Expired reports whether the claims carry an expiry that is already past.
func (c *Claims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(c.ExpiresAt.Time)
}

func MakeToken(uid, email, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := Claims{
		UserID: uid,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

func keyFunc(secret string) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		// block alg confusion
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadToken
		}
		return []byte(secret), nil
	}
}

func ParseToken(raw, secret string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, keyFunc(secret))
	if err != nil {
		return nil, err
	}
	c, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrBadToken
	}
	return c, nil
}

// ParseForRefresh verifies the signature but tolerates an expired token as
// long as it expired less than grace ago. Used by the refresh endpoint.
func ParseForRefresh(raw, secret string, grace time.Duration) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, keyFunc(secret), jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, err
	}
	c, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrBadToken
	}
	if c.ExpiresAt != nil && time.Since(c.ExpiresAt.Time) > grace {
		return nil, ErrBadToken
	}
	return c, nil
}

// Inspect decodes the claims without verifying the signature. The client
// never holds the signing secret; this is only for display and logging.
func Inspect(raw string) (*Claims, error) {
	c := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, c); err != nil {
		return nil, ErrBadToken
	}
	return c, nil
}
