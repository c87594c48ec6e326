package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"userhub/internal/domain"
)

// ErrInvalidToken covers malformed, forged and expired tokens alike.
var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UID   string      `json:"userId"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// JWTer issues and verifies HS256 session tokens. Tokens are stateless:
// nothing is stored server side and claims are frozen at issuance.
type JWTer struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	// RefreshWindow bounds how long past expiry ParseExpired still accepts a token.
	RefreshWindow time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

func (j *JWTer) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

func (j *JWTer) ttl() time.Duration {
	if j.TTL <= 0 {
		return time.Hour
	}
	return j.TTL
}

func (j *JWTer) Issue(uid, email string, role domain.Role) (string, time.Time, error) {
	now := j.now()
	exp := now.Add(j.ttl())
	claims := Claims{
		UID:   uid,
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   uid,
			Issuer:    j.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(j.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return s, exp.Truncate(time.Second), nil
}

func (j *JWTer) keyFunc(token *jwt.Token) (interface{}, error) {
	if token.Method != jwt.SigningMethodHS256 {
		return nil, fmt.Errorf("unexpected alg %v", token.Header["alg"])
	}
	return j.Secret, nil
}

// Parse verifies the signature before looking at any claim, then requires
// exp > now with no leeway.
func (j *JWTer) Parse(tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, j.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || c.UID == "" {
		return nil, ErrInvalidToken
	}
	return c, nil
}

// ParseExpired accepts a correctly signed token whose exp lies at most
// RefreshWindow in the past. Callers must re-check account state before
// minting a replacement.
func (j *JWTer) ParseExpired(tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, j.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c, ok := t.Claims.(*Claims)
	if !ok || c.UID == "" || c.ExpiresAt == nil || c.Issuer != j.Issuer {
		return nil, ErrInvalidToken
	}
	if !j.now().Before(c.ExpiresAt.Add(j.RefreshWindow)) {
		return nil, fmt.Errorf("%w: refresh window elapsed", ErrInvalidToken)
	}
	return c, nil
}
