package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"

	"github.com/frahmantamala/marketplace/internal/principal"
)

const DefaultTokenTTL = 30 * 24 * time.Hour

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// RoleSnapshot is the role as it was at issue time. Decisions never read it;
// the live role is always reloaded.
type RoleSnapshot struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	IsSuperAdmin bool   `json:"isSuperAdmin"`
}

type Claims struct {
	PrincipalID int64          `json:"id"`
	Email       string         `json:"email"`
	Type        principal.Type `json:"type"`
	Role        RoleSnapshot   `json:"role"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies HS256 credentials.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	clock  clockwork.Clock
}

func NewTokenCodec(secret string, ttl time.Duration, clock clockwork.Clock) *TokenCodec {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TokenCodec{secret: []byte(secret), ttl: ttl, clock: clock}
}

func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Issue signs a token for p. p.Role must be loaded.
func (c *TokenCodec) Issue(p *principal.Principal) (string, time.Time, error) {
	if p == nil || p.Role == nil {
		return "", time.Time{}, errors.New("issue token: principal and role are required")
	}

	now := c.clock.Now()
	expiresAt := now.Add(c.ttl)
	claims := Claims{
		PrincipalID: p.ID,
		Email:       p.Email,
		Type:        p.Type,
		Role: RoleSnapshot{
			Code:         p.Role.Code,
			Name:         p.Role.Name,
			IsSuperAdmin: p.Role.IsSuperAdmin,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify fails closed: any signature, algorithm, structure or expiry problem
// is ErrInvalidToken or ErrTokenExpired.
func (c *TokenCodec) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || claims.PrincipalID <= 0 || !claims.Type.Valid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
