package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const minSecretBytes = 32

var (
	ErrSecretTooShort = fmt.Errorf("token: signing secret must be at least %d bytes", minSecretBytes)
	ErrInvalidToken   = errors.New("token: invalid token")
	ErrExpiredToken   = errors.New("token: token expired")
)

// JWTCodec signs and validates HS256 tokens. Claims hold the registered set
// only (sub, exp, iat, nbf, jti); no role or profile data is embedded.
type JWTCodec struct {
	secret []byte
}

var _ Issuer = (*JWTCodec)(nil)
var _ Validator = (*JWTCodec)(nil)

func NewJWTCodec(secret []byte) (*JWTCodec, error) {
	if len(secret) < minSecretBytes {
		return nil, ErrSecretTooShort
	}

	return &JWTCodec{
		secret: secret,
	}, nil
}

func (c *JWTCodec) Issue(ctx context.Context, subject string, ttl time.Duration) (string, error) {
	if c == nil {
		return "", ErrInvalidToken
	}
	if subject == "" {
		return "", errors.New("token: subject is required")
	}
	if ttl <= 0 {
		return "", errors.New("token: ttl must be greater than zero")
	}

	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

func (c *JWTCodec) Validate(ctx context.Context, tokenString string) (string, error) {
	if c == nil {
		return "", ErrInvalidToken
	}
	if tokenString == "" {
		return "", ErrInvalidToken
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("token: unexpected signing method %q", t.Method.Alg())
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	if !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}
