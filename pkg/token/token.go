// Package token issues and validates the opaque bearer credential that binds
// a request to one account identity. Tokens never carry a role: the role is
// re-resolved from the account record at authorization time.
package token

import (
	"context"
	"time"
)

type Issuer interface {
	Issue(ctx context.Context, subject string, ttl time.Duration) (string, error)
}

// Validator resolves a bearer token to the account identifier it was issued
// for. Missing, malformed, or expired tokens fail.
type Validator interface {
	Validate(ctx context.Context, token string) (string, error)
}
