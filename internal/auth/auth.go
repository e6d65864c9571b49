// Package auth verifies caller identity from Firebase ID tokens.
package auth

import "context"

// Identity is the verified caller.
type Identity struct {
	UID   string
	Email string
}

// Auth verifies a raw token and returns the identity it carries.
type Auth interface {
	Verify(ctx context.Context, token string) (Identity, error)
}
