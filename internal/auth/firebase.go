package auth

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	fbAuth "firebase.google.com/go/auth"

	"github.com/CodeEzard/vericred/pkg/utils"
)

// FirebaseAuthClient is the subset of the Firebase auth client used here,
// extracted so tests can substitute a mock verifier.
type FirebaseAuthClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbAuth.Token, error)
}

// Authenticator verifies Firebase ID tokens. When allowedDomains is
// non-empty, the token's email must belong to one of them.
type Authenticator struct {
	client         FirebaseAuthClient
	allowedDomains []string
}

func New(client FirebaseAuthClient, allowedDomains []string) *Authenticator {
	return &Authenticator{
		client:         client,
		allowedDomains: utils.Filter(allowedDomains, func(d string) bool { return strings.TrimSpace(d) != "" }),
	}
}

func (a *Authenticator) Verify(ctx context.Context, token string) (Identity, error) {
	decoded, err := a.client.VerifyIDToken(ctx, token)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid token: %w", err)
	}

	identity := Identity{UID: decoded.UID}
	if rawEmail, ok := decoded.Claims["email"]; ok {
		if email, ok := rawEmail.(string); ok {
			identity.Email = email
		}
	}

	if len(a.allowedDomains) == 0 {
		return identity, nil
	}

	addr, err := mail.ParseAddress(identity.Email)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to verify the token: invalid email format")
	}
	splitEmail := strings.Split(addr.Address, "@")
	if len(splitEmail) != 2 {
		return Identity{}, fmt.Errorf("failed to verify the token: malformed email structure")
	}
	if !utils.Contains(a.allowedDomains, splitEmail[1]) {
		return Identity{}, fmt.Errorf("failed to verify the token: invalid email domain")
	}

	return identity, nil
}
