// Package identity is the boundary to the authentication service. The rest of
// the system treats it as opaque: it hands over an email and password and gets
// back a subject id. Password storage never leaks past this package.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrEmailTaken is returned when an identity already exists for the email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned on a failed sign-in.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Identity is an authenticated principal known to the provider.
type Identity struct {
	ID    string
	Email string
}

type Provider interface {
	// CreateIdentity registers email+password and returns the new identity.
	CreateIdentity(ctx context.Context, email, password string) (Identity, error)
	// Authenticate verifies email+password and returns the identity.
	Authenticate(ctx context.Context, email, password string) (Identity, error)
}
