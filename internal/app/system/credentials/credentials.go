// Package credentials hashes and verifies identity passwords. Callers only
// ever see the opaque bcrypt verifier, never a plaintext comparison.
package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/weblivery/internal/app/system/normalize"
	"github.com/dalemusser/weblivery/internal/domain/errs"
	"github.com/dalemusser/weblivery/internal/domain/models"
	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt work factor for new hashes.
const Cost = 12

// MinPasswordLen is the shortest password accepted at registration.
const MinPasswordLen = 8

// Login failures. Both wrap errs.ErrUnauthenticated so callers that only
// care about the outcome need a single check.
var (
	ErrUnknownEmail  = fmt.Errorf("%w: unknown email", errs.ErrUnauthenticated)
	ErrWrongPassword = fmt.Errorf("%w: wrong password", errs.ErrUnauthenticated)
)

// dummyHash is compared against when the email is unknown so a miss costs
// about as much as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("weblivery-dummy-password"), bcrypt.MinCost)

// Hash returns the bcrypt verifier for password.
func Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), Cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Matches reports whether password matches the stored verifier.
func Matches(hash, password string) bool {
	if hash == "" || password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// EmailLookup finds an identity by its login email.
type EmailLookup interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// Check verifies an email/password pair against the identity store.
// An unknown email returns ErrUnknownEmail. A wrong password returns
// ErrWrongPassword together with the identity, so the failure can be
// attributed. Store failures are returned as-is.
func Check(ctx context.Context, users EmailLookup, email, password string) (*models.User, error) {
	u, err := users.GetByEmail(ctx, normalize.Email(email))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, ErrUnknownEmail
		}
		return nil, err
	}
	if !Matches(u.PasswordHash, password) {
		return u, ErrWrongPassword
	}
	return u, nil
}
