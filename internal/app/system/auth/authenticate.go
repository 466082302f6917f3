package auth

import (
	"context"
	"errors"

	"github.com/dalemusser/reporthub/internal/domain/models"
)

var (
	// ErrUnauthorized means no user has the given username.
	ErrUnauthorized = errors.New("user not found or not authorized")
	// ErrInvalidCredentials means the stored password is missing or differs.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDisabled means the account exists but isActive is false.
	ErrDisabled = errors.New("account disabled")
)

// UserFinder looks users up by username.
type UserFinder interface {
	GetByUsername(ctx context.Context, username string) (models.User, bool)
}

// Authenticate checks username and password. Failures are reported in this
// order: unknown user, bad or missing password, disabled account.
func Authenticate(ctx context.Context, finder UserFinder, username, password string) (models.User, error) {
	u, ok := finder.GetByUsername(ctx, username)
	if !ok {
		return models.User{}, ErrUnauthorized
	}
	if u.Password == "" || u.Password != password {
		return models.User{}, ErrInvalidCredentials
	}
	if !u.IsActive {
		return models.User{}, ErrDisabled
	}
	if u.Name == "" {
		u.Name = u.Username
	}
	return u, nil
}
