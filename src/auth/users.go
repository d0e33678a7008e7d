package auth

import (
	"context"
	"errors"
	"time"

	"github.com/theleywin/Framez-Backend/src/models"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// Users persists accounts and the token ids signed out before they expire.
type Users interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Insert(ctx context.Context, user *models.User) (string, error)
	AddPushToken(ctx context.Context, id, token string) error

	// Revoke records tokenID as signed out. Recording it twice is not an
	// error. The record may be dropped once expiresAt has passed.
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	// WatchRevocations calls fn for every revocation recorded after the
	// watch starts. It blocks until ctx is done or the watch fails.
	WatchRevocations(ctx context.Context, fn func(tokenID string, expiresAt time.Time)) error
}
