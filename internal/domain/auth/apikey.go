package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when no active API key matches a hash.
var ErrNotFound = errors.New("api key not found")

// APIKeyInfo holds the identity bound to a validated API key. Every key
// belongs to one user; Admin grants access to the administrative endpoints.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	UserID  string
	Name    string
	Admin   bool
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
