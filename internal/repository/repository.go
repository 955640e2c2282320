// Package repository declares the storage interfaces the rest of the app depends on.
// Implementations live in subpackages (sqlite).
package repository

import (
	"context"
	"time"

	"github.com/sakif/foodgram-web/internal/session"
)

// SessionRepository persists browser sessions.
//
// Get returns an apperror.ErrNotFound error for unknown and expired sessions alike.
//
// Save never touches the cart counter: it changes only through AdjustOrders
// and SetOrders, so parallel requests of one session cannot overwrite each
// other's steps.
type SessionRepository interface {
	Create(ctx context.Context, s *session.State) error
	Get(ctx context.Context, id string) (*session.State, error)
	Save(ctx context.Context, s *session.State) error
	// AdjustOrders adds delta to the stored counter, clamped at zero, and
	// returns the new value.
	AdjustOrders(ctx context.Context, id string, delta int) (int, error)
	SetOrders(ctx context.Context, id string, n int) error
	Delete(ctx context.Context, id string) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
