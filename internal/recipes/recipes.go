// Package recipes holds the view controllers for recipe pages.
//
// A controller owns the recipes one page is showing and the mutations a viewer can
// perform on them (favorite, shopping cart, subscription). Controllers never flip a
// flag before the backend confirms the change: state is patched only after the call
// succeeds, so it always mirrors server truth.
//
// LIFETIME:
// A controller is created per request and scoped to a context. Close cancels any
// request still in flight, and results that arrive after Close or after a newer Load
// are discarded instead of patching state the view no longer shows.
//
// OVERLAPPING TOGGLES:
// An Inflight registry shared by all controllers allows at most one toggle per
// (viewer, recipe) at a time. A second click while the first is pending fails with
// apperror.ErrBusy instead of racing the first one.
package recipes

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/sakif/foodgram-web/internal/apperror"
	"github.com/sakif/foodgram-web/internal/foodgram"
	"github.com/sakif/foodgram-web/internal/model"
)

// API is the part of the backend client the controllers use.
// *foodgram.Client implements it.
type API interface {
	Recipes(ctx context.Context, q foodgram.RecipeQuery) (*model.Page[model.Recipe], error)
	Recipe(ctx context.Context, id int) (*model.Recipe, error)
	Favorite(ctx context.Context, id int) error
	Unfavorite(ctx context.Context, id int) error
	AddToCart(ctx context.Context, id int) error
	RemoveFromCart(ctx context.Context, id int) error
	Subscribe(ctx context.Context, authorID int) error
	Unsubscribe(ctx context.Context, authorID int) error
}

var _ API = (*foodgram.Client)(nil)

// Options configures a controller for one viewer.
type Options struct {
	// Session identifies the viewer for the in-flight registry. Empty means the
	// viewer is anonymous, and every mutation fails with apperror.ErrUnauthorized.
	Session string
	// UserID is the viewer's own user id, used to refuse self-subscription.
	UserID int
	// Inflight is shared across requests. A nil registry disables the guard.
	Inflight *Inflight
	// OnCart is invoked with true/false after a recipe is added to/removed from the cart.
	OnCart func(added bool)
	Logger *slog.Logger
}

// view is the state shared by List and Single.
type view struct {
	api  API
	opts Options

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	gen    uint64 // bumped by every load; toggles started under an older gen are not applied
	closed bool
}

func newView(ctx context.Context, api API, opts Options) view {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	return view{api: api, opts: opts, ctx: ctx, cancel: cancel}
}

// Close cancels outstanding requests. Later results are dropped.
func (v *view) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
	v.cancel()
}

// begin starts a load and returns its generation.
func (v *view) begin() (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return 0, context.Canceled
	}
	v.gen++
	return v.gen, nil
}

// current reports whether a result started under gen may still be applied.
// The caller must hold v.mu.
func (v *view) current(gen uint64) bool {
	return !v.closed && v.gen == gen
}

// signedIn fails for anonymous viewers, before any backend call is made.
func (v *view) signedIn() error {
	if v.opts.Session == "" {
		return apperror.Unauthorized("sign in to continue")
	}
	return nil
}

// mutate runs one toggle call under the sign-in check and the in-flight guard.
func (v *view) mutate(kind string, id int, call func(ctx context.Context) error) error {
	if err := v.signedIn(); err != nil {
		return err
	}

	key := v.opts.Session + ":" + kind + ":" + strconv.Itoa(id)
	if !v.opts.Inflight.acquire(key) {
		return apperror.Busy(kind, strconv.Itoa(id))
	}
	defer v.opts.Inflight.release(key)

	if err := call(v.ctx); err != nil {
		v.opts.Logger.Warn("toggle failed",
			slog.String("kind", kind),
			slog.Int("id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("recipes: %s %d: %w", kind, id, err)
	}
	return nil
}

func (v *view) favorite(id int, want bool) error {
	return v.mutate("favorite", id, func(ctx context.Context) error {
		if want {
			return v.api.Favorite(ctx, id)
		}
		return v.api.Unfavorite(ctx, id)
	})
}

func (v *view) cart(id int, want bool) error {
	err := v.mutate("cart", id, func(ctx context.Context) error {
		if want {
			return v.api.AddToCart(ctx, id)
		}
		return v.api.RemoveFromCart(ctx, id)
	})
	if err != nil {
		return err
	}

	v.mu.Lock()
	closed := v.closed
	v.mu.Unlock()
	if !closed && v.opts.OnCart != nil {
		v.opts.OnCart(want)
	}
	return nil
}

func (v *view) subscription(authorID int, want bool) error {
	if v.opts.UserID != 0 && authorID == v.opts.UserID {
		return apperror.ValidationFailed("author", "you cannot subscribe to yourself")
	}
	return v.mutate("subscription", authorID, func(ctx context.Context) error {
		if want {
			return v.api.Subscribe(ctx, authorID)
		}
		return v.api.Unsubscribe(ctx, authorID)
	})
}

// Inflight tracks toggle requests that are waiting for the backend.
// The zero value is not usable; call NewInflight. A nil *Inflight never blocks.
type Inflight struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

// NewInflight creates an empty registry.
func NewInflight() *Inflight {
	return &Inflight{busy: make(map[string]struct{})}
}

func (f *Inflight) acquire(key string) bool {
	if f == nil {
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.busy[key]; ok {
		return false
	}
	f.busy[key] = struct{}{}
	return true
}

func (f *Inflight) release(key string) {
	if f == nil {
		return
	}
	f.mu.Lock()
	delete(f.busy, key)
	f.mu.Unlock()
}

// Pending returns how many toggles are in flight.
func (f *Inflight) Pending() int {
	if f == nil {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.busy)
}
