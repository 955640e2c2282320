// Package session holds the per-visitor application state: the backend auth
// token, the signed-in user and the shopping cart counter shown in the header.
//
// A State is loaded from the session store at the start of a request, mutated by
// handlers through its setters, and saved back when it changed.
package session

import (
	"time"

	"github.com/sakif/foodgram-web/internal/model"
)

// State is the root state of one browser session.
type State struct {
	ID string

	// Token is the backend auth token. Empty means the visitor is signed out.
	Token string
	// User is the current user profile, nil until it has been fetched.
	User *model.User
	// Orders is the number of recipes in the shopping cart. Never negative.
	Orders int

	CreatedAt time.Time
	ExpiresAt time.Time
}

// SignedIn reports whether the session carries a backend token.
func (s *State) SignedIn() bool {
	return s != nil && s.Token != ""
}

// UserID returns the signed-in user's id, or 0.
func (s *State) UserID() int {
	if s == nil || s.User == nil {
		return 0
	}
	return s.User.ID
}

// SetUser replaces the current user. nil clears it.
func (s *State) SetUser(u *model.User) {
	if u == nil {
		s.User = nil
		return
	}
	cp := *u
	s.User = &cp
}

// SetOrders sets the cart counter, clamping negative values to zero.
func (s *State) SetOrders(n int) {
	if n < 0 {
		n = 0
	}
	s.Orders = n
}

// UpdateOrders increments the cart counter, or decrements it when add is false.
// Decrementing an empty counter is a no-op.
func (s *State) UpdateOrders(add bool) {
	if add {
		s.Orders++
		return
	}
	if s.Orders > 0 {
		s.Orders--
	}
}

// SignOut forgets everything tied to the backend account.
func (s *State) SignOut() {
	s.Token = ""
	s.User = nil
	s.Orders = 0
}

// Expired reports whether the session is past its expiry at now.
func (s *State) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
