package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sakif/foodgram-web/internal/apperror"
	"github.com/sakif/foodgram-web/internal/repository"
	"github.com/sakif/foodgram-web/internal/session"
)

// CookieName is the name of the session cookie.
const CookieName = "session"

type contextKey string

const stateKey contextKey = "session"

// Manager loads, persists and destroys browser sessions.
type Manager struct {
	tokens *TokenService
	store  repository.SessionRepository
	ttl    time.Duration
	secure bool
	logger *slog.Logger
}

// NewManager creates a Manager. Sessions live for ttl after they are created.
// secure marks the cookie Secure (HTTPS only).
func NewManager(tokens *TokenService, store repository.SessionRepository, ttl time.Duration, secure bool, logger *slog.Logger) *Manager {
	return &Manager{tokens: tokens, store: store, ttl: ttl, secure: secure, logger: logger}
}

// Load attaches the visitor's session to the request context.
//
// Visitors without a valid cookie get a fresh anonymous state that is not stored
// until Persist is called. An invalid or stale cookie is cleared.
func (m *Manager) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := &session.State{}

		if cookie, err := r.Cookie(CookieName); err == nil {
			loaded, err := m.lookup(r.Context(), cookie.Value)
			switch {
			case err == nil:
				state = loaded
			case errors.Is(err, apperror.ErrNotFound), errors.Is(err, ErrTokenExpired):
				m.clearCookie(w)
			default:
				m.logger.Warn("session lookup failed", slog.String("error", err.Error()))
				m.clearCookie(w)
			}
		}

		next.ServeHTTP(w, r.WithContext(WithState(r.Context(), state)))
	})
}

func (m *Manager) lookup(ctx context.Context, cookie string) (*session.State, error) {
	id, err := m.tokens.Validate(cookie)
	if err != nil {
		return nil, err
	}
	return m.store.Get(ctx, id)
}

// Persist stores s. A state that was never stored is created and the session
// cookie is issued; otherwise the stored row is updated.
func (m *Manager) Persist(ctx context.Context, w http.ResponseWriter, s *session.State) error {
	if s.ID != "" {
		return m.store.Save(ctx, s)
	}

	s.ExpiresAt = time.Now().Add(m.ttl)
	if err := m.store.Create(ctx, s); err != nil {
		return err
	}
	token, err := m.tokens.Generate(s.ID, m.ttl)
	if err != nil {
		return fmt.Errorf("auth: issuing session cookie: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// AdjustOrders moves the stored cart counter of s by one, up when add is true,
// and copies the stored result into s. Unsaved states only change in memory.
func (m *Manager) AdjustOrders(ctx context.Context, s *session.State, add bool) error {
	if s.ID == "" {
		s.UpdateOrders(add)
		return nil
	}
	delta := -1
	if add {
		delta = 1
	}
	n, err := m.store.AdjustOrders(ctx, s.ID, delta)
	if err != nil {
		return err
	}
	s.SetOrders(n)
	return nil
}

// StoreOrders writes the cart counter of s as is, after it was recounted.
func (m *Manager) StoreOrders(ctx context.Context, s *session.State) error {
	if s.ID == "" {
		return nil
	}
	return m.store.SetOrders(ctx, s.ID, s.Orders)
}

// Destroy deletes s and clears the cookie. The state is reset to anonymous.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, s *session.State) error {
	m.clearCookie(w)
	if s.ID == "" {
		s.SignOut()
		return nil
	}
	id := s.ID
	*s = session.State{}
	return m.store.Delete(ctx, id)
}

// Purge removes expired sessions every interval until ctx is done.
func (m *Manager) Purge(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := m.store.PurgeExpired(ctx, now)
			if err != nil {
				m.logger.Error("purging sessions", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				m.logger.Info("purged expired sessions", slog.Int64("count", n))
			}
		}
	}
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// RequireSignIn redirects anonymous visitors to the sign-in page. GET requests
// keep their target in ?next= so the visitor comes back after signing in.
func RequireSignIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !FromContext(r.Context()).SignedIn() {
			target := "/signin"
			if r.Method == http.MethodGet {
				target += "?next=" + url.QueryEscape(r.URL.RequestURI())
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedOut sends signed-in visitors away from the sign-in and sign-up pages.
func RequireSignedOut(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()).SignedIn() {
			http.Redirect(w, r, "/recipes", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithState returns a copy of ctx carrying s.
func WithState(ctx context.Context, s *session.State) context.Context {
	return context.WithValue(ctx, stateKey, s)
}

// FromContext returns the session attached by Load, or an anonymous state.
func FromContext(ctx context.Context) *session.State {
	if s, ok := ctx.Value(stateKey).(*session.State); ok && s != nil {
		return s
	}
	return &session.State{}
}
