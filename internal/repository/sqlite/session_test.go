package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sakif/foodgram-web/internal/apperror"
	"github.com/sakif/foodgram-web/internal/model"
	"github.com/sakif/foodgram-web/internal/session"
)

// newTestSessions returns a session store backed by a fresh in-memory database.
func newTestSessions(t *testing.T) (*DB, *SessionDB) {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, db.Sessions(session.NewBox("test-secret-value"))
}

func createTestSession(t *testing.T, r *SessionDB, s *session.State) *session.State {
	t.Helper()
	if s.ExpiresAt.IsZero() {
		s.ExpiresAt = time.Now().Add(time.Hour)
	}
	if err := r.Create(context.Background(), s); err != nil {
		t.Fatalf("failed to create test session: %v", err)
	}
	return s
}

// =========================================================================
// CREATE / GET
// =========================================================================

func TestSessionCreate_AssignsID(t *testing.T) {
	_, r := newTestSessions(t)

	s := createTestSession(t, r, &session.State{})
	if s.ID == "" {
		t.Error("Create() did not set ID")
	}
	if s.CreatedAt.IsZero() {
		t.Error("Create() did not set CreatedAt")
	}
}

func TestSessionGet_RoundTrip(t *testing.T) {
	_, r := newTestSessions(t)
	created := createTestSession(t, r, &session.State{
		Token:  "backend-token",
		User:   &model.User{ID: 7, Username: "chef", Email: "chef@example.com"},
		Orders: 3,
	})

	got, err := r.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Token != "backend-token" {
		t.Errorf("Token = %q, want %q", got.Token, "backend-token")
	}
	if got.User == nil || got.User.Username != "chef" {
		t.Errorf("User = %+v, want chef", got.User)
	}
	if got.Orders != 3 {
		t.Errorf("Orders = %d, want 3", got.Orders)
	}
}

func TestSessionGet_TokenIsSealedAtRest(t *testing.T) {
	db, r := newTestSessions(t)
	s := createTestSession(t, r, &session.State{Token: "plain-token"})

	var raw []byte
	err := db.conn.QueryRow(`SELECT token FROM sessions WHERE id = ?`, s.ID).Scan(&raw)
	if err != nil {
		t.Fatalf("reading raw token: %v", err)
	}
	if string(raw) == "plain-token" {
		t.Error("token stored in plain text")
	}
}

func TestSessionGet_NotFound(t *testing.T) {
	_, r := newTestSessions(t)

	_, err := r.Get(context.Background(), "nonexistent")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestSessionGet_Expired(t *testing.T) {
	_, r := newTestSessions(t)
	s := createTestSession(t, r, &session.State{ExpiresAt: time.Now().Add(-time.Minute)})

	_, err := r.Get(context.Background(), s.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// SAVE / DELETE / PURGE
// =========================================================================

func TestSessionSave(t *testing.T) {
	_, r := newTestSessions(t)
	s := createTestSession(t, r, &session.State{})

	s.Token = "new-token"
	s.SetUser(&model.User{ID: 1, Username: "ann"})
	if err := r.Save(context.Background(), s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := r.Get(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Token != "new-token" || got.UserID() != 1 {
		t.Errorf("Get() after Save = %+v", got)
	}

	s.SignOut()
	if err := r.Save(context.Background(), s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, _ = r.Get(context.Background(), s.ID)
	if got.SignedIn() || got.User != nil {
		t.Errorf("signed-out session still carries account data: %+v", got)
	}
}

func TestSessionSave_KeepsStoredOrders(t *testing.T) {
	_, r := newTestSessions(t)
	s := createTestSession(t, r, &session.State{Token: "t", Orders: 2})

	// Another request added a recipe to the cart meanwhile.
	if _, err := r.AdjustOrders(context.Background(), s.ID, 1); err != nil {
		t.Fatalf("AdjustOrders() error = %v", err)
	}

	s.SetUser(&model.User{ID: 1, Username: "ann"})
	if err := r.Save(context.Background(), s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := r.Get(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Orders != 3 {
		t.Errorf("Orders = %d, want 3", got.Orders)
	}
}

func TestSessionSave_NotFound(t *testing.T) {
	_, r := newTestSessions(t)

	err := r.Save(context.Background(), &session.State{ID: "missing", ExpiresAt: time.Now().Add(time.Hour)})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Save() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// ORDERS
// =========================================================================

func TestSessionAdjustOrders(t *testing.T) {
	_, r := newTestSessions(t)
	s := createTestSession(t, r, &session.State{Token: "t", Orders: 1})

	steps := []struct {
		delta int
		want  int
	}{
		{+1, 2},
		{-1, 1},
		{-1, 0},
		{-1, 0}, // clamped at zero
		{+1, 1},
	}
	for i, step := range steps {
		got, err := r.AdjustOrders(context.Background(), s.ID, step.delta)
		if err != nil {
			t.Fatalf("step %d: AdjustOrders() error = %v", i, err)
		}
		if got != step.want {
			t.Errorf("step %d: AdjustOrders(%+d) = %d, want %d", i, step.delta, got, step.want)
		}
	}
}

func TestSessionAdjustOrders_Concurrent(t *testing.T) {
	_, r := newTestSessions(t)
	s := createTestSession(t, r, &session.State{Token: "t"})

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.AdjustOrders(context.Background(), s.ID, 1); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("AdjustOrders() error = %v", err)
	}

	got, err := r.Get(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Orders != n {
		t.Errorf("Orders = %d, want %d", got.Orders, n)
	}
}

func TestSessionAdjustOrders_NotFound(t *testing.T) {
	_, r := newTestSessions(t)

	_, err := r.AdjustOrders(context.Background(), "missing", 1)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("AdjustOrders() error = %v, want ErrNotFound", err)
	}
}

func TestSessionSetOrders(t *testing.T) {
	_, r := newTestSessions(t)
	s := createTestSession(t, r, &session.State{Token: "t", Orders: 4})

	if err := r.SetOrders(context.Background(), s.ID, 1); err != nil {
		t.Fatalf("SetOrders() error = %v", err)
	}
	got, _ := r.Get(context.Background(), s.ID)
	if got.Orders != 1 {
		t.Errorf("Orders = %d, want 1", got.Orders)
	}

	if err := r.SetOrders(context.Background(), "missing", 1); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("SetOrders(missing) error = %v, want ErrNotFound", err)
	}
}

func TestNew_ReopensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")

	db, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	r := db.Sessions(session.NewBox("test-secret-value"))
	s := createTestSession(t, r, &session.State{Token: "t", Orders: 2})
	db.Close()

	db, err = New(path)
	if err != nil {
		t.Fatalf("second New() error = %v", err)
	}
	defer db.Close()
	got, err := db.Sessions(session.NewBox("test-secret-value")).Get(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if got.Orders != 2 {
		t.Errorf("Orders = %d, want 2", got.Orders)
	}
}

func TestSessionDelete(t *testing.T) {
	_, r := newTestSessions(t)
	s := createTestSession(t, r, &session.State{Token: "t"})

	if err := r.Delete(context.Background(), s.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := r.Get(context.Background(), s.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get() after Delete error = %v, want ErrNotFound", err)
	}
	if err := r.Delete(context.Background(), s.ID); err != nil {
		t.Errorf("second Delete() error = %v, want nil", err)
	}
}

func TestSessionPurgeExpired(t *testing.T) {
	_, r := newTestSessions(t)
	now := time.Now()
	createTestSession(t, r, &session.State{ExpiresAt: now.Add(-time.Hour)})
	createTestSession(t, r, &session.State{ExpiresAt: now.Add(-time.Minute)})
	live := createTestSession(t, r, &session.State{ExpiresAt: now.Add(time.Hour)})

	n, err := r.PurgeExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("PurgeExpired() error = %v", err)
	}
	if n != 2 {
		t.Errorf("PurgeExpired() = %d, want 2", n)
	}
	if _, err := r.Get(context.Background(), live.ID); err != nil {
		t.Errorf("live session purged: %v", err)
	}
}
