package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/foodgram-web/internal/apperror"
	"github.com/sakif/foodgram-web/internal/model"
	"github.com/sakif/foodgram-web/internal/repository"
	"github.com/sakif/foodgram-web/internal/session"
)

var _ repository.SessionRepository = (*SessionDB)(nil)

// SessionDB stores sessions. Backend tokens are sealed with box before they
// reach the database.
type SessionDB struct {
	db  *DB
	box *session.Box
}

// Sessions returns the session store backed by db.
func (db *DB) Sessions(box *session.Box) *SessionDB {
	return &SessionDB{db: db, box: box}
}

// Create assigns an ID (if empty) and inserts s.
func (r *SessionDB) Create(ctx context.Context, s *session.State) error {
	if s.ID == "" {
		s.ID = xid.New().String()
	}
	now := time.Now().UTC()
	s.CreatedAt = now

	token, userJSON, err := r.encode(s)
	if err != nil {
		return err
	}

	_, err = r.db.conn.ExecContext(ctx,
		`INSERT INTO sessions (id, token, user_json, orders, created_at, updated_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, token, userJSON, s.Orders, now, now, s.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating session: %w", err)
	}
	return nil
}

// Get loads session id. Expired sessions are reported as not found.
func (r *SessionDB) Get(ctx context.Context, id string) (*session.State, error) {
	var (
		s        session.State
		token    []byte
		userJSON string
	)
	err := r.db.conn.QueryRowContext(ctx,
		`SELECT id, token, user_json, orders, created_at, expires_at
		 FROM sessions
		 WHERE id = ?`,
		id,
	).Scan(&s.ID, &token, &userJSON, &s.Orders, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("session", id)
		}
		return nil, fmt.Errorf("sqlite: getting session %s: %w", id, err)
	}
	if s.Expired(time.Now()) {
		return nil, apperror.NotFound("session", id)
	}

	if s.Token, err = r.box.Open(token); err != nil {
		return nil, fmt.Errorf("sqlite: opening token of session %s: %w", id, err)
	}
	if userJSON != "" {
		var u model.User
		if err := json.Unmarshal([]byte(userJSON), &u); err != nil {
			return nil, fmt.Errorf("sqlite: decoding user of session %s: %w", id, err)
		}
		s.User = &u
	}
	return &s, nil
}

// Save writes the mutable fields of s back, except the cart counter.
func (r *SessionDB) Save(ctx context.Context, s *session.State) error {
	token, userJSON, err := r.encode(s)
	if err != nil {
		return err
	}

	result, err := r.db.conn.ExecContext(ctx,
		`UPDATE sessions
		 SET token = ?, user_json = ?, expires_at = ?, updated_at = ?
		 WHERE id = ?`,
		token, userJSON, s.ExpiresAt.UTC(), time.Now().UTC(), s.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving session %s: %w", s.ID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperror.NotFound("session", s.ID)
	}
	return nil
}

// AdjustOrders moves the cart counter of session id by delta in one statement
// and returns the stored result. The counter never drops below zero.
func (r *SessionDB) AdjustOrders(ctx context.Context, id string, delta int) (int, error) {
	var orders int
	err := r.db.conn.QueryRowContext(ctx,
		`UPDATE sessions
		 SET orders = MAX(orders + ?, 0), updated_at = ?
		 WHERE id = ?
		 RETURNING orders`,
		delta, time.Now().UTC(), id,
	).Scan(&orders)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperror.NotFound("session", id)
		}
		return 0, fmt.Errorf("sqlite: adjusting orders of session %s: %w", id, err)
	}
	return orders, nil
}

// SetOrders overwrites the cart counter of session id.
func (r *SessionDB) SetOrders(ctx context.Context, id string, n int) error {
	result, err := r.db.conn.ExecContext(ctx,
		`UPDATE sessions SET orders = MAX(?, 0), updated_at = ? WHERE id = ?`,
		n, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting orders of session %s: %w", id, err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperror.NotFound("session", id)
	}
	return nil
}

// Delete removes session id. Deleting a missing session is not an error.
func (r *SessionDB) Delete(ctx context.Context, id string) error {
	if _, err := r.db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting session %s: %w", id, err)
	}
	return nil
}

// PurgeExpired deletes every session that expired before now.
func (r *SessionDB) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.conn.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ?`, now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: purging sessions: %w", err)
	}
	return result.RowsAffected()
}

func (r *SessionDB) encode(s *session.State) ([]byte, string, error) {
	token, err := r.box.Seal(s.Token)
	if err != nil {
		return nil, "", err
	}
	if s.User == nil {
		return token, "", nil
	}
	b, err := json.Marshal(s.User)
	if err != nil {
		return nil, "", fmt.Errorf("sqlite: encoding user: %w", err)
	}
	return token, string(b), nil
}
