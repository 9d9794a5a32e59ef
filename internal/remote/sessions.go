package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kspeckhals01/browser-tab-manager/internal/model"
)

// ListSessions returns the owner's sessions, newest first.
func (s *Store) ListSessions(ctx context.Context, userID string) ([]model.SavedSession, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id::text, name, tabs, created_at
		FROM saved_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []model.SavedSession{}
	for rows.Next() {
		var (
			sess model.SavedSession
			tabs []byte
		)
		if err := rows.Scan(&sess.ID, &sess.Name, &tabs, &sess.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if sess.Tabs, err = decodeTabs(tabs); err != nil {
			return nil, fmt.Errorf("session %q: %w", sess.Name, err)
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

// InsertSession stores a new session for the owner.
// Returns ErrDuplicateName when the owner already has a session with that name.
func (s *Store) InsertSession(ctx context.Context, userID string, session model.SavedSession) error {
	if err := s.wait(ctx); err != nil {
		return err
	}

	tabs, err := encodeTabs(session.Tabs)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO saved_sessions (id, user_id, name, tabs, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = s.pool.Exec(ctx, query, uuid.NewString(), userID, session.Name, tabs, createdAt(session.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("failed to insert session: %w", err)
	}

	s.logger.Debug("session inserted", zap.String("user_id", userID), zap.String("name", session.Name))
	return nil
}

// DeleteSession removes the owner's session by name and reports whether a
// row was deleted.
func (s *Store) DeleteSession(ctx context.Context, userID, name string) (bool, error) {
	if err := s.wait(ctx); err != nil {
		return false, err
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM saved_sessions WHERE user_id = $1 AND name = $2`, userID, name)
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func encodeTabs(tabs []model.Tab) ([]byte, error) {
	if tabs == nil {
		tabs = []model.Tab{}
	}
	data, err := json.Marshal(tabs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tabs: %w", err)
	}
	return data, nil
}

func decodeTabs(data []byte) ([]model.Tab, error) {
	tabs := []model.Tab{}
	if len(data) == 0 {
		return tabs, nil
	}
	if err := json.Unmarshal(data, &tabs); err != nil {
		return nil, fmt.Errorf("failed to decode tabs: %w", err)
	}
	return tabs, nil
}

func createdAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
