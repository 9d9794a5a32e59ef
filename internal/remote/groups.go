package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/kspeckhals01/browser-tab-manager/internal/model"
)

// ListGroups returns the owner's groups, newest first.
func (s *Store) ListGroups(ctx context.Context, userID string) ([]model.TabGroup, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id::text, name, tabs, created_at
		FROM tab_groups
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	groups := []model.TabGroup{}
	for rows.Next() {
		var (
			g    model.TabGroup
			tabs []byte
		)
		if err := rows.Scan(&g.ID, &g.Name, &tabs, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		if g.Tabs, err = decodeTabs(tabs); err != nil {
			return nil, fmt.Errorf("group %q: %w", g.Name, err)
		}
		groups = append(groups, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating groups: %w", err)
	}

	return groups, nil
}

// InsertGroup stores a new group for the owner. Tabs are stored as given;
// callers normalize identifiers first.
// Returns ErrDuplicateName when the owner already has a group with that name.
func (s *Store) InsertGroup(ctx context.Context, userID string, group model.TabGroup) error {
	if err := s.wait(ctx); err != nil {
		return err
	}

	tabs, err := encodeTabs(group.Tabs)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tab_groups (id, user_id, name, tabs, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = s.pool.Exec(ctx, query, uuid.NewString(), userID, group.Name, tabs, createdAt(group.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("failed to insert group: %w", err)
	}

	s.logger.Debug("group inserted", zap.String("user_id", userID), zap.String("name", group.Name))
	return nil
}

// DeleteGroup removes the owner's group by name and reports whether a row
// was deleted.
func (s *Store) DeleteGroup(ctx context.Context, userID, name string) (bool, error) {
	if err := s.wait(ctx); err != nil {
		return false, err
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM tab_groups WHERE user_id = $1 AND name = $2`, userID, name)
	if err != nil {
		return false, fmt.Errorf("failed to delete group: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// RenameGroup relabels the owner's group. Reports false when no group is
// named oldName; returns ErrDuplicateName when newName is taken.
func (s *Store) RenameGroup(ctx context.Context, userID, oldName, newName string) (bool, error) {
	if err := s.wait(ctx); err != nil {
		return false, err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE tab_groups SET name = $3 WHERE user_id = $1 AND name = $2`,
		userID, oldName, newName,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, ErrDuplicateName
		}
		return false, fmt.Errorf("failed to rename group: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GroupTabs returns the tab list of the owner's group.
// Returns ErrNotFound when the owner has no such group.
func (s *Store) GroupTabs(ctx context.Context, userID, name string) ([]model.Tab, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT tabs FROM tab_groups WHERE user_id = $1 AND name = $2`,
		userID, name,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load group tabs: %w", err)
	}
	return decodeTabs(data)
}

// SetGroupTabs replaces the tab list of the owner's group.
// Returns ErrNotFound when the owner has no such group.
func (s *Store) SetGroupTabs(ctx context.Context, userID, name string, tabs []model.Tab) error {
	if err := s.wait(ctx); err != nil {
		return err
	}

	data, err := encodeTabs(tabs)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE tab_groups SET tabs = $3 WHERE user_id = $1 AND name = $2`,
		userID, name, data,
	)
	if err != nil {
		return fmt.Errorf("failed to update group tabs: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
