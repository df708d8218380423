package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/ordinal/internal/reorder"
)

// Commit is one entry of the reorder log.
type Commit struct {
	Seq         int64  `json:"seq"`
	Token       string `json:"token"`
	List        string `json:"list"`
	Group       string `json:"group"`
	Fingerprint string `json:"fingerprint"`
	Size        int    `json:"size"`
	Changed     int    `json:"changed"`
}

// ApplyOrder writes an instruction set for one group of a list and returns
// the group's authoritative snapshot.
//
// The write is atomic: every id must name an existing reorderable record of
// the group, otherwise ErrStaleID is returned and nothing changes. Only rows
// whose sort_order differs are updated. A commit row is appended to the log,
// keyed by token; re-applying a token that is already logged writes nothing
// and returns the current snapshot.
func (s *Store) ApplyOrder(ctx context.Context, list, group, token string, in reorder.Instructions) ([]Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("apply order: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var seq int64
	err = tx.QueryRowContext(ctx, `
		SELECT seq FROM reorder_commits WHERE token = ?
	`, token).Scan(&seq)
	switch {
	case err == nil:
		snapshot, err := listGroup(ctx, tx, list, group)
		if err != nil {
			return nil, fmt.Errorf("apply order: %w", err)
		}
		return snapshot, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("apply order: check token: %w", err)
	}

	current, err := listGroup(ctx, tx, list, group)
	if err != nil {
		return nil, fmt.Errorf("apply order: %w", err)
	}
	stored := make(map[string]int64, len(current))
	for _, r := range current {
		stored[r.ID] = r.SortOrder
	}

	seen := make(map[string]bool, len(in))
	for _, a := range in {
		id := normID(a.ID)
		if _, ok := stored[id]; !ok {
			return nil, fmt.Errorf("apply order: %w: %q", ErrStaleID, a.ID)
		}
		if seen[id] {
			return nil, fmt.Errorf("apply order: duplicate id %q", a.ID)
		}
		seen[id] = true
	}

	changed := 0
	for _, a := range in {
		id := normID(a.ID)
		if stored[id] == a.SortOrder {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE records SET sort_order = ? WHERE list_key = ? AND id = ?
		`, a.SortOrder, list, id); err != nil {
			return nil, fmt.Errorf("apply order: update %q: %w", a.ID, err)
		}
		changed++
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO reorder_commits (token, list_key, grp, fingerprint, size, changed)
		VALUES (?, ?, ?, ?, ?, ?)
	`, token, list, group, reorder.Fingerprint(in), len(in), changed); err != nil {
		return nil, fmt.Errorf("apply order: log commit: %w", err)
	}

	snapshot, err := listGroup(ctx, tx, list, group)
	if err != nil {
		return nil, fmt.Errorf("apply order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("apply order: commit: %w", err)
	}
	return snapshot, nil
}

// Commits returns the reorder log of a list, oldest first.
func (s *Store) Commits(ctx context.Context, list string) ([]Commit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, token, list_key, grp, fingerprint, size, changed
		FROM reorder_commits
		WHERE list_key = ?
		ORDER BY seq ASC
	`, list)
	if err != nil {
		return nil, fmt.Errorf("query commits: %w", err)
	}
	defer rows.Close()

	commits := []Commit{}
	for rows.Next() {
		var c Commit
		if err := rows.Scan(&c.Seq, &c.Token, &c.List, &c.Group, &c.Fingerprint, &c.Size, &c.Changed); err != nil {
			return nil, fmt.Errorf("scan commit: %w", err)
		}
		commits = append(commits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commits: %w", err)
	}
	return commits, nil
}

// TokenSource issues commit tokens.
type TokenSource interface {
	Generate() string
}

// Persister adapts the store to reorder.Persister for one group of a list.
// Each Persist call draws a fresh token from tokens.
func (s *Store) Persister(list, group string, tokens TokenSource) reorder.Persister[Body] {
	return reorder.PersistFunc[Body](func(ctx context.Context, in reorder.Instructions) ([]Record, error) {
		return s.ApplyOrder(ctx, list, group, tokens.Generate(), in)
	})
}
