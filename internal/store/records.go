package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/ordinal/internal/reorder"
)

// Body is the stored payload of a record. The reorder engine never reads it.
type Body struct {
	Group string          `json:"group,omitempty"`
	Fixed bool            `json:"fixed,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Record is an orderable record as stored.
type Record = reorder.Item[Body]

// UpsertRecord inserts a record or replaces the stored one with the same id.
// Uses ON CONFLICT(list_key, id) DO UPDATE so seeding is repeatable.
func (s *Store) UpsertRecord(ctx context.Context, list string, r Record) error {
	data, err := marshalData(r.Payload.Data)
	if err != nil {
		return fmt.Errorf("upsert record %q: %w", r.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (list_key, id, sort_order, grp, fixed, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(list_key, id) DO UPDATE SET
			sort_order = excluded.sort_order,
			grp        = excluded.grp,
			fixed      = excluded.fixed,
			payload    = excluded.payload
	`,
		list,
		normID(r.ID),
		r.SortOrder,
		r.Payload.Group,
		r.Payload.Fixed,
		data,
	)
	if err != nil {
		return fmt.Errorf("upsert record %q: %w", r.ID, err)
	}
	return nil
}

// DeleteRecord removes a record. Returns ErrNotFound if it does not exist.
func (s *Store) DeleteRecord(ctx context.Context, list, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM records WHERE list_key = ? AND id = ?
	`, list, normID(id))
	if err != nil {
		return fmt.Errorf("delete record %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record %q: rows affected: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete record %q: %w", id, ErrNotFound)
	}
	return nil
}

// ListRecords returns every record of a list in comparator order.
// Returns an empty slice (not nil) for an unknown list.
func (s *Store) ListRecords(ctx context.Context, list string) ([]Record, error) {
	return queryRecords(ctx, s.db, `
		SELECT id, sort_order, grp, fixed, payload
		FROM records
		WHERE list_key = ?
		ORDER BY sort_order ASC, id COLLATE BINARY ASC
	`, list)
}

// ListGroup returns the reorderable (non-fixed) records of one group.
func (s *Store) ListGroup(ctx context.Context, list, group string) ([]Record, error) {
	return listGroup(ctx, s.db, list, group)
}

func listGroup(ctx context.Context, q querier, list, group string) ([]Record, error) {
	return queryRecords(ctx, q, `
		SELECT id, sort_order, grp, fixed, payload
		FROM records
		WHERE list_key = ? AND grp = ? AND fixed = 0
		ORDER BY sort_order ASC, id COLLATE BINARY ASC
	`, list, group)
}

// Lists returns the keys of every list that has at least one record.
func (s *Store) Lists(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT list_key FROM records ORDER BY list_key COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query lists: %w", err)
	}
	defer rows.Close()

	lists := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan list key: %w", err)
		}
		lists = append(lists, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lists: %w", err)
	}
	return lists, nil
}

func queryRecords(ctx context.Context, q querier, query string, args ...any) ([]Record, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var r Record
	var data string
	if err := rows.Scan(&r.ID, &r.SortOrder, &r.Payload.Group, &r.Payload.Fixed, &data); err != nil {
		return Record{}, fmt.Errorf("scan record: %w", err)
	}
	if data != "" {
		r.Payload.Data = json.RawMessage(data)
	}
	return r, nil
}

// marshalData validates and compacts a JSON payload for storage.
func marshalData(data json.RawMessage) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return buf.String(), nil
}
