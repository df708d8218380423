package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seed writes records into list with dense sort orders in the given order.
func seed(t *testing.T, s *Store, list, group string, ids ...string) {
	t.Helper()
	for i, id := range ids {
		r := Record{ID: id, SortOrder: int64(i), Payload: Body{Group: group}}
		if err := s.UpsertRecord(context.Background(), list, r); err != nil {
			t.Fatalf("UpsertRecord(%q) failed: %v", id, err)
		}
	}
}

func recordIDs(records []Record) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"records", "reorder_commits"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Error(err)
	}
	if err := s.verifyPragma("foreign_keys", "1"); err != nil {
		t.Error(err)
	}
	if err := s.verifyPragma("user_version", "1"); err != nil {
		t.Error(err)
	}
}

func TestOpen_MigrationCreatesHistoryIndex(t *testing.T) {
	s := createTestStore(t)

	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_commits_list'",
	).Scan(&name)
	if err != nil {
		t.Fatalf("idx_commits_list missing: %v", err)
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestListRecords_ComparatorOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, r := range []Record{
		{ID: "b", SortOrder: 1},
		{ID: "a", SortOrder: 1},
		{ID: "z", SortOrder: 0},
		{ID: "B", SortOrder: 1},
	} {
		if err := s.UpsertRecord(ctx, "faq", r); err != nil {
			t.Fatalf("UpsertRecord() failed: %v", err)
		}
	}

	got, err := s.ListRecords(ctx, "faq")
	if err != nil {
		t.Fatalf("ListRecords() failed: %v", err)
	}
	if diff := cmp.Diff([]string{"z", "B", "a", "b"}, recordIDs(got)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestListRecords_UnknownListIsEmpty(t *testing.T) {
	s := createTestStore(t)

	got, err := s.ListRecords(context.Background(), "nope")
	if err != nil {
		t.Fatalf("ListRecords() failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("ListRecords() = %#v, want empty non-nil slice", got)
	}
}

func TestUpsertRecord_RoundTripsPayload(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	in := Record{ID: "hero", SortOrder: 0, Payload: Body{
		Group: "",
		Fixed: true,
		Data:  json.RawMessage(`{ "title": "Welcome" }`),
	}}
	if err := s.UpsertRecord(ctx, "about", in); err != nil {
		t.Fatalf("UpsertRecord() failed: %v", err)
	}

	got, err := s.ListRecords(ctx, "about")
	if err != nil {
		t.Fatalf("ListRecords() failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if !got[0].Payload.Fixed {
		t.Error("Fixed flag lost")
	}
	if string(got[0].Payload.Data) != `{"title":"Welcome"}` {
		t.Errorf("Data = %s, want compacted JSON", got[0].Payload.Data)
	}
}

func TestUpsertRecord_ReplacesExisting(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seed(t, s, "faq", "", "a", "b")

	if err := s.UpsertRecord(ctx, "faq", Record{ID: "a", SortOrder: 9}); err != nil {
		t.Fatalf("UpsertRecord() failed: %v", err)
	}

	got, _ := s.ListRecords(ctx, "faq")
	if diff := cmp.Diff([]string{"b", "a"}, recordIDs(got)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestUpsertRecord_RejectsInvalidJSON(t *testing.T) {
	s := createTestStore(t)

	err := s.UpsertRecord(context.Background(), "faq", Record{
		ID:      "a",
		Payload: Body{Data: json.RawMessage(`{not json`)},
	})
	if err == nil {
		t.Fatal("expected error for invalid payload")
	}
}

func TestUpsertRecord_NormalizesIDs(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seed(t, s, "faq", "", "caf\u00e9")
	if err := s.UpsertRecord(ctx, "faq", Record{ID: "cafe\u0301", SortOrder: 4}); err != nil {
		t.Fatalf("UpsertRecord() failed: %v", err)
	}

	got, _ := s.ListRecords(ctx, "faq")
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1 (ids should collapse under NFC)", len(got))
	}
	if got[0].SortOrder != 4 {
		t.Errorf("SortOrder = %d, want 4", got[0].SortOrder)
	}
}

func TestDeleteRecord(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seed(t, s, "faq", "", "a", "b")

	if err := s.DeleteRecord(ctx, "faq", "a"); err != nil {
		t.Fatalf("DeleteRecord() failed: %v", err)
	}
	got, _ := s.ListRecords(ctx, "faq")
	if diff := cmp.Diff([]string{"b"}, recordIDs(got)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	err := s.DeleteRecord(ctx, "faq", "a")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteRecord() = %v, want ErrNotFound", err)
	}
}

func TestListGroup_ExcludesFixedAndOtherGroups(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seed(t, s, "team", "lead", "ann", "bob")
	seed(t, s, "team", "staff", "cy")
	if err := s.UpsertRecord(ctx, "team", Record{ID: "hero", Payload: Body{Group: "lead", Fixed: true}}); err != nil {
		t.Fatalf("UpsertRecord() failed: %v", err)
	}

	got, err := s.ListGroup(ctx, "team", "lead")
	if err != nil {
		t.Fatalf("ListGroup() failed: %v", err)
	}
	if diff := cmp.Diff([]string{"ann", "bob"}, recordIDs(got)); diff != "" {
		t.Errorf("group mismatch (-want +got):\n%s", diff)
	}
}

func TestLists(t *testing.T) {
	s := createTestStore(t)
	seed(t, s, "team", "", "a")
	seed(t, s, "faq", "", "a", "b")

	got, err := s.Lists(context.Background())
	if err != nil {
		t.Fatalf("Lists() failed: %v", err)
	}
	if diff := cmp.Diff([]string{"faq", "team"}, got); diff != "" {
		t.Errorf("lists mismatch (-want +got):\n%s", diff)
	}
}
