package reorder_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ordinal/internal/reorder"
	"github.com/roach88/ordinal/internal/testutil"
)

const rowHeight = 40

func newSession(t *testing.T, ids ...string) (*reorder.Session[string], *testutil.FakePersister[string]) {
	t.Helper()
	items := testutil.Items(ids...)
	fake := testutil.NewFakePersister(items)
	s := reorder.NewSession[string](fake, reorder.WithName("faq"))
	require.NoError(t, s.Reset(items))
	return s, fake
}

// dragOnto drags id onto the upper or lower half of target and drops it there.
func dragOnto(t *testing.T, s *reorder.Session[string], id, target string, lower bool) error {
	t.Helper()
	require.NoError(t, s.DragStart(id))
	hover(s, target, lower)
	return s.Drop(context.Background(), target)
}

func hover(s *reorder.Session[string], target string, lower bool) bool {
	idx := slices.Index(s.IDs(), target)
	box := reorder.RowBox(idx, rowHeight)
	y := box.Upper()
	if lower {
		y = box.Lower()
	}
	return s.DragOver(target, box, y)
}

func assertOrder(t *testing.T, want []string, s *reorder.Session[string]) {
	t.Helper()
	if diff := cmp.Diff(want, s.IDs()); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_DragLastToTop(t *testing.T) {
	s, fake := newSession(t, "a", "b", "c")

	require.NoError(t, dragOnto(t, s, "c", "a", false))

	assertOrder(t, []string{"c", "a", "b"}, s)
	require.Equal(t, 1, fake.CallCount())
	assert.Equal(t, reorder.Instructions{{ID: "c", SortOrder: 0}, {ID: "a", SortOrder: 1}, {ID: "b", SortOrder: 2}}, fake.Calls()[0])
	assert.Equal(t, map[string]int64{"c": 0, "a": 1, "b": 2}, fake.Stored())
}

func TestSession_MoveFirstUpIsNoOp(t *testing.T) {
	s, fake := newSession(t, "a", "b", "c")

	require.NoError(t, s.MoveUp(context.Background(), "a"))

	assertOrder(t, []string{"a", "b", "c"}, s)
	assert.Equal(t, 0, fake.CallCount())
	assert.False(t, s.CanMove("a", reorder.Up))
}

func TestSession_MoveLastDownIsNoOp(t *testing.T) {
	s, fake := newSession(t, "a", "b", "c")

	require.NoError(t, s.MoveDown(context.Background(), "c"))

	assertOrder(t, []string{"a", "b", "c"}, s)
	assert.Equal(t, 0, fake.CallCount())
	assert.False(t, s.CanMove("c", reorder.Down))
}

func TestSession_MoveMiddleUp(t *testing.T) {
	s, fake := newSession(t, "a", "b", "c")

	require.NoError(t, s.MoveUp(context.Background(), "b"))

	assertOrder(t, []string{"b", "a", "c"}, s)
	require.Equal(t, 1, fake.CallCount())
	assert.Equal(t, []string{"b", "a", "c"}, fake.Calls()[0].IDs())
	assert.Equal(t, map[string]int64{"b": 0, "a": 1, "c": 2}, fake.Stored())
}

func TestSession_MoveUnknownIDIsNoOp(t *testing.T) {
	s, fake := newSession(t, "a", "b")

	require.NoError(t, s.MoveUp(context.Background(), "deleted-elsewhere"))

	assertOrder(t, []string{"a", "b"}, s)
	assert.Equal(t, 0, fake.CallCount())
}

func TestSession_CommitIsIdempotent(t *testing.T) {
	s, fake := newSession(t, "a", "b", "c")

	require.NoError(t, dragOnto(t, s, "c", "a", false))
	first := fake.Stored()

	// A drag that never reaches a new index still commits the same order.
	require.NoError(t, dragOnto(t, s, "a", "b", false))
	second := fake.Stored()

	assert.Equal(t, first, second)
	require.Equal(t, 2, fake.CallCount())
	assert.Equal(t, fake.Calls()[0], fake.Calls()[1])
	assert.Equal(t, reorder.Fingerprint(fake.Calls()[0]), reorder.Fingerprint(fake.Calls()[1]))
}

func TestSession_SelfTargetIsNoOp(t *testing.T) {
	s, fake := newSession(t, "a", "b", "c")

	require.NoError(t, s.DragStart("b"))
	assert.False(t, hover(s, "b", false))
	assert.False(t, hover(s, "b", true))
	require.NoError(t, s.Drop(context.Background(), "b"))

	assertOrder(t, []string{"a", "b", "c"}, s)
	assert.Equal(t, 0, fake.CallCount())
	assert.Equal(t, "", s.Status().Dragging)
}

func TestSession_DropOntoSelfAfterPreviewCommits(t *testing.T) {
	s, fake := newSession(t, "a", "b", "c")

	require.NoError(t, s.DragStart("c"))
	require.True(t, hover(s, "a", false))
	assertOrder(t, []string{"c", "a", "b"}, s)

	// The dragged row sits under the pointer once the preview moved it.
	require.NoError(t, s.Drop(context.Background(), "c"))

	assertOrder(t, []string{"c", "a", "b"}, s)
	require.Equal(t, 1, fake.CallCount())
	assert.Equal(t, map[string]int64{"c": 0, "a": 1, "b": 2}, fake.Stored())
	assert.Equal(t, "", s.Status().Dragging)
}

func TestSession_NoPersistDuringDrag(t *testing.T) {
	s, fake := newSession(t, "a", "b", "c", "d")

	require.NoError(t, s.DragStart("d"))
	hover(s, "c", false)
	hover(s, "b", false)
	hover(s, "a", false)

	assert.Equal(t, 0, fake.CallCount())
	assert.Equal(t, "d", s.Status().Dragging)
	assertOrder(t, []string{"d", "a", "b", "c"}, s)

	require.NoError(t, s.Drop(context.Background(), "a"))
	assert.Equal(t, 1, fake.CallCount())
}

func TestSession_CancelRestoresOrder(t *testing.T) {
	s, fake := newSession(t, "a", "b", "c")

	require.NoError(t, s.DragStart("c"))
	require.True(t, hover(s, "a", false))
	assertOrder(t, []string{"c", "a", "b"}, s)

	s.Cancel()

	assertOrder(t, []string{"a", "b", "c"}, s)
	assert.Equal(t, 0, fake.CallCount())
}

func TestSession_DragEndWithoutDropRestores(t *testing.T) {
	s, fake := newSession(t, "a", "b", "c")

	require.NoError(t, s.DragStart("a"))
	require.True(t, hover(s, "c", true))

	s.DragEnd()

	assertOrder(t, []string{"a", "b", "c"}, s)
	assert.Equal(t, 0, fake.CallCount())
}

func TestSession_DragEndAfterDropKeepsOrder(t *testing.T) {
	s, _ := newSession(t, "a", "b", "c")

	require.NoError(t, dragOnto(t, s, "a", "c", true))
	s.DragEnd()

	assertOrder(t, []string{"b", "c", "a"}, s)
}

func TestSession_SecondDragRejected(t *testing.T) {
	s, _ := newSession(t, "a", "b")

	require.NoError(t, s.DragStart("a"))
	err := s.DragStart("b")

	assert.ErrorIs(t, err, reorder.ErrDragActive)
	assert.Equal(t, "a", s.Status().Dragging)
}

func TestSession_MoveDuringDragRejected(t *testing.T) {
	s, fake := newSession(t, "a", "b")

	require.NoError(t, s.DragStart("a"))
	err := s.MoveDown(context.Background(), "a")

	assert.ErrorIs(t, err, reorder.ErrDragActive)
	assert.False(t, s.CanMove("a", reorder.Down))
	assert.Equal(t, 0, fake.CallCount())
}

func TestSession_SingleFlight(t *testing.T) {
	s, fake := newSession(t, "a", "b", "c")
	release := fake.Hold()
	defer release()

	done := make(chan error, 1)
	go func() { done <- s.MoveDown(context.Background(), "a") }()
	<-fake.Entered()

	assert.True(t, s.Busy())
	assert.True(t, s.Status().Saving)
	assert.False(t, s.CanMove("b", reorder.Down))

	err := s.MoveDown(context.Background(), "b")
	assert.True(t, reorder.IsBusy(err))
	assert.ErrorIs(t, err, reorder.ErrBusy)

	err = s.DragStart("c")
	assert.ErrorIs(t, err, reorder.ErrBusy)

	release()
	require.NoError(t, <-done)

	assert.False(t, s.Busy())
	assert.Equal(t, 1, fake.CallCount())
	assert.Equal(t, 1, fake.MaxInFlight())
	assertOrder(t, []string{"b", "a", "c"}, s)

	require.NoError(t, s.MoveDown(context.Background(), "b"))
	assert.Equal(t, 2, fake.CallCount())
}

func TestSession_PersistFailureKeepsOptimisticOrder(t *testing.T) {
	s, fake := newSession(t, "a", "b", "c")
	boom := errors.New("network down")
	fake.FailNext(boom)

	err := s.MoveDown(context.Background(), "a")

	require.Error(t, err)
	assert.True(t, reorder.IsPersistError(err))
	assert.ErrorIs(t, err, reorder.ErrPersistFailed)
	assert.ErrorIs(t, err, boom)
	assertOrder(t, []string{"b", "a", "c"}, s)
	assert.Equal(t, map[string]int64{"a": 0, "b": 1, "c": 2}, fake.Stored())

	st := s.Status()
	assert.False(t, st.Saving)
	assert.ErrorIs(t, st.LastError, boom)

	// Retrying succeeds and clears the error.
	require.NoError(t, s.MoveUp(context.Background(), "c"))
	assert.NoError(t, s.Status().LastError)
	assert.Equal(t, map[string]int64{"b": 0, "c": 1, "a": 2}, fake.Stored())
}

func TestSession_AuthoritativeSnapshotClosesDrift(t *testing.T) {
	// The remote list has a record created elsewhere that this screen has
	// not seen yet.
	fake := testutil.NewFakePersister(testutil.Items("a", "b", "c", "d")).ReturnSnapshots()
	s := reorder.NewSession[string](fake)
	require.NoError(t, s.Reset(testutil.Items("a", "b", "c")))

	require.NoError(t, s.MoveDown(context.Background(), "a"))

	assertOrder(t, []string{"b", "a", "c", "d"}, s)
	assert.Equal(t, "title d", s.Order()[3].Payload)
}

func TestSession_StaleRecordRejectedRemotely(t *testing.T) {
	s, fake := newSession(t, "a", "b", "c")
	fake.Delete("c")

	err := s.MoveDown(context.Background(), "a")

	assert.ErrorIs(t, err, testutil.ErrUnknownRecord)
	assert.Equal(t, map[string]int64{"a": 0, "b": 1}, fake.Stored())

	// The next authoritative refresh drops the deleted record.
	require.NoError(t, s.Reset(fake.Snapshot()))
	assertOrder(t, []string{"a", "b"}, s)
}

func TestSession_ResetCancelsDrag(t *testing.T) {
	s, fake := newSession(t, "a", "b", "c")
	require.NoError(t, s.DragStart("c"))
	require.True(t, hover(s, "a", false))

	require.NoError(t, s.Reset(testutil.Items("x", "y")))

	assert.Equal(t, "", s.Status().Dragging)
	assertOrder(t, []string{"x", "y"}, s)
	require.NoError(t, s.Drop(context.Background(), "x"))
	assert.Equal(t, 0, fake.CallCount())
}

func TestSession_SparseNumbering(t *testing.T) {
	items := testutil.Items("a", "b", "c")
	fake := testutil.NewFakePersister(items)
	s := reorder.NewSession[string](fake, reorder.WithNumbering(reorder.Sparse(10)))
	require.NoError(t, s.Reset(items))

	require.NoError(t, s.MoveUp(context.Background(), "c"))

	assert.Equal(t, map[string]int64{"a": 0, "c": 10, "b": 20}, fake.Stored())
	assert.Equal(t, "sparse(10)", s.Numbering().String())
}

func TestSession_Bindings(t *testing.T) {
	s, fake := newSession(t, "a", "b", "c")

	require.NoError(t, s.Handle("c").DragStart())
	box := reorder.RowBox(0, rowHeight)
	assert.True(t, s.Target("a").DragOver(box, box.Upper()))
	require.NoError(t, s.Target("a").Drop(context.Background()))
	s.Handle("c").DragEnd()

	assertOrder(t, []string{"c", "a", "b"}, s)
	assert.Equal(t, 1, fake.CallCount())
}

func TestSession_TwoPhaseCommit(t *testing.T) {
	s, fake := newSession(t, "a", "b", "c")

	c, err := s.BeginMove("b", reorder.Up)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, uint64(1), c.Seq)
	assert.True(t, s.Busy())

	_, err = s.BeginMove("c", reorder.Up)
	assert.ErrorIs(t, err, reorder.ErrBusy)

	snap, perr := c.Persist(context.Background())
	require.NoError(t, s.Finish(c, snap, perr))

	assert.False(t, s.Busy())
	assert.Equal(t, 1, fake.CallCount())
	assertOrder(t, []string{"b", "a", "c"}, s)

	// A commit that is no longer in flight is ignored.
	require.NoError(t, s.Finish(c, nil, errors.New("late")))
	assert.NoError(t, s.Status().LastError)
}

func TestSession_SeparateSessionsShareNothing(t *testing.T) {
	s1, f1 := newSession(t, "a", "b")
	s2, f2 := newSession(t, "a", "b")
	release := f1.Hold()
	defer release()

	done := make(chan error, 1)
	go func() { done <- s1.MoveDown(context.Background(), "a") }()
	<-f1.Entered()

	require.NoError(t, s2.MoveDown(context.Background(), "a"))
	assert.Equal(t, 1, f2.CallCount())

	release()
	require.NoError(t, <-done)
}

func TestSession_PermutationInvariance(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e", "f"}
	s, fake := newSession(t, ids...)
	rng := rand.New(rand.NewPCG(7, 11))

	for i := 0; i < 300; i++ {
		cur := s.IDs()
		x := cur[rng.IntN(len(cur))]
		y := cur[rng.IntN(len(cur))]
		switch rng.IntN(4) {
		case 0:
			_ = s.Move(context.Background(), x, reorder.Up)
		case 1:
			_ = s.Move(context.Background(), x, reorder.Down)
		case 2:
			require.NoError(t, s.DragStart(x))
			hover(s, y, rng.IntN(2) == 0)
			require.NoError(t, s.Drop(context.Background(), y))
		case 3:
			require.NoError(t, s.DragStart(x))
			hover(s, y, rng.IntN(2) == 0)
			s.Cancel()
		}

		got := s.IDs()
		sorted := slices.Clone(got)
		slices.Sort(sorted)
		require.Equal(t, ids, sorted, "step %d", i)
	}

	// Every commit wrote the session's order at that moment, so the store
	// agrees with the final local order.
	stored := fake.Stored()
	final := s.IDs()
	for i := 1; i < len(final); i++ {
		assert.Less(t, stored[final[i-1]], stored[final[i]])
	}
}
