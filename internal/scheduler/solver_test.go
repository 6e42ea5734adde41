package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSolver(t *testing.T) *Solver {
	t.Helper()
	solver, err := NewSolver(DefaultCatalog(), zap.NewNop())
	require.NoError(t, err)
	return solver
}

// assertValidAssignment checks the hard-constraint invariants every
// successful solve must honour.
func assertValidAssignment(t *testing.T, sections []Section, rooms []Room, assigned Assignment) {
	t.Helper()

	roomCapacity := make(map[string]int, len(rooms))
	for _, room := range rooms {
		roomCapacity[room.ID] = room.Capacity
	}

	require.Len(t, assigned, len(sections), "every section must be placed exactly once")
	for _, section := range sections {
		slot, ok := assigned[section.ID]
		require.True(t, ok, "section %s missing from assignment", section.ID)
		capacity, ok := roomCapacity[slot.RoomID]
		require.True(t, ok, "section %s placed in unknown room %s", section.ID, slot.RoomID)
		assert.GreaterOrEqual(t, capacity, section.Capacity, "room too small for section %s", section.ID)
		assert.Equal(t, section.InstructorID, slot.InstructorID)
	}

	ids := make([]string, 0, len(assigned))
	for id := range assigned {
		ids = append(ids, id)
	}
	for i, a := range ids {
		for _, b := range ids[i+1:] {
			first, second := assigned[a], assigned[b]
			if !overlaps(first, second) {
				continue
			}
			assert.NotEqual(t, first.RoomID, second.RoomID,
				"sections %s and %s double-book room %s", a, b, first.RoomID)
			assert.NotEqual(t, first.InstructorID, second.InstructorID,
				"sections %s and %s double-book instructor %s", a, b, first.InstructorID)
		}
	}
}

func TestSolveEmptyInputs(t *testing.T) {
	solver := newTestSolver(t)

	_, err := solver.Solve(context.Background(), nil, []Room{{ID: "r1", Capacity: 30}})
	solveErr, ok := AsSolveError(err)
	require.True(t, ok)
	assert.Equal(t, NoSections, solveErr.Reason)

	_, err = solver.Solve(context.Background(), []Section{{ID: "s1", Capacity: 10, InstructorID: "i1"}}, nil)
	solveErr, ok = AsSolveError(err)
	require.True(t, ok)
	assert.Equal(t, NoRooms, solveErr.Reason)
}

func TestSolveRejectsMalformedInput(t *testing.T) {
	solver := newTestSolver(t)
	rooms := []Room{{ID: "r1", Capacity: 30}}

	_, err := solver.Solve(context.Background(), []Section{{ID: "s1", Capacity: -5, InstructorID: "i1"}}, rooms)
	require.Error(t, err)
	_, isSolveErr := AsSolveError(err)
	assert.False(t, isSolveErr, "malformed input must fail fast, not as a search outcome")

	_, err = solver.Solve(context.Background(), []Section{
		{ID: "s1", Capacity: 10, InstructorID: "i1"},
		{ID: "s1", Capacity: 15, InstructorID: "i2"},
	}, rooms)
	require.ErrorContains(t, err, "duplicate section id")
}

func TestSolveInfeasibleCapacity(t *testing.T) {
	solver := newTestSolver(t)

	_, err := solver.Solve(context.Background(),
		[]Section{{ID: "s1", Capacity: 50, InstructorID: "i1"}},
		[]Room{{ID: "r1", Capacity: 20}})
	solveErr, ok := AsSolveError(err)
	require.True(t, ok)
	assert.Equal(t, NoFeasibleAssignment, solveErr.Reason)
}

func TestSolveTwoSectionsOneRoom(t *testing.T) {
	solver := newTestSolver(t)
	sections := []Section{
		{ID: "s1", Capacity: 25, InstructorID: "i1"},
		{ID: "s2", Capacity: 20, InstructorID: "i2"},
	}
	rooms := []Room{{ID: "r1", Capacity: 30}}

	assigned, err := solver.Solve(context.Background(), sections, rooms)
	require.NoError(t, err)
	assertValidAssignment(t, sections, rooms, assigned)

	// Only one room exists, so the two sections must land on distinct
	// day/time intervals.
	assert.False(t, overlaps(assigned["s1"], assigned["s2"]))
}

func TestSolveSharedInstructorForcesSeparation(t *testing.T) {
	solver := newTestSolver(t)
	sections := []Section{
		{ID: "s1", Capacity: 20, InstructorID: "i1"},
		{ID: "s2", Capacity: 20, InstructorID: "i1"},
	}
	rooms := []Room{
		{ID: "r1", Capacity: 40},
		{ID: "r2", Capacity: 40},
	}

	assigned, err := solver.Solve(context.Background(), sections, rooms)
	require.NoError(t, err)
	assertValidAssignment(t, sections, rooms, assigned)
	assert.False(t, overlaps(assigned["s1"], assigned["s2"]),
		"same instructor must never teach two sections at once")
}

func TestSolveFillsWholeGrid(t *testing.T) {
	// One room on a 2x2 grid gives four slots. Four sections with distinct
	// instructors must fill every slot; a fifth no longer fits.
	catalog := Catalog{
		Days: []int{1, 2},
		Blocks: []Block{
			{Start: MustClock("09:00"), End: MustClock("11:50")},
			{Start: MustClock("13:00"), End: MustClock("15:50")},
		},
	}
	solver, err := NewSolver(catalog, zap.NewNop())
	require.NoError(t, err)

	sections := make([]Section, 0, 4)
	for i := 0; i < 4; i++ {
		sections = append(sections, Section{
			ID:           string(rune('a' + i)),
			Capacity:     10,
			InstructorID: "instructor-" + string(rune('a'+i)),
		})
	}
	rooms := []Room{{ID: "r1", Capacity: 15}}

	assigned, err := solver.Solve(context.Background(), sections, rooms)
	require.NoError(t, err)
	assertValidAssignment(t, sections, rooms, assigned)

	extra := append(sections, Section{ID: "z", Capacity: 10, InstructorID: "instructor-z"})
	_, err = solver.Solve(context.Background(), extra, rooms)
	solveErr, ok := AsSolveError(err)
	require.True(t, ok)
	assert.Equal(t, NoFeasibleAssignment, solveErr.Reason)
}

func TestSolveTooManySameInstructorSections(t *testing.T) {
	// Two time slots exist; three sections by the same instructor cannot
	// avoid overlapping no matter how many rooms are free.
	catalog := Catalog{
		Days: []int{1},
		Blocks: []Block{
			{Start: MustClock("09:00"), End: MustClock("11:50")},
			{Start: MustClock("13:00"), End: MustClock("15:50")},
		},
	}
	solver, err := NewSolver(catalog, zap.NewNop())
	require.NoError(t, err)

	sections := make([]Section, 0, 3)
	rooms := make([]Room, 0, 3)
	for i := 0; i < 3; i++ {
		suffix := string(rune('a' + i))
		sections = append(sections, Section{ID: "s-" + suffix, Capacity: 10, InstructorID: "busy"})
		rooms = append(rooms, Room{ID: "r-" + suffix, Capacity: 100})
	}

	_, err = solver.Solve(context.Background(), sections, rooms)
	solveErr, ok := AsSolveError(err)
	require.True(t, ok)
	assert.Equal(t, NoFeasibleAssignment, solveErr.Reason)
}

func TestSolveDeterministic(t *testing.T) {
	solver := newTestSolver(t)
	sections := []Section{
		{ID: "s1", Capacity: 30, InstructorID: "i1"},
		{ID: "s2", Capacity: 20, InstructorID: "i1"},
		{ID: "s3", Capacity: 25, InstructorID: "i2"},
	}
	rooms := []Room{
		{ID: "r1", Capacity: 35},
		{ID: "r2", Capacity: 25},
	}

	first, err := solver.Solve(context.Background(), sections, rooms)
	require.NoError(t, err)
	second, err := solver.Solve(context.Background(), sections, rooms)
	require.NoError(t, err)
	assert.Equal(t, first, second, "identical inputs must yield identical schedules")
}

func TestSolveHonoursCancellation(t *testing.T) {
	solver := newTestSolver(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := solver.Solve(ctx,
		[]Section{{ID: "s1", Capacity: 10, InstructorID: "i1"}},
		[]Room{{ID: "r1", Capacity: 30}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSolveDeadline(t *testing.T) {
	solver := newTestSolver(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := solver.Solve(ctx,
		[]Section{{ID: "s1", Capacity: 10, InstructorID: "i1"}},
		[]Room{{ID: "r1", Capacity: 30}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSolveCustomCatalog(t *testing.T) {
	catalog := Catalog{
		Days:   []int{1},
		Blocks: []Block{{Start: MustClock("09:00"), End: MustClock("10:00")}},
	}
	solver, err := NewSolver(catalog, zap.NewNop())
	require.NoError(t, err)

	sections := []Section{
		{ID: "s1", Capacity: 10, InstructorID: "i1"},
		{ID: "s2", Capacity: 10, InstructorID: "i2"},
	}
	rooms := []Room{{ID: "r1", Capacity: 30}}

	// A single-slot grid fits one section but not two.
	_, err = solver.Solve(context.Background(), sections[:1], rooms)
	require.NoError(t, err)

	_, err = solver.Solve(context.Background(), sections, rooms)
	solveErr, ok := AsSolveError(err)
	require.True(t, ok)
	assert.Equal(t, NoFeasibleAssignment, solveErr.Reason)
}

func TestDomainFiltersOnCapacityOnly(t *testing.T) {
	solver := newTestSolver(t)
	section := Section{ID: "s1", Capacity: 25, InstructorID: "i1"}
	rooms := []Room{
		{ID: "small", Capacity: 20},
		{ID: "big", Capacity: 30},
	}

	slots := solver.domain(section, rooms)
	require.Len(t, slots, 10, "one eligible room x 5 days x 2 blocks")
	for _, slot := range slots {
		assert.Equal(t, "big", slot.RoomID)
		assert.Equal(t, "i1", slot.InstructorID)
	}
}
