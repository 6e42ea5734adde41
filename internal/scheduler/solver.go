package scheduler

import (
	"context"
	"fmt"
	"sort"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Solver assigns course sections to classrooms and weekly time blocks via
// depth-first backtracking. Hard constraints: room capacity, no
// double-booked room, no double-booked instructor. The first complete
// conflict-free assignment found is returned; there is no optimisation pass
// (callers may rank independent runs with Score).
type Solver struct {
	catalog Catalog
	logger  *zap.Logger
}

// NewSolver builds a solver over the given catalog.
func NewSolver(catalog Catalog, logger *zap.Logger) (*Solver, error) {
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Solver{catalog: catalog, logger: logger}, nil
}

// Solve finds one complete assignment for the given sections, or reports a
// tagged failure. The result is all-or-nothing: on any error the returned
// assignment is nil and no partial placement leaks out. The context is
// checked at every recursion entry, so a deadline bounds the exponential
// worst case.
func (s *Solver) Solve(ctx context.Context, sections []Section, rooms []Room) (Assignment, error) {
	if len(sections) == 0 {
		return nil, &SolveError{Reason: NoSections}
	}
	if len(rooms) == 0 {
		return nil, &SolveError{Reason: NoRooms}
	}
	if err := validateInputs(sections, rooms); err != nil {
		return nil, err
	}

	// Most constrained variable first: large sections have the fewest
	// eligible rooms. Id tiebreak keeps the order, and therefore the
	// returned schedule, deterministic.
	order := make([]Section, len(sections))
	copy(order, sections)
	sort.Slice(order, func(i, j int) bool {
		if order[i].Capacity == order[j].Capacity {
			return order[i].ID < order[j].ID
		}
		return order[i].Capacity > order[j].Capacity
	})

	assigned := make(Assignment, len(order))
	ok, err := s.backtrack(ctx, order, 0, rooms, assigned)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Debug("search space exhausted",
			zap.Int("sections", len(sections)),
			zap.Int("rooms", len(rooms)))
		return nil, &SolveError{Reason: NoFeasibleAssignment}
	}
	return assigned, nil
}

// Catalog returns the grid this solver schedules over.
func (s *Solver) Catalog() Catalog {
	return s.catalog
}

func (s *Solver) backtrack(ctx context.Context, order []Section, index int, rooms []Room, assigned Assignment) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("schedule search aborted: %w", err)
	}
	if index == len(order) {
		return true, nil
	}

	section := order[index]
	for _, candidate := range s.domain(section, rooms) {
		if !s.consistent(section, candidate, rooms, assigned) {
			continue
		}
		assigned[section.ID] = candidate
		ok, err := s.backtrack(ctx, order, index+1, rooms, assigned)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		delete(assigned, section.ID)
	}
	return false, nil
}

// domain enumerates every slot the section could legally occupy on its own:
// each big-enough room crossed with every day and time block. Conflicts with
// already-placed sections are the consistency check's job. Enumeration is
// rooms-major and deterministic for a fixed input.
func (s *Solver) domain(section Section, rooms []Room) []Slot {
	eligible := lo.Filter(rooms, func(room Room, _ int) bool {
		return room.Capacity >= section.Capacity
	})

	slots := make([]Slot, 0, len(eligible)*len(s.catalog.Days)*len(s.catalog.Blocks))
	for _, room := range eligible {
		for _, day := range s.catalog.Days {
			for _, block := range s.catalog.Blocks {
				slots = append(slots, Slot{
					RoomID:       room.ID,
					Day:          day,
					Start:        block.Start,
					End:          block.End,
					InstructorID: section.InstructorID,
				})
			}
		}
	}
	return slots
}

// consistent reports whether the candidate violates no hard constraint
// against the current partial assignment.
func (s *Solver) consistent(section Section, candidate Slot, rooms []Room, assigned Assignment) bool {
	// Domain generation already filtered on capacity; re-check in case a
	// caller ever feeds a hand-built slot.
	for _, room := range rooms {
		if room.ID == candidate.RoomID && room.Capacity < section.Capacity {
			return false
		}
	}

	for _, placed := range assigned {
		if !overlaps(candidate, placed) {
			continue
		}
		if placed.RoomID == candidate.RoomID {
			return false
		}
		if placed.InstructorID != "" && placed.InstructorID == candidate.InstructorID {
			return false
		}
	}
	return true
}

// overlaps reports whether two slots share any time on the same day,
// treating intervals as [start, end).
func overlaps(a, b Slot) bool {
	return a.Day == b.Day && a.Start < b.End && a.End > b.Start
}
