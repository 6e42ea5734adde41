package scheduler

import "fmt"

// Section is one course offering waiting for a room and weekly slot. Two
// sections sharing an instructor must never overlap in time.
type Section struct {
	ID           string
	Capacity     int
	InstructorID string
}

// Room is a bookable classroom. A room may host different sections at
// non-overlapping times.
type Room struct {
	ID       string
	Capacity int
}

// Slot is one candidate placement: a room on a given weekday during one of
// the catalog's time blocks. The instructor id is carried along so the
// consistency check never has to look it up again.
type Slot struct {
	RoomID       string
	Day          int
	Start        TimeOfDay
	End          TimeOfDay
	InstructorID string
}

// Assignment maps section id to its placed slot. A partial assignment holds
// only the sections placed so far; Solve returns it only when complete.
type Assignment map[string]Slot

// FailureReason tags why no schedule was produced.
type FailureReason string

const (
	// NoSections means the caller supplied nothing to schedule.
	NoSections FailureReason = "NO_SECTIONS"
	// NoRooms means there are no classrooms to place sections into.
	NoRooms FailureReason = "NO_ROOMS"
	// NoFeasibleAssignment means the search space was exhausted without a
	// conflict-free schedule.
	NoFeasibleAssignment FailureReason = "NO_FEASIBLE_ASSIGNMENT"
)

// SolveError is the recoverable business failure returned by Solve.
type SolveError struct {
	Reason FailureReason
}

func (e *SolveError) Error() string {
	switch e.Reason {
	case NoSections:
		return "no course sections to schedule"
	case NoRooms:
		return "no classrooms available"
	default:
		return "no conflict-free schedule exists for the given sections and rooms"
	}
}

// AsSolveError unwraps err into a *SolveError when it carries one.
func AsSolveError(err error) (*SolveError, bool) {
	solveErr, ok := err.(*SolveError)
	return solveErr, ok
}

func validateInputs(sections []Section, rooms []Room) error {
	seen := make(map[string]bool, len(sections))
	for _, section := range sections {
		if section.ID == "" {
			return fmt.Errorf("section with empty id")
		}
		if seen[section.ID] {
			return fmt.Errorf("duplicate section id %q", section.ID)
		}
		seen[section.ID] = true
		if section.Capacity <= 0 {
			return fmt.Errorf("section %q: capacity must be positive, got %d", section.ID, section.Capacity)
		}
	}
	for _, room := range rooms {
		if room.ID == "" {
			return fmt.Errorf("room with empty id")
		}
		if room.Capacity <= 0 {
			return fmt.Errorf("room %q: capacity must be positive, got %d", room.ID, room.Capacity)
		}
	}
	return nil
}
