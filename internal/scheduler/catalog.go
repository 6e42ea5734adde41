package scheduler

import (
	"fmt"
	"sort"
)

// TimeOfDay is a clock time expressed as minutes from midnight.
type TimeOfDay int

// ParseClock converts an "HH:MM" string into a TimeOfDay.
func ParseClock(raw string) (TimeOfDay, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(raw, "%d:%d", &hour, &minute); err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", raw, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("parse clock %q: out of range", raw)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// MustClock parses an "HH:MM" string and panics on failure. Intended for
// fixed catalogs and tests.
func MustClock(raw string) TimeOfDay {
	t, err := ParseClock(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// String renders the time as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Block is one fixed teaching interval from the catalog.
type Block struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Catalog enumerates the days and time blocks sections may occupy. It is an
// explicit value handed to the solver so tests can substitute smaller or
// larger grids.
type Catalog struct {
	Days   []int
	Blocks []Block
}

// DefaultCatalog returns the standard teaching week: Monday through Friday,
// one morning and one afternoon block.
func DefaultCatalog() Catalog {
	return Catalog{
		Days: []int{1, 2, 3, 4, 5},
		Blocks: []Block{
			{Start: MustClock("09:00"), End: MustClock("11:50")},
			{Start: MustClock("13:00"), End: MustClock("15:50")},
		},
	}
}

// Validate checks the catalog describes a usable scheduling grid.
func (c Catalog) Validate() error {
	if len(c.Days) == 0 {
		return fmt.Errorf("catalog: at least one day is required")
	}
	if len(c.Blocks) == 0 {
		return fmt.Errorf("catalog: at least one time block is required")
	}
	seen := make(map[int]bool, len(c.Days))
	for _, day := range c.Days {
		if day < 1 || day > 7 {
			return fmt.Errorf("catalog: day %d outside 1-7", day)
		}
		if seen[day] {
			return fmt.Errorf("catalog: duplicate day %d", day)
		}
		seen[day] = true
	}
	blocks := make([]Block, len(c.Blocks))
	copy(blocks, c.Blocks)
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Start < blocks[j].Start })
	for i, block := range blocks {
		if block.End <= block.Start {
			return fmt.Errorf("catalog: block %s-%s is empty", block.Start, block.End)
		}
		if i > 0 && block.Start < blocks[i-1].End {
			return fmt.Errorf("catalog: blocks %s-%s and %s-%s overlap",
				blocks[i-1].Start, blocks[i-1].End, block.Start, block.End)
		}
	}
	return nil
}
