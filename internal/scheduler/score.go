package scheduler

// Gap classification thresholds and weights for instructor schedule
// compactness, in minutes.
const (
	tightGapMinutes = 20
	shortGapMinutes = 60

	tightGapBonus   = 5
	shortGapPenalty = -2
	largeGapPenalty = -5
)

// Score rates how compact instructors' days are in the given assignment.
// Higher is better. For every pair of entries sharing an instructor and a
// day, the gap from whichever ends first to whichever starts second is
// classified: back-to-back teaching earns a bonus, short breaks and large
// holes are penalised.
//
// The scan runs over ordered pairs, so every qualifying pair contributes in
// both directions: a single tight pair scores +10, not +5. Callers compare
// scores produced under this convention, so it must not be collapsed to one
// count per pair.
//
// Entries without an instructor id contribute nothing. Pure function.
func Score(assigned Assignment) int {
	score := 0
	for id, slot := range assigned {
		if slot.InstructorID == "" {
			continue
		}
		for otherID, other := range assigned {
			if otherID == id || other.InstructorID != slot.InstructorID || other.Day != slot.Day {
				continue
			}
			score += gapContribution(slot, other)
		}
	}
	return score
}

func gapContribution(a, b Slot) int {
	earlierEnd := a.End
	if b.End < earlierEnd {
		earlierEnd = b.End
	}
	laterStart := a.Start
	if b.Start > laterStart {
		laterStart = b.Start
	}
	gap := int(laterStart - earlierEnd)

	switch {
	case gap <= tightGapMinutes:
		return tightGapBonus
	case gap <= shortGapMinutes:
		return shortGapPenalty
	default:
		return largeGapPenalty
	}
}
