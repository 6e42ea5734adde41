package dto

import "time"

// ProposalStatus tracks a schedule proposal through its lifecycle.
type ProposalStatus string

const (
	ProposalStatusPending ProposalStatus = "PENDING"
	ProposalStatusSolved  ProposalStatus = "SOLVED"
	ProposalStatusFailed  ProposalStatus = "FAILED"
)

// GenerateScheduleRequest asks for a timetable covering every course
// section of the semester.
type GenerateScheduleRequest struct {
	Semester string `json:"semester" validate:"required"`
}

// GenerateScheduleResponse acknowledges a queued (or, with inline solving,
// already finished) proposal.
type GenerateScheduleResponse struct {
	ProposalID string         `json:"proposalId"`
	Semester   string         `json:"semester"`
	Status     ProposalStatus `json:"status"`
}

// ScheduleSlotView is one placed section in a proposal or saved timetable.
type ScheduleSlotView struct {
	SectionID    string `json:"sectionId"`
	ClassroomID  string `json:"classroomId"`
	InstructorID string `json:"instructorId,omitempty"`
	DayOfWeek    int    `json:"dayOfWeek"`
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
}

// ProposalView is the full state of one proposal: pending, solved with its
// slots and compactness score, or failed with a tagged reason.
type ProposalView struct {
	ProposalID     string             `json:"proposalId"`
	Semester       string             `json:"semester"`
	Status         ProposalStatus     `json:"status"`
	SectionCount   int                `json:"sectionCount"`
	Score          *int               `json:"score,omitempty"`
	Slots          []ScheduleSlotView `json:"slots,omitempty"`
	FailureCode    string             `json:"failureCode,omitempty"`
	FailureMessage string             `json:"failureMessage,omitempty"`
	RequestedAt    time.Time          `json:"requestedAt"`
	ElapsedMillis  int64              `json:"elapsedMillis,omitempty"`
}

// SaveScheduleRequest persists a solved proposal as the semester timetable.
type SaveScheduleRequest struct {
	ProposalID string `json:"proposalId" validate:"required"`
}

// SaveScheduleResponse reports how many sections were written.
type SaveScheduleResponse struct {
	Semester       string `json:"semester"`
	SectionsPlaced int    `json:"sectionsPlaced"`
}
