package models

import "time"

// CourseSection is one offering of a course within a semester. Sections are
// read-only inputs to the scheduler: capacity demand comes from the quota,
// and two sections sharing an instructor can never meet at the same time.
type CourseSection struct {
	ID           string    `db:"id" json:"id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	Semester     string    `db:"semester" json:"semester"`
	InstructorID string    `db:"instructor_id" json:"instructor_id"`
	Quota        int       `db:"quota" json:"quota"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
