package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/opencampus/campus-api/internal/models"
)

// ScheduleRepository persists finalised timetable rows.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ReplaceForSections swaps in the new rows for their sections: any prior
// row for an affected section is deleted before its replacement is
// inserted. Callers pass a transaction so the whole semester's schedule
// lands atomically.
func (r *ScheduleRepository) ReplaceForSections(ctx context.Context, exec sqlx.ExtContext, rows []models.Schedule) error {
	if len(rows) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const deleteQuery = `DELETE FROM schedules WHERE section_id = $1`
	const insertQuery = `
INSERT INTO schedules (id, section_id, classroom_id, day_of_week, start_time, end_time, created_at)
VALUES (:id, :section_id, :classroom_id, :day_of_week, :start_time, :end_time, :created_at)`

	for i := range rows {
		row := &rows[i]
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		if _, err := target.ExecContext(ctx, deleteQuery, row.SectionID); err != nil {
			return fmt.Errorf("delete prior schedule for section %s: %w", row.SectionID, err)
		}
		if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, row); err != nil {
			return fmt.Errorf("insert schedule for section %s: %w", row.SectionID, err)
		}
	}
	return nil
}

// ListBySemester returns the persisted timetable rows for a semester,
// ordered for display.
func (r *ScheduleRepository) ListBySemester(ctx context.Context, semester string) ([]models.Schedule, error) {
	const query = `SELECT s.id, s.section_id, s.classroom_id, s.day_of_week, s.start_time, s.end_time, s.created_at
FROM schedules s
JOIN course_sections cs ON cs.id = s.section_id
WHERE cs.semester = $1
ORDER BY s.day_of_week ASC, s.start_time ASC, s.section_id ASC`
	var rows []models.Schedule
	if err := r.db.SelectContext(ctx, &rows, query, semester); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return rows, nil
}
