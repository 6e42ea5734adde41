package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/opencampus/campus-api/internal/models"
)

// SectionRepository reads course sections awaiting scheduling.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// ListBySemester returns every section of the semester with its instructor
// and quota already resolved. The scheduler treats the result as a
// read-only snapshot for the duration of one solve.
func (r *SectionRepository) ListBySemester(ctx context.Context, semester string) ([]models.CourseSection, error) {
	const query = `SELECT id, course_id, semester, instructor_id, quota, created_at, updated_at
FROM course_sections WHERE semester = $1 ORDER BY id ASC`
	var sections []models.CourseSection
	if err := r.db.SelectContext(ctx, &sections, query, semester); err != nil {
		return nil, fmt.Errorf("list course sections: %w", err)
	}
	return sections, nil
}
