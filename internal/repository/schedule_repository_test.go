package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencampus/campus-api/internal/models"
)

func TestScheduleRepositoryReplaceForSections(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	rows := []models.Schedule{
		{SectionID: "sec-1", ClassroomID: "room-1", DayOfWeek: 1, StartTime: "09:00", EndTime: "11:50"},
		{SectionID: "sec-2", ClassroomID: "room-1", DayOfWeek: 1, StartTime: "13:00", EndTime: "15:50"},
	}

	for _, row := range rows {
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedules WHERE section_id = $1")).
			WithArgs(row.SectionID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedules")).
			WithArgs(sqlmock.AnyArg(), row.SectionID, row.ClassroomID, row.DayOfWeek, row.StartTime, row.EndTime, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	err := repo.ReplaceForSections(context.Background(), nil, rows)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	for _, row := range rows {
		assert.NotEmpty(t, row.ID)
		assert.False(t, row.CreatedAt.IsZero())
	}
}

func TestScheduleRepositoryReplaceForSectionsInTx(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedules WHERE section_id = $1")).
		WithArgs("sec-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedules")).
		WithArgs(sqlmock.AnyArg(), "sec-1", "room-1", 2, "09:00", "11:50", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	err = repo.ReplaceForSections(context.Background(), tx, []models.Schedule{
		{SectionID: "sec-1", ClassroomID: "room-1", DayOfWeek: 2, StartTime: "09:00", EndTime: "11:50"},
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryReplaceForSectionsNoRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	err := repo.ReplaceForSections(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryReplaceForSectionsInsertError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedules WHERE section_id = $1")).
		WithArgs("sec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedules")).
		WillReturnError(errors.New("constraint violation"))

	err := repo.ReplaceForSections(context.Background(), nil, []models.Schedule{
		{SectionID: "sec-1", ClassroomID: "room-1", DayOfWeek: 1, StartTime: "09:00", EndTime: "11:50"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sec-1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryListBySemester(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	rows := sqlmock.NewRows([]string{"id", "section_id", "classroom_id", "day_of_week", "start_time", "end_time", "created_at"}).
		AddRow("sch-1", "sec-1", "room-1", 1, "09:00", "11:50", time.Now()).
		AddRow("sch-2", "sec-2", "room-2", 3, "13:00", "15:50", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("JOIN course_sections cs ON cs.id = s.section_id")).
		WithArgs("2026-spring").
		WillReturnRows(rows)

	schedules, err := repo.ListBySemester(context.Background(), "2026-spring")
	require.NoError(t, err)
	require.Len(t, schedules, 2)
	assert.Equal(t, "room-2", schedules[1].ClassroomID)
	assert.Equal(t, 3, schedules[1].DayOfWeek)
	assert.NoError(t, mock.ExpectationsWereMet())
}
