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
)

func TestClassroomRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassroomRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "capacity", "is_active", "created_at", "updated_at"}).
		AddRow("room-1", "Lecture Hall A", 120, true, time.Now(), time.Now()).
		AddRow("room-2", "Lab 2", 24, true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM classrooms WHERE is_active = TRUE")).
		WillReturnRows(rows)

	classrooms, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, classrooms, 2)
	assert.Equal(t, "Lecture Hall A", classrooms[0].Name)
	assert.Equal(t, 24, classrooms[1].Capacity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassroomRepositoryListActiveQueryError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassroomRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM classrooms")).
		WillReturnError(errors.New("connection reset"))

	classrooms, err := repo.ListActive(context.Background())
	require.Error(t, err)
	assert.Nil(t, classrooms)
	assert.NoError(t, mock.ExpectationsWereMet())
}
