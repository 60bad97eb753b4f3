package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-timetable-api/internal/models"
)

func sampleSchedule() models.WeekSchedule {
	subjectID := "sub-1"
	teacherID := "teach-1"
	room := "CR-101"
	return models.WeekSchedule{
		{
			Day: "Monday",
			Periods: []models.ScheduleEntry{
				{Period: 1, SubjectID: &subjectID, TeacherID: &teacherID, Classroom: &room, StartTime: "9:00", EndTime: "10:00"},
				{Period: 5, StartTime: "2:15", EndTime: "3:15", IsBreak: true, BreakType: models.BreakTypeLunch},
			},
		},
	}
}

func TestTimetableRepositoryReplace(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetables WHERE college_id = $1 AND branch_id = $2 AND semester = $3")).
		WithArgs("c1", "b1", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO timetables").
		WithArgs(sqlmock.AnyArg(), "c1", "b1", 3, sqlmock.AnyArg(), "admin", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	timetable := &models.Timetable{
		CollegeID: "c1",
		BranchID:  "b1",
		Semester:  3,
		Schedule:  sampleSchedule(),
		CreatedBy: "admin",
	}
	require.NoError(t, repo.Replace(context.Background(), timetable))
	assert.NotEmpty(t, timetable.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryReplaceRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetables WHERE college_id = $1 AND branch_id = $2 AND semester = $3")).
		WithArgs("c1", "b1", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO timetables").
		WillReturnError(errors.New("insert failed"))
	mock.ExpectRollback()

	err := repo.Replace(context.Background(), &models.Timetable{CollegeID: "c1", BranchID: "b1", Semester: 3, CreatedBy: "admin"})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryFindByKey(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, college_id, branch_id, semester, schedule, created_by, created_at, updated_at FROM timetables WHERE college_id = $1 AND branch_id = $2 AND semester = $3")).
		WithArgs("c1", "b1", 3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "college_id", "branch_id", "semester", "schedule", "created_by", "created_at", "updated_at"}).
			AddRow("t1", "c1", "b1", 3, []byte(`[{"day":"Monday","periods":[{"period":1,"start_time":"9:00","end_time":"10:00","is_break":true,"break_type":"Free Period"}]}]`), "admin", time.Now(), time.Now()))

	timetable, err := repo.FindByKey(context.Background(), "c1", "b1", 3)
	require.NoError(t, err)
	require.Len(t, timetable.Schedule, 1)
	assert.Equal(t, "Monday", timetable.Schedule[0].Day)
	require.Len(t, timetable.Schedule[0].Periods, 1)
	assert.Equal(t, models.BreakTypeFree, timetable.Schedule[0].Periods[0].BreakType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryDeleteNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetables WHERE id = $1 AND college_id = $2")).
		WithArgs("missing", "c1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "c1", "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
