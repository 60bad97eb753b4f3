package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/college-timetable-api/internal/models"
)

// TimetableRepository provides persistence for generated timetables.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository creates a new timetable repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

const timetableColumns = "id, college_id, branch_id, semester, schedule, created_by, created_at, updated_at"

// FindByKey loads the timetable for a (college, branch, semester) key.
func (r *TimetableRepository) FindByKey(ctx context.Context, collegeID, branchID string, semester int) (*models.Timetable, error) {
	query := fmt.Sprintf("SELECT %s FROM timetables WHERE college_id = $1 AND branch_id = $2 AND semester = $3", timetableColumns)
	var timetable models.Timetable
	if err := r.db.GetContext(ctx, &timetable, query, collegeID, branchID, semester); err != nil {
		return nil, err
	}
	return &timetable, nil
}

// FindByID loads a timetable scoped to the owning college.
func (r *TimetableRepository) FindByID(ctx context.Context, collegeID, id string) (*models.Timetable, error) {
	query := fmt.Sprintf("SELECT %s FROM timetables WHERE id = $1 AND college_id = $2", timetableColumns)
	var timetable models.Timetable
	if err := r.db.GetContext(ctx, &timetable, query, id, collegeID); err != nil {
		return nil, err
	}
	return &timetable, nil
}

// Replace removes any timetable stored for the key and inserts the new one
// inside a single transaction, so readers never observe a missing timetable
// between delete and insert.
func (r *TimetableRepository) Replace(ctx context.Context, timetable *models.Timetable) error {
	if timetable.ID == "" {
		timetable.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if timetable.CreatedAt.IsZero() {
		timetable.CreatedAt = now
	}
	timetable.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace timetable: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM timetables WHERE college_id = $1 AND branch_id = $2 AND semester = $3`,
		timetable.CollegeID, timetable.BranchID, timetable.Semester); err != nil {
		return fmt.Errorf("delete existing timetable: %w", err)
	}

	const insert = `INSERT INTO timetables (id, college_id, branch_id, semester, schedule, created_by, created_at, updated_at) VALUES (:id, :college_id, :branch_id, :semester, :schedule, :created_by, :created_at, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, tx, insert, timetable); err != nil {
		return fmt.Errorf("insert timetable: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace timetable: %w", err)
	}
	return nil
}

// UpdateSchedule replaces the stored grid of an existing timetable.
func (r *TimetableRepository) UpdateSchedule(ctx context.Context, collegeID, id string, schedule models.WeekSchedule) error {
	result, err := r.db.ExecContext(ctx, `UPDATE timetables SET schedule = $1, updated_at = $2 WHERE id = $3 AND college_id = $4`,
		schedule, time.Now().UTC(), id, collegeID)
	if err != nil {
		return fmt.Errorf("update timetable schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update timetable schedule rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a timetable scoped to the owning college.
func (r *TimetableRepository) Delete(ctx context.Context, collegeID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM timetables WHERE id = $1 AND college_id = $2`, id, collegeID)
	if err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete timetable rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
