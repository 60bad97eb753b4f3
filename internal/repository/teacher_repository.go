package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/college-timetable-api/internal/models"
)

// TeacherRepository provides persistence for teachers.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository creates a new teacher repository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

const teacherColumns = "id, college_id, branch_id, name, email, phone, employee_id, designation, specialization, subject_ids, available_slots, created_at, updated_at"

// List returns a college's teachers with optional filtering and pagination.
func (r *TeacherRepository) List(ctx context.Context, collegeID string, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	base := "FROM teachers WHERE college_id = $1"
	args := []interface{}{collegeID}

	if filter.BranchID != "" {
		base += fmt.Sprintf(" AND branch_id = $%d", len(args)+1)
		args = append(args, filter.BranchID)
	}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND (name ILIKE $%d OR email ILIKE $%d OR employee_id ILIKE $%d)", len(args)+1, len(args)+1, len(args)+1)
		args = append(args, "%"+filter.Search+"%")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"name":       true,
		"email":      true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", teacherColumns, base, sortBy, order, size, offset)
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}

	return teachers, total, nil
}

// FindByID loads a teacher scoped to the owning college.
func (r *TeacherRepository) FindByID(ctx context.Context, collegeID, id string) (*models.Teacher, error) {
	query := fmt.Sprintf("SELECT %s FROM teachers WHERE id = $1 AND college_id = $2", teacherColumns)
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id, collegeID); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// ListQualified returns the branch's teachers qualified for at least one of
// the given subjects, ordered by creation time for deterministic generation
// input.
func (r *TeacherRepository) ListQualified(ctx context.Context, collegeID, branchID string, subjectIDs []string) ([]models.Teacher, error) {
	query := fmt.Sprintf("SELECT %s FROM teachers WHERE college_id = $1 AND branch_id = $2 AND subject_ids ?| $3 ORDER BY created_at ASC, id ASC", teacherColumns)
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, collegeID, branchID, subjectIDArray(subjectIDs)); err != nil {
		return nil, fmt.Errorf("list qualified teachers: %w", err)
	}
	return teachers, nil
}

// Create stores a new teacher record.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if teacher.CreatedAt.IsZero() {
		teacher.CreatedAt = now
	}
	teacher.UpdatedAt = now

	const query = `INSERT INTO teachers (id, college_id, branch_id, name, email, phone, employee_id, designation, specialization, subject_ids, available_slots, created_at, updated_at) VALUES (:id, :college_id, :branch_id, :name, :email, :phone, :employee_id, :designation, :specialization, :subject_ids, :available_slots, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

// Update modifies a teacher record.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	teacher.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teachers SET name = :name, email = :email, phone = :phone, employee_id = :employee_id, designation = :designation, specialization = :specialization, subject_ids = :subject_ids, available_slots = :available_slots, updated_at = :updated_at WHERE id = :id AND college_id = :college_id`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	return nil
}

// subjectIDArray adapts a Go slice for the jsonb ?| (contains any key)
// operator.
func subjectIDArray(ids []string) pq.StringArray {
	return pq.StringArray(ids)
}

// Delete removes a teacher scoped to the owning college.
func (r *TeacherRepository) Delete(ctx context.Context, collegeID, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM teachers WHERE id = $1 AND college_id = $2`, id, collegeID); err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}
	return nil
}
