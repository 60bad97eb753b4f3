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

// SubjectRepository provides persistence for subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new subject repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

const subjectColumns = "id, college_id, branch_id, name, code, credits, type, semester, created_at, updated_at"

// List returns a college's subjects with optional filtering and pagination.
func (r *SubjectRepository) List(ctx context.Context, collegeID string, filter models.SubjectFilter) ([]models.Subject, int, error) {
	base := "FROM subjects WHERE college_id = $1"
	args := []interface{}{collegeID}

	if filter.BranchID != "" {
		base += fmt.Sprintf(" AND branch_id = $%d", len(args)+1)
		args = append(args, filter.BranchID)
	}
	if filter.Semester > 0 {
		base += fmt.Sprintf(" AND semester = $%d", len(args)+1)
		args = append(args, filter.Semester)
	}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND (name ILIKE $%d OR code ILIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+filter.Search+"%")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"name":       true,
		"code":       true,
		"semester":   true,
		"credits":    true,
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", subjectColumns, base, sortBy, order, size, offset)
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list subjects: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count subjects: %w", err)
	}

	return subjects, total, nil
}

// FindByID loads a subject scoped to the owning college.
func (r *SubjectRepository) FindByID(ctx context.Context, collegeID, id string) (*models.Subject, error) {
	query := fmt.Sprintf("SELECT %s FROM subjects WHERE id = $1 AND college_id = $2", subjectColumns)
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id, collegeID); err != nil {
		return nil, err
	}
	return &subject, nil
}

// ListForGeneration returns the selected semester subjects for a branch,
// ordered by creation time for deterministic generation input.
func (r *SubjectRepository) ListForGeneration(ctx context.Context, collegeID, branchID string, semester int, ids []string) ([]models.Subject, error) {
	query := fmt.Sprintf("SELECT %s FROM subjects WHERE college_id = $1 AND branch_id = $2 AND semester = $3 AND id = ANY($4) ORDER BY created_at ASC, id ASC", subjectColumns)
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, collegeID, branchID, semester, pq.StringArray(ids)); err != nil {
		return nil, fmt.Errorf("list subjects for generation: %w", err)
	}
	return subjects, nil
}

// Create stores a new subject record.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = now
	}
	subject.UpdatedAt = now

	const query = `INSERT INTO subjects (id, college_id, branch_id, name, code, credits, type, semester, created_at, updated_at) VALUES (:id, :college_id, :branch_id, :name, :code, :credits, :type, :semester, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// Update modifies a subject record.
func (r *SubjectRepository) Update(ctx context.Context, subject *models.Subject) error {
	subject.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subjects SET name = :name, code = :code, credits = :credits, type = :type, semester = :semester, updated_at = :updated_at WHERE id = :id AND college_id = :college_id`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	return nil
}

// Delete removes a subject scoped to the owning college.
func (r *SubjectRepository) Delete(ctx context.Context, collegeID, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1 AND college_id = $2`, id, collegeID); err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return nil
}
