package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/college-timetable-api/internal/models"
)

// BranchRepository provides persistence for branches.
type BranchRepository struct {
	db *sqlx.DB
}

// NewBranchRepository creates a new branch repository.
func NewBranchRepository(db *sqlx.DB) *BranchRepository {
	return &BranchRepository{db: db}
}

const branchColumns = "id, college_id, name, code, total_semesters, periods_per_day, lunch_break, classrooms, created_at, updated_at"

// List returns a college's branches with optional filtering and pagination.
func (r *BranchRepository) List(ctx context.Context, collegeID string, filter models.BranchFilter) ([]models.Branch, int, error) {
	base := "FROM branches WHERE college_id = $1"
	args := []interface{}{collegeID}

	if filter.Search != "" {
		base += fmt.Sprintf(" AND (name ILIKE $%d OR code ILIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+filter.Search+"%")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"name":       true,
		"code":       true,
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", branchColumns, base, sortBy, order, size, offset)
	var branches []models.Branch
	if err := r.db.SelectContext(ctx, &branches, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list branches: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count branches: %w", err)
	}

	return branches, total, nil
}

// FindByID loads a branch scoped to the owning college.
func (r *BranchRepository) FindByID(ctx context.Context, collegeID, id string) (*models.Branch, error) {
	query := fmt.Sprintf("SELECT %s FROM branches WHERE id = $1 AND college_id = $2", branchColumns)
	var branch models.Branch
	if err := r.db.GetContext(ctx, &branch, query, id, collegeID); err != nil {
		return nil, err
	}
	return &branch, nil
}

// Create stores a new branch record.
func (r *BranchRepository) Create(ctx context.Context, branch *models.Branch) error {
	if branch.ID == "" {
		branch.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if branch.CreatedAt.IsZero() {
		branch.CreatedAt = now
	}
	branch.UpdatedAt = now

	const query = `INSERT INTO branches (id, college_id, name, code, total_semesters, periods_per_day, lunch_break, classrooms, created_at, updated_at) VALUES (:id, :college_id, :name, :code, :total_semesters, :periods_per_day, :lunch_break, :classrooms, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, branch); err != nil {
		return fmt.Errorf("create branch: %w", err)
	}
	return nil
}

// Update modifies a branch record.
func (r *BranchRepository) Update(ctx context.Context, branch *models.Branch) error {
	branch.UpdatedAt = time.Now().UTC()
	const query = `UPDATE branches SET name = :name, code = :code, total_semesters = :total_semesters, periods_per_day = :periods_per_day, lunch_break = :lunch_break, classrooms = :classrooms, updated_at = :updated_at WHERE id = :id AND college_id = :college_id`
	if _, err := r.db.NamedExecContext(ctx, query, branch); err != nil {
		return fmt.Errorf("update branch: %w", err)
	}
	return nil
}

// Delete removes a branch scoped to the owning college.
func (r *BranchRepository) Delete(ctx context.Context, collegeID, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM branches WHERE id = $1 AND college_id = $2`, id, collegeID); err != nil {
		return fmt.Errorf("delete branch: %w", err)
	}
	return nil
}
