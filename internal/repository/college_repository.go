package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/college-timetable-api/internal/models"
)

// CollegeRepository provides persistence for college tenant accounts.
type CollegeRepository struct {
	db *sqlx.DB
}

// NewCollegeRepository creates a new college repository.
func NewCollegeRepository(db *sqlx.DB) *CollegeRepository {
	return &CollegeRepository{db: db}
}

// FindByEmail loads a college account by login email.
func (r *CollegeRepository) FindByEmail(ctx context.Context, email string) (*models.College, error) {
	const query = `SELECT id, college_code, name, email, password_hash, address, phone, created_at, updated_at FROM colleges WHERE LOWER(email) = LOWER($1)`
	var college models.College
	if err := r.db.GetContext(ctx, &college, query, email); err != nil {
		return nil, err
	}
	return &college, nil
}

// FindByID loads a college account by id.
func (r *CollegeRepository) FindByID(ctx context.Context, id string) (*models.College, error) {
	const query = `SELECT id, college_code, name, email, password_hash, address, phone, created_at, updated_at FROM colleges WHERE id = $1`
	var college models.College
	if err := r.db.GetContext(ctx, &college, query, id); err != nil {
		return nil, err
	}
	return &college, nil
}

// ExistsByEmailOrCode reports whether a college with the email or code is
// already registered.
func (r *CollegeRepository) ExistsByEmailOrCode(ctx context.Context, email, code string) (bool, error) {
	const query = `SELECT 1 FROM colleges WHERE LOWER(email) = LOWER($1) OR college_code = $2 LIMIT 1`
	var one int
	err := r.db.GetContext(ctx, &one, query, email, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check college exists: %w", err)
	}
	return true, nil
}

// Create stores a new college account.
func (r *CollegeRepository) Create(ctx context.Context, college *models.College) error {
	if college.ID == "" {
		college.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if college.CreatedAt.IsZero() {
		college.CreatedAt = now
	}
	college.UpdatedAt = now

	const query = `INSERT INTO colleges (id, college_code, name, email, password_hash, address, phone, created_at, updated_at) VALUES (:id, :college_code, :name, :email, :password_hash, :address, :phone, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, college); err != nil {
		return fmt.Errorf("create college: %w", err)
	}
	return nil
}
