package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// College is the tenant account owning all branch, teacher, subject and
// timetable records.
type College struct {
	ID           string    `db:"id" json:"id"`
	CollegeID    string    `db:"college_code" json:"college_id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Address      *string   `db:"address" json:"address,omitempty"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// RegisterCollegeRequest captures the signup payload.
type RegisterCollegeRequest struct {
	Name      string `json:"name" validate:"required"`
	CollegeID string `json:"collegeId" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
}

// LoginRequest authenticates a college account.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued token and account profile.
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"`
	IssuedAt    time.Time   `json:"issued_at"`
	College     CollegeInfo `json:"college"`
}

// CollegeInfo is the public projection of a college account.
type CollegeInfo struct {
	ID        string `json:"id"`
	CollegeID string `json:"college_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

// JWTClaims embeds the college identity in access tokens.
type JWTClaims struct {
	CollegeID   string `json:"college_id"`
	CollegeCode string `json:"college_code"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	jwt.RegisteredClaims
}

// Pagination describes list slicing metadata.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
