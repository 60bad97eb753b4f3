package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// RoomType enumerates classroom categories.
type RoomType string

const (
	RoomTypeClassroom   RoomType = "Classroom"
	RoomTypeLab         RoomType = "Lab"
	RoomTypeSeminarHall RoomType = "Seminar Hall"
)

// Classroom is one room in a branch's inventory.
type Classroom struct {
	Name     string   `json:"name"`
	Capacity int      `json:"capacity"`
	Type     RoomType `json:"type"`
	Location string   `json:"location,omitempty"`
}

// ClassroomList stores the room inventory as a JSONB column.
type ClassroomList []Classroom

// Value implements driver.Valuer.
func (l ClassroomList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *ClassroomList) Scan(src interface{}) error {
	return scanJSON(src, l, "classrooms")
}

// LunchBreak is the inclusive period range reserved for lunch, stored as a
// JSONB column.
type LunchBreak struct {
	StartPeriod int `json:"start_period"`
	EndPeriod   int `json:"end_period"`
}

// Value implements driver.Valuer.
func (b LunchBreak) Value() (driver.Value, error) {
	return json.Marshal(b)
}

// Scan implements sql.Scanner.
func (b *LunchBreak) Scan(src interface{}) error {
	return scanJSON(src, b, "lunch_break")
}

// Branch represents an academic branch (department) of a college.
type Branch struct {
	ID             string        `db:"id" json:"id"`
	CollegeID      string        `db:"college_id" json:"college_id"`
	Name           string        `db:"name" json:"name"`
	Code           string        `db:"code" json:"code"`
	TotalSemesters int           `db:"total_semesters" json:"total_semesters"`
	PeriodsPerDay  int           `db:"periods_per_day" json:"periods_per_day"`
	LunchBreak     LunchBreak    `db:"lunch_break" json:"lunch_break"`
	Classrooms     ClassroomList `db:"classrooms" json:"classrooms"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

// BranchFilter captures filtering options for listing branches.
type BranchFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

func scanJSON(src interface{}, dest interface{}, label string) error {
	if src == nil {
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported %s column type %T", label, src)
	}
}
