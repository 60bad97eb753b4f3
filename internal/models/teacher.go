package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// AvailabilitySlot declares the periods a teacher may be scheduled on one day.
// A day with no entry means the teacher is unavailable that entire day.
type AvailabilitySlot struct {
	Day     string `json:"day"`
	Periods []int  `json:"periods"`
}

// AvailabilityList stores the weekly availability pattern as a JSONB column.
type AvailabilityList []AvailabilitySlot

// Value implements driver.Valuer.
func (l AvailabilityList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *AvailabilityList) Scan(src interface{}) error {
	return scanJSON(src, l, "available_slots")
}

// StringList stores a set of referenced ids as a JSONB column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src interface{}) error {
	return scanJSON(src, l, "subject_ids")
}

// Contains reports whether id is present in the list.
func (l StringList) Contains(id string) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

// Teacher represents an instructor record.
type Teacher struct {
	ID             string           `db:"id" json:"id"`
	CollegeID      string           `db:"college_id" json:"college_id"`
	BranchID       string           `db:"branch_id" json:"branch_id"`
	Name           string           `db:"name" json:"name"`
	Email          string           `db:"email" json:"email"`
	Phone          string           `db:"phone" json:"phone"`
	EmployeeID     string           `db:"employee_id" json:"employee_id"`
	Designation    string           `db:"designation" json:"designation"`
	Specialization *string          `db:"specialization" json:"specialization,omitempty"`
	SubjectIDs     StringList       `db:"subject_ids" json:"subject_ids"`
	AvailableSlots AvailabilityList `db:"available_slots" json:"available_slots"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// PeriodsOn returns the declared periods for the given day, nil when the
// teacher has no availability entry for it.
func (t *Teacher) PeriodsOn(day string) []int {
	for _, slot := range t.AvailableSlots {
		if slot.Day == day {
			return slot.Periods
		}
	}
	return nil
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	BranchID  string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
