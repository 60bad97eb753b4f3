package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// WeekDays lists the scheduling days in canonical order.
var WeekDays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// BreakType labels a non-teaching schedule entry.
type BreakType string

const (
	BreakTypeLunch BreakType = "Lunch"
	BreakTypeFree  BreakType = "Free Period"
	// BreakTypeShort is reserved and currently never emitted by the generator.
	BreakTypeShort BreakType = "Short Break"
)

// ScheduleEntry is one cell of the weekly grid. Subject, teacher and
// classroom are nil for break entries, and BreakType is set only when
// IsBreak is true.
type ScheduleEntry struct {
	Period    int       `json:"period"`
	SubjectID *string   `json:"subject_id,omitempty"`
	TeacherID *string   `json:"teacher_id,omitempty"`
	Classroom *string   `json:"classroom,omitempty"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	IsBreak   bool      `json:"is_break"`
	BreakType BreakType `json:"break_type,omitempty"`
}

// DaySchedule is one day's ordered period entries.
type DaySchedule struct {
	Day     string          `json:"day"`
	Periods []ScheduleEntry `json:"periods"`
}

// WeekSchedule is the full six-day grid, stored as a JSONB column.
type WeekSchedule []DaySchedule

// Value implements driver.Valuer.
func (s WeekSchedule) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *WeekSchedule) Scan(src interface{}) error {
	return scanJSON(src, s, "schedule")
}

// Timetable is the generated weekly schedule for a branch semester. Exactly
// one timetable exists per (college, branch, semester); regeneration replaces
// it wholesale.
type Timetable struct {
	ID        string       `db:"id" json:"id"`
	CollegeID string       `db:"college_id" json:"college_id"`
	BranchID  string       `db:"branch_id" json:"branch_id"`
	Semester  int          `db:"semester" json:"semester"`
	Schedule  WeekSchedule `db:"schedule" json:"schedule"`
	CreatedBy string       `db:"created_by" json:"created_by"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}
