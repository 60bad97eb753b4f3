package models

import "time"

// SubjectType enumerates delivery styles of a subject.
type SubjectType string

const (
	SubjectTypeTheory    SubjectType = "Theory"
	SubjectTypePractical SubjectType = "Practical"
	SubjectTypeLab       SubjectType = "Lab"
)

// PeriodsPerCredit maps one credit unit to its weekly period demand.
const PeriodsPerCredit = 2

// Subject represents an academic subject offered by a branch.
type Subject struct {
	ID        string      `db:"id" json:"id"`
	CollegeID string      `db:"college_id" json:"college_id"`
	BranchID  string      `db:"branch_id" json:"branch_id"`
	Name      string      `db:"name" json:"name"`
	Code      string      `db:"code" json:"code"`
	Credits   int         `db:"credits" json:"credits"`
	Type      SubjectType `db:"type" json:"type"`
	Semester  int         `db:"semester" json:"semester"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

// WeeklyDemand returns how many periods per week the subject requires.
func (s *Subject) WeeklyDemand() int {
	return s.Credits * PeriodsPerCredit
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	BranchID  string
	Semester  int
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
