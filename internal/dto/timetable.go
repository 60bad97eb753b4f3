package dto

import "github.com/noah-isme/college-timetable-api/internal/models"

// GenerateTimetableRequest instructs the generator to build and persist a
// timetable for the branch semester using the selected subjects.
type GenerateTimetableRequest struct {
	BranchID   string   `json:"branchId" validate:"required"`
	Semester   int      `json:"semester" validate:"required,min=1,max=8"`
	SubjectIDs []string `json:"subjects" validate:"required,min=1,dive,required"`
}

// UnmetSubjectDemand reports a subject that finished the run with remaining
// weekly periods the generator could not place.
type UnmetSubjectDemand struct {
	SubjectID string `json:"subject_id"`
	Name      string `json:"name"`
	Remaining int    `json:"remaining"`
}

// GenerateTimetableResponse returns the persisted timetable together with the
// generator's demand report.
type GenerateTimetableResponse struct {
	Timetable *TimetableView       `json:"timetable"`
	Unmet     []UnmetSubjectDemand `json:"unmet_demand,omitempty"`
}

// EntryView is a schedule cell with subject and teacher references resolved
// to display names.
type EntryView struct {
	Period      int              `json:"period"`
	SubjectID   *string          `json:"subject_id,omitempty"`
	SubjectName string           `json:"subject_name,omitempty"`
	SubjectCode string           `json:"subject_code,omitempty"`
	TeacherID   *string          `json:"teacher_id,omitempty"`
	TeacherName string           `json:"teacher_name,omitempty"`
	Classroom   *string          `json:"classroom,omitempty"`
	StartTime   string           `json:"start_time"`
	EndTime     string           `json:"end_time"`
	IsBreak     bool             `json:"is_break"`
	BreakType   models.BreakType `json:"break_type,omitempty"`
}

// DayView is one resolved day of the timetable.
type DayView struct {
	Day     string      `json:"day"`
	Periods []EntryView `json:"periods"`
}

// TimetableView is the presentation shape of a stored timetable.
type TimetableView struct {
	ID        string    `json:"id"`
	BranchID  string    `json:"branch_id"`
	Semester  int       `json:"semester"`
	Schedule  []DayView `json:"schedule"`
	CreatedBy string    `json:"created_by"`
}

// UpdateTimetableRequest replaces a stored schedule with a manually edited one.
type UpdateTimetableRequest struct {
	Schedule models.WeekSchedule `json:"schedule" validate:"required,min=1"`
}
