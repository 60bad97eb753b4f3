package service

import (
	"github.com/noah-isme/college-timetable-api/internal/dto"
	"github.com/noah-isme/college-timetable-api/internal/models"
)

// defaultPeriodsPerDay is used when a branch does not configure its own grid.
const defaultPeriodsPerDay = 8

// fallbackClassroom is assigned when a branch has no room inventory at all.
const fallbackClassroom = "Room 101"

// periodTime is one row of the fixed daily grid.
type periodTime struct {
	Start string
	End   string
}

// timeGrid maps period number to clock time. The gaps between periods 2-3
// and 6-7 reflect institutional recess; period 5 is conventionally lunch,
// but the branch's configured lunch range is authoritative.
var timeGrid = map[int]periodTime{
	1: {Start: "9:00", End: "10:00"},
	2: {Start: "10:00", End: "11:00"},
	3: {Start: "11:15", End: "12:15"},
	4: {Start: "12:15", End: "1:15"},
	5: {Start: "2:15", End: "3:15"},
	6: {Start: "3:15", End: "4:15"},
	7: {Start: "4:30", End: "5:30"},
	8: {Start: "5:30", End: "6:30"},
}

func timeSlotFor(period int) periodTime {
	return timeGrid[period]
}

func isLunchPeriod(branch *models.Branch, period int) bool {
	return period >= branch.LunchBreak.StartPeriod && period <= branch.LunchBreak.EndPeriod
}

// demandTracker counts the remaining weekly periods per subject for one
// generation run.
type demandTracker map[string]int

func newDemandTracker(subjects []models.Subject) demandTracker {
	d := make(demandTracker, len(subjects))
	for i := range subjects {
		d[subjects[i].ID] = subjects[i].WeeklyDemand()
	}
	return d
}

func (d demandTracker) remaining(subjectID string) int {
	return d[subjectID]
}

func (d demandTracker) consume(subjectID string) {
	if d[subjectID] > 0 {
		d[subjectID]--
	}
}

// availabilityTracker enforces both a teacher's declared weekly availability
// and run-scoped exclusivity (no double-booking within one generation).
type availabilityTracker struct {
	declared map[string]map[string]map[int]bool
	consumed map[string]map[string]map[int]bool
}

func newAvailabilityTracker(teachers []models.Teacher) *availabilityTracker {
	tr := &availabilityTracker{
		declared: make(map[string]map[string]map[int]bool, len(teachers)),
		consumed: make(map[string]map[string]map[int]bool, len(teachers)),
	}
	for i := range teachers {
		teacher := &teachers[i]
		days := make(map[string]map[int]bool, len(teacher.AvailableSlots))
		for _, slot := range teacher.AvailableSlots {
			periods := make(map[int]bool, len(slot.Periods))
			for _, p := range slot.Periods {
				periods[p] = true
			}
			days[slot.Day] = periods
		}
		tr.declared[teacher.ID] = days
		tr.consumed[teacher.ID] = make(map[string]map[int]bool)
	}
	return tr
}

func (a *availabilityTracker) isFree(teacherID, day string, period int) bool {
	days, ok := a.declared[teacherID]
	if !ok {
		return false
	}
	if !days[day][period] {
		return false
	}
	return !a.consumed[teacherID][day][period]
}

func (a *availabilityTracker) markConsumed(teacherID, day string, period int) {
	days := a.consumed[teacherID]
	if days == nil {
		days = make(map[string]map[int]bool)
		a.consumed[teacherID] = days
	}
	if days[day] == nil {
		days[day] = make(map[int]bool)
	}
	days[day][period] = true
}

// selectClassroom picks the first inventory room matching the preferred type
// for the subject, falling back to the first room of any type. The choice is
// not conflict-aware: two subjects in the same period can share a room name.
func selectClassroom(classrooms []models.Classroom, subjectType models.SubjectType) string {
	preferred := models.RoomTypeClassroom
	if subjectType == models.SubjectTypeLab {
		preferred = models.RoomTypeLab
	}
	for _, room := range classrooms {
		if room.Type == preferred {
			return room.Name
		}
	}
	if len(classrooms) > 0 {
		return classrooms[0].Name
	}
	return fallbackClassroom
}

// generationResult bundles the built grid with the final demand report.
type generationResult struct {
	Schedule models.WeekSchedule
	Unmet    []dto.UnmetSubjectDemand
}

// generateWeeklySchedule fills the six-day grid with a single first-fit pass.
// For every non-lunch cell it scans subjects in input order and assigns the
// first one with remaining demand and a free qualified teacher; the teacher
// scan also uses input order as the sole tie-break. Cells are never revisited,
// so the run can end with unmet demand even when a different assignment order
// would have satisfied it. Both trackers are scoped to this call, making the
// output fully deterministic for a fixed input ordering.
func generateWeeklySchedule(subjects []models.Subject, teachers []models.Teacher, branch *models.Branch) generationResult {
	periodsPerDay := branch.PeriodsPerDay
	if periodsPerDay <= 0 {
		periodsPerDay = defaultPeriodsPerDay
	}

	demand := newDemandTracker(subjects)
	availability := newAvailabilityTracker(teachers)

	schedule := make(models.WeekSchedule, 0, len(models.WeekDays))
	for _, day := range models.WeekDays {
		entries := make([]models.ScheduleEntry, 0, periodsPerDay)

		for period := 1; period <= periodsPerDay; period++ {
			slot := timeSlotFor(period)

			if isLunchPeriod(branch, period) {
				entries = append(entries, models.ScheduleEntry{
					Period:    period,
					StartTime: slot.Start,
					EndTime:   slot.End,
					IsBreak:   true,
					BreakType: models.BreakTypeLunch,
				})
				continue
			}

			entry := models.ScheduleEntry{
				Period:    period,
				StartTime: slot.Start,
				EndTime:   slot.End,
				IsBreak:   true,
				BreakType: models.BreakTypeFree,
			}

			for i := range subjects {
				subject := &subjects[i]
				if demand.remaining(subject.ID) == 0 {
					continue
				}

				teacher := firstFreeQualifiedTeacher(teachers, availability, subject.ID, day, period)
				if teacher == nil {
					continue
				}

				room := selectClassroom(branch.Classrooms, subject.Type)
				entry.SubjectID = &subject.ID
				entry.TeacherID = &teacher.ID
				entry.Classroom = &room
				entry.IsBreak = false
				entry.BreakType = ""

				demand.consume(subject.ID)
				availability.markConsumed(teacher.ID, day, period)
				break
			}

			entries = append(entries, entry)
		}

		schedule = append(schedule, models.DaySchedule{Day: day, Periods: entries})
	}

	var unmet []dto.UnmetSubjectDemand
	for i := range subjects {
		if remaining := demand.remaining(subjects[i].ID); remaining > 0 {
			unmet = append(unmet, dto.UnmetSubjectDemand{
				SubjectID: subjects[i].ID,
				Name:      subjects[i].Name,
				Remaining: remaining,
			})
		}
	}

	return generationResult{Schedule: schedule, Unmet: unmet}
}

func firstFreeQualifiedTeacher(teachers []models.Teacher, availability *availabilityTracker, subjectID, day string, period int) *models.Teacher {
	for i := range teachers {
		teacher := &teachers[i]
		if !teacher.SubjectIDs.Contains(subjectID) {
			continue
		}
		if availability.isFree(teacher.ID, day, period) {
			return teacher
		}
	}
	return nil
}
