package service

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-timetable-api/internal/models"
)

func allPeriods(max int) []int {
	periods := make([]int, 0, max)
	for p := 1; p <= max; p++ {
		periods = append(periods, p)
	}
	return periods
}

func fullWeekAvailability(days ...string) models.AvailabilityList {
	slots := make(models.AvailabilityList, 0, len(days))
	for _, day := range days {
		slots = append(slots, models.AvailabilitySlot{Day: day, Periods: allPeriods(8)})
	}
	return slots
}

func testBranch() *models.Branch {
	return &models.Branch{
		ID:            "branch-1",
		CollegeID:     "college-1",
		PeriodsPerDay: 8,
		LunchBreak:    models.LunchBreak{StartPeriod: 5, EndPeriod: 5},
		Classrooms: models.ClassroomList{
			{Name: "CR-101", Capacity: 60, Type: models.RoomTypeClassroom},
			{Name: "LAB-1", Capacity: 30, Type: models.RoomTypeLab},
		},
	}
}

func countSubjectEntries(schedule models.WeekSchedule, subjectID string) int {
	count := 0
	for _, day := range schedule {
		for _, entry := range day.Periods {
			if entry.SubjectID != nil && *entry.SubjectID == subjectID {
				count++
			}
		}
	}
	return count
}

func TestGenerateWeeklyScheduleGridShape(t *testing.T) {
	branch := testBranch()
	result := generateWeeklySchedule(nil, nil, branch)

	require.Len(t, result.Schedule, 6)
	for i, day := range result.Schedule {
		assert.Equal(t, models.WeekDays[i], day.Day)
		require.Len(t, day.Periods, 8)
		for idx, entry := range day.Periods {
			assert.Equal(t, idx+1, entry.Period, "periods must be ordered ascending")
		}
	}
}

func TestGenerateWeeklyScheduleLunchRange(t *testing.T) {
	branch := testBranch()
	branch.LunchBreak = models.LunchBreak{StartPeriod: 4, EndPeriod: 5}

	result := generateWeeklySchedule(nil, nil, branch)

	for _, day := range result.Schedule {
		for _, entry := range day.Periods {
			if entry.Period == 4 || entry.Period == 5 {
				assert.True(t, entry.IsBreak)
				assert.Equal(t, models.BreakTypeLunch, entry.BreakType)
				assert.Nil(t, entry.SubjectID)
				assert.Nil(t, entry.TeacherID)
			}
		}
	}
}

func TestGenerateWeeklyScheduleFullSatisfaction(t *testing.T) {
	// Scenario A: one subject with credits=3 (demand 6), one qualified teacher
	// free all periods Monday through Friday.
	branch := testBranch()
	subjects := []models.Subject{
		{ID: "sub-1", Name: "Data Structures", Credits: 3, Type: models.SubjectTypeTheory},
	}
	teachers := []models.Teacher{
		{
			ID:             "teach-1",
			SubjectIDs:     models.StringList{"sub-1"},
			AvailableSlots: fullWeekAvailability("Monday", "Tuesday", "Wednesday", "Thursday", "Friday"),
		},
	}

	result := generateWeeklySchedule(subjects, teachers, branch)

	assert.Equal(t, 6, countSubjectEntries(result.Schedule, "sub-1"))
	assert.Empty(t, result.Unmet)

	saturday := result.Schedule[5]
	require.Equal(t, "Saturday", saturday.Day)
	for _, entry := range saturday.Periods {
		assert.Nil(t, entry.SubjectID, "teacher is unavailable on Saturday")
	}
}

func TestGenerateWeeklyScheduleStarvationByInputOrder(t *testing.T) {
	// Scenario B: two subjects share the only qualified teacher, who is free
	// two periods per day. The first subject in the list wins every tie and
	// the second finishes with unmet demand.
	branch := testBranch()
	subjects := []models.Subject{
		{ID: "sub-a", Name: "Thermodynamics", Credits: 3, Type: models.SubjectTypeTheory},
		{ID: "sub-b", Name: "Fluid Mechanics", Credits: 3, Type: models.SubjectTypeTheory},
	}
	teachers := []models.Teacher{
		{
			ID:         "teach-1",
			SubjectIDs: models.StringList{"sub-a", "sub-b"},
			AvailableSlots: models.AvailabilityList{
				{Day: "Monday", Periods: []int{1, 2}},
				{Day: "Tuesday", Periods: []int{1, 2}},
			},
		},
	}

	result := generateWeeklySchedule(subjects, teachers, branch)

	assert.Equal(t, 4, countSubjectEntries(result.Schedule, "sub-a"))
	assert.Equal(t, 0, countSubjectEntries(result.Schedule, "sub-b"))

	require.Len(t, result.Unmet, 2)
	assert.Equal(t, "sub-a", result.Unmet[0].SubjectID)
	assert.Equal(t, 2, result.Unmet[0].Remaining)
	assert.Equal(t, "sub-b", result.Unmet[1].SubjectID)
	assert.Equal(t, 6, result.Unmet[1].Remaining)
}

func TestGenerateWeeklyScheduleNoTeacherDoubleBooking(t *testing.T) {
	branch := testBranch()
	subjects := []models.Subject{
		{ID: "sub-1", Name: "Algorithms", Credits: 6, Type: models.SubjectTypeTheory},
		{ID: "sub-2", Name: "Networks", Credits: 6, Type: models.SubjectTypeTheory},
	}
	teachers := []models.Teacher{
		{ID: "teach-1", SubjectIDs: models.StringList{"sub-1", "sub-2"}, AvailableSlots: fullWeekAvailability(models.WeekDays...)},
		{ID: "teach-2", SubjectIDs: models.StringList{"sub-1", "sub-2"}, AvailableSlots: fullWeekAvailability(models.WeekDays...)},
	}

	result := generateWeeklySchedule(subjects, teachers, branch)

	seen := make(map[string]bool)
	for _, day := range result.Schedule {
		for _, entry := range day.Periods {
			if entry.TeacherID == nil {
				continue
			}
			key := fmt.Sprintf("%s|%s|%d", *entry.TeacherID, day.Day, entry.Period)
			assert.False(t, seen[key], "teacher %s double-booked on %s period %d", *entry.TeacherID, day.Day, entry.Period)
			seen[key] = true
		}
	}
}

func TestGenerateWeeklyScheduleNeverOverSchedules(t *testing.T) {
	branch := testBranch()
	subjects := []models.Subject{
		{ID: "sub-1", Name: "Microprocessors", Credits: 1, Type: models.SubjectTypeTheory},
	}
	teachers := []models.Teacher{
		{ID: "teach-1", SubjectIDs: models.StringList{"sub-1"}, AvailableSlots: fullWeekAvailability(models.WeekDays...)},
	}

	result := generateWeeklySchedule(subjects, teachers, branch)

	assert.Equal(t, 2, countSubjectEntries(result.Schedule, "sub-1"))
	assert.Empty(t, result.Unmet)
}

func TestGenerateWeeklyScheduleDeterministic(t *testing.T) {
	branch := testBranch()
	subjects := []models.Subject{
		{ID: "sub-1", Name: "DBMS", Credits: 2, Type: models.SubjectTypeTheory},
		{ID: "sub-2", Name: "OS Lab", Credits: 2, Type: models.SubjectTypeLab},
	}
	teachers := []models.Teacher{
		{ID: "teach-1", SubjectIDs: models.StringList{"sub-1", "sub-2"}, AvailableSlots: fullWeekAvailability("Monday", "Wednesday", "Friday")},
		{ID: "teach-2", SubjectIDs: models.StringList{"sub-2"}, AvailableSlots: fullWeekAvailability("Tuesday", "Thursday")},
	}

	first := generateWeeklySchedule(subjects, teachers, branch)
	second := generateWeeklySchedule(subjects, teachers, branch)

	firstJSON, err := json.Marshal(first.Schedule)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second.Schedule)
	require.NoError(t, err)
	assert.Equal(t, string(firstJSON), string(secondJSON))
	assert.Equal(t, first.Unmet, second.Unmet)
}

func TestGenerateWeeklyScheduleEmptySubjects(t *testing.T) {
	// Scenario D: no subjects selected yields a grid of lunch and free periods.
	branch := testBranch()
	teachers := []models.Teacher{
		{ID: "teach-1", SubjectIDs: models.StringList{"sub-x"}, AvailableSlots: fullWeekAvailability(models.WeekDays...)},
	}

	result := generateWeeklySchedule(nil, teachers, branch)

	require.Len(t, result.Schedule, 6)
	for _, day := range result.Schedule {
		for _, entry := range day.Periods {
			assert.True(t, entry.IsBreak)
			if entry.Period == 5 {
				assert.Equal(t, models.BreakTypeLunch, entry.BreakType)
			} else {
				assert.Equal(t, models.BreakTypeFree, entry.BreakType)
			}
		}
	}
	assert.Empty(t, result.Unmet)
}

func TestGenerateWeeklyScheduleLabRoomPreference(t *testing.T) {
	branch := testBranch()
	subjects := []models.Subject{
		{ID: "sub-lab", Name: "Chemistry Lab", Credits: 1, Type: models.SubjectTypeLab},
		{ID: "sub-theory", Name: "Chemistry", Credits: 1, Type: models.SubjectTypeTheory},
	}
	teachers := []models.Teacher{
		{ID: "teach-1", SubjectIDs: models.StringList{"sub-lab", "sub-theory"}, AvailableSlots: fullWeekAvailability("Monday")},
	}

	result := generateWeeklySchedule(subjects, teachers, branch)

	for _, day := range result.Schedule {
		for _, entry := range day.Periods {
			if entry.SubjectID == nil {
				continue
			}
			switch *entry.SubjectID {
			case "sub-lab":
				assert.Equal(t, "LAB-1", *entry.Classroom)
			case "sub-theory":
				assert.Equal(t, "CR-101", *entry.Classroom)
			}
		}
	}
}

func TestSelectClassroomFallbacks(t *testing.T) {
	rooms := models.ClassroomList{{Name: "SH-1", Capacity: 200, Type: models.RoomTypeSeminarHall}}

	assert.Equal(t, "SH-1", selectClassroom(rooms, models.SubjectTypeLab), "falls back to first room when no type match")
	assert.Equal(t, fallbackClassroom, selectClassroom(nil, models.SubjectTypeTheory))
}

func TestAvailabilityTrackerUndeclaredDay(t *testing.T) {
	teachers := []models.Teacher{
		{ID: "teach-1", AvailableSlots: models.AvailabilityList{{Day: "Monday", Periods: []int{1}}}},
	}
	tracker := newAvailabilityTracker(teachers)

	assert.True(t, tracker.isFree("teach-1", "Monday", 1))
	assert.False(t, tracker.isFree("teach-1", "Tuesday", 1), "no entry for a day means unavailable all day")
	assert.False(t, tracker.isFree("unknown", "Monday", 1))

	tracker.markConsumed("teach-1", "Monday", 1)
	assert.False(t, tracker.isFree("teach-1", "Monday", 1))
}

func TestDemandTrackerConsumeFloorsAtZero(t *testing.T) {
	subjects := []models.Subject{{ID: "sub-1", Credits: 1}}
	demand := newDemandTracker(subjects)

	require.Equal(t, 2, demand.remaining("sub-1"))
	demand.consume("sub-1")
	demand.consume("sub-1")
	demand.consume("sub-1")
	assert.Equal(t, 0, demand.remaining("sub-1"))
}
