package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/college-timetable-api/internal/dto"
	"github.com/noah-isme/college-timetable-api/internal/models"
	appErrors "github.com/noah-isme/college-timetable-api/pkg/errors"
)

type stubTimetableRepo struct {
	mu       sync.Mutex
	stored   *models.Timetable
	replaces int
	findErr  error
}

func (s *stubTimetableRepo) FindByKey(ctx context.Context, collegeID, branchID string, semester int) (*models.Timetable, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.stored == nil {
		return nil, sql.ErrNoRows
	}
	return s.stored, nil
}

func (s *stubTimetableRepo) FindByID(ctx context.Context, collegeID, id string) (*models.Timetable, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.stored == nil || s.stored.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.stored, nil
}

func (s *stubTimetableRepo) Replace(ctx context.Context, timetable *models.Timetable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timetable.ID == "" {
		timetable.ID = "tt-1"
	}
	s.stored = timetable
	s.replaces++
	return nil
}

func (s *stubTimetableRepo) UpdateSchedule(ctx context.Context, collegeID, id string, schedule models.WeekSchedule) error {
	if s.stored == nil || s.stored.ID != id {
		return sql.ErrNoRows
	}
	s.stored.Schedule = schedule
	return nil
}

func (s *stubTimetableRepo) Delete(ctx context.Context, collegeID, id string) error {
	if s.stored == nil || s.stored.ID != id {
		return sql.ErrNoRows
	}
	s.stored = nil
	return nil
}

type stubBranchLookup struct {
	branch *models.Branch
	err    error
}

func (s *stubBranchLookup) FindByID(ctx context.Context, collegeID, id string) (*models.Branch, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.branch, nil
}

type stubSubjectSource struct {
	subjects []models.Subject
	err      error
}

func (s *stubSubjectSource) ListForGeneration(ctx context.Context, collegeID, branchID string, semester int, ids []string) ([]models.Subject, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.subjects, nil
}

type stubTeacherSource struct {
	teachers []models.Teacher
	err      error
}

func (s *stubTeacherSource) ListQualified(ctx context.Context, collegeID, branchID string, subjectIDs []string) ([]models.Teacher, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.teachers, nil
}

type stubCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	gets    int
	sets    int
	deletes []string
}

func (s *stubCache) Get(ctx context.Context, key string, dest interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	raw, ok := s.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *stubCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if s.entries == nil {
		s.entries = make(map[string][]byte)
	}
	s.entries[key] = raw
	s.sets++
	return nil
}

func (s *stubCache) DeleteByPattern(ctx context.Context, pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
		}
	}
	return nil
}

type timetableFixture struct {
	svc      *TimetableService
	repo     *stubTimetableRepo
	branches *stubBranchLookup
	subjects *stubSubjectSource
	teachers *stubTeacherSource
	cache    *stubCache
}

func newTimetableFixture() *timetableFixture {
	subjects := []models.Subject{{
		ID:        "sub-1",
		CollegeID: "college-1",
		BranchID:  "branch-1",
		Name:      "Data Structures",
		Code:      "CS201",
		Credits:   3,
		Type:      models.SubjectTypeTheory,
		Semester:  3,
	}}
	teachers := []models.Teacher{{
		ID:             "teacher-1",
		CollegeID:      "college-1",
		BranchID:       "branch-1",
		Name:           "Prof. Rao",
		SubjectIDs:     models.StringList{"sub-1"},
		AvailableSlots: fullWeekAvailability(models.WeekDays...),
	}}

	f := &timetableFixture{
		repo:     &stubTimetableRepo{},
		branches: &stubBranchLookup{branch: testBranch()},
		subjects: &stubSubjectSource{subjects: subjects},
		teachers: &stubTeacherSource{teachers: teachers},
		cache:    &stubCache{},
	}
	f.svc = NewTimetableService(f.repo, f.branches, f.subjects, f.teachers, f.cache, time.Minute, nil, validator.New(), zap.NewNop())
	return f
}

func generateRequest() dto.GenerateTimetableRequest {
	return dto.GenerateTimetableRequest{BranchID: "branch-1", Semester: 3, SubjectIDs: []string{"sub-1"}}
}

func TestGeneratePersistsAndResolvesNames(t *testing.T) {
	f := newTimetableFixture()

	resp, err := f.svc.Generate(context.Background(), "college-1", "college-1", generateRequest())
	require.NoError(t, err)
	require.NotNil(t, f.repo.stored)

	assert.Equal(t, 1, f.repo.replaces)
	assert.Empty(t, resp.Unmet)
	assert.Len(t, resp.Timetable.Schedule, len(models.WeekDays))

	found := false
	for _, day := range resp.Timetable.Schedule {
		for _, entry := range day.Periods {
			if entry.SubjectID != nil && *entry.SubjectID == "sub-1" {
				found = true
				assert.Equal(t, "Data Structures", entry.SubjectName)
				assert.Equal(t, "CS201", entry.SubjectCode)
				assert.Equal(t, "Prof. Rao", entry.TeacherName)
			}
		}
	}
	assert.True(t, found, "expected at least one placed entry")
}

func TestGenerateReportsUnmetDemand(t *testing.T) {
	f := newTimetableFixture()
	// A teacher free only Monday periods 1-2 can carry 2 of the 6 demanded.
	f.teachers.teachers[0].AvailableSlots = models.AvailabilityList{{Day: "Monday", Periods: []int{1, 2}}}

	resp, err := f.svc.Generate(context.Background(), "college-1", "college-1", generateRequest())
	require.NoError(t, err)
	require.Len(t, resp.Unmet, 1)
	assert.Equal(t, "sub-1", resp.Unmet[0].SubjectID)
	assert.Equal(t, 4, resp.Unmet[0].Remaining)
}

func TestGenerateRejectsUnknownSubject(t *testing.T) {
	f := newTimetableFixture()
	req := generateRequest()
	req.SubjectIDs = []string{"sub-1", "sub-ghost"}

	_, err := f.svc.Generate(context.Background(), "college-1", "college-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 0, f.repo.replaces)
}

func TestGenerateBranchNotFound(t *testing.T) {
	f := newTimetableFixture()
	f.branches.err = sql.ErrNoRows

	_, err := f.svc.Generate(context.Background(), "college-1", "college-1", generateRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestGenerateInvalidatesCachedViews(t *testing.T) {
	f := newTimetableFixture()

	_, err := f.svc.Generate(context.Background(), "college-1", "college-1", generateRequest())
	require.NoError(t, err)

	require.NotEmpty(t, f.cache.deletes)
	assert.Equal(t, "timetable:view:college-1:branch-1:*", f.cache.deletes[0])
}

func TestGenerateSerializesConcurrentRunsPerKey(t *testing.T) {
	f := newTimetableFixture()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Generate(context.Background(), "college-1", "college-1", generateRequest())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 8, f.repo.replaces)
	require.NotNil(t, f.repo.stored)
	assert.Len(t, f.repo.stored.Schedule, len(models.WeekDays))
}

func TestGetByKeyPopulatesCache(t *testing.T) {
	f := newTimetableFixture()
	_, err := f.svc.Generate(context.Background(), "college-1", "college-1", generateRequest())
	require.NoError(t, err)

	first, err := f.svc.GetByKey(context.Background(), "college-1", "branch-1", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.sets)

	second, err := f.svc.GetByKey(context.Background(), "college-1", "branch-1", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.sets, "second read should come from cache")
	assert.Equal(t, first.ID, second.ID)
}

func TestGetByKeyNotFound(t *testing.T) {
	f := newTimetableFixture()

	_, err := f.svc.GetByKey(context.Background(), "college-1", "branch-1", 3)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUpdateReplacesScheduleAndInvalidates(t *testing.T) {
	f := newTimetableFixture()
	_, err := f.svc.Generate(context.Background(), "college-1", "college-1", generateRequest())
	require.NoError(t, err)

	edited := models.WeekSchedule{{Day: "Monday", Periods: []models.ScheduleEntry{{
		Period: 1, StartTime: "9:00", EndTime: "10:00", IsBreak: true, BreakType: models.BreakTypeFree,
	}}}}

	view, err := f.svc.Update(context.Background(), "college-1", f.repo.stored.ID, dto.UpdateTimetableRequest{Schedule: edited})
	require.NoError(t, err)
	require.Len(t, view.Schedule, 1)
	assert.Equal(t, "Monday", view.Schedule[0].Day)
	assert.GreaterOrEqual(t, len(f.cache.deletes), 2)
}

func TestDeleteTimetable(t *testing.T) {
	f := newTimetableFixture()
	_, err := f.svc.Generate(context.Background(), "college-1", "college-1", generateRequest())
	require.NoError(t, err)
	id := f.repo.stored.ID

	require.NoError(t, f.svc.Delete(context.Background(), "college-1", id))
	assert.Nil(t, f.repo.stored)

	err = f.svc.Delete(context.Background(), "college-1", id)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportCSVContainsGrid(t *testing.T) {
	f := newTimetableFixture()
	_, err := f.svc.Generate(context.Background(), "college-1", "college-1", generateRequest())
	require.NoError(t, err)

	result, err := f.svc.Export(context.Background(), "college-1", f.repo.stored.ID, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Contains(t, result.FileName, "timetable_sem3_")

	records, err := csv.NewReader(strings.NewReader(string(result.Content))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(models.WeekDays)+1)
	assert.Equal(t, "Day", records[0][0])
	assert.Equal(t, "Monday", records[1][0])
	assert.Contains(t, strings.Join(records[1], ","), "Data Structures")
}

func TestExportPDFProducesDocument(t *testing.T) {
	f := newTimetableFixture()
	_, err := f.svc.Generate(context.Background(), "college-1", "college-1", generateRequest())
	require.NoError(t, err)

	result, err := f.svc.Export(context.Background(), "college-1", f.repo.stored.ID, ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasPrefix(string(result.Content), "%PDF"))
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	f := newTimetableFixture()
	_, err := f.svc.Generate(context.Background(), "college-1", "college-1", generateRequest())
	require.NoError(t, err)

	_, err = f.svc.Export(context.Background(), "college-1", f.repo.stored.ID, ExportFormat("xlsx"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
