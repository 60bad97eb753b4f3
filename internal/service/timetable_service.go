package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/college-timetable-api/internal/dto"
	"github.com/noah-isme/college-timetable-api/internal/models"
	appErrors "github.com/noah-isme/college-timetable-api/pkg/errors"
	"github.com/noah-isme/college-timetable-api/pkg/export"
)

type timetableRepository interface {
	FindByKey(ctx context.Context, collegeID, branchID string, semester int) (*models.Timetable, error)
	FindByID(ctx context.Context, collegeID, id string) (*models.Timetable, error)
	Replace(ctx context.Context, timetable *models.Timetable) error
	UpdateSchedule(ctx context.Context, collegeID, id string, schedule models.WeekSchedule) error
	Delete(ctx context.Context, collegeID, id string) error
}

type branchLookup interface {
	FindByID(ctx context.Context, collegeID, id string) (*models.Branch, error)
}

type generationSubjectSource interface {
	ListForGeneration(ctx context.Context, collegeID, branchID string, semester int, ids []string) ([]models.Subject, error)
}

type qualifiedTeacherSource interface {
	ListQualified(ctx context.Context, collegeID, branchID string, subjectIDs []string) ([]models.Teacher, error)
}

// TimetableCache abstracts the view cache so Redis stays optional.
type TimetableCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// GenerationObserver receives generation and cache instrumentation events.
type GenerationObserver interface {
	ObserveGeneration(duration time.Duration, unmetPeriods int, failed bool)
	RecordCacheLookup(hit bool)
}

// ExportFormat names a supported timetable export encoding.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult carries a rendered document with its transport metadata.
type ExportResult struct {
	FileName    string
	ContentType string
	Content     []byte
}

// TimetableService generates, stores and serves weekly timetables.
type TimetableService struct {
	timetables timetableRepository
	branches   branchLookup
	subjects   generationSubjectSource
	teachers   qualifiedTeacherSource
	cache      TimetableCache
	cacheTTL   time.Duration
	metrics    GenerationObserver
	validator  *validator.Validate
	logger     *zap.Logger

	// keyLocks serializes regeneration per (college, branch, semester) so the
	// delete-then-insert replace never interleaves between two writers.
	keyLocks sync.Map
}

// NewTimetableService constructs the timetable service. cache may be nil when
// Redis is not configured.
func NewTimetableService(
	timetables timetableRepository,
	branches branchLookup,
	subjects generationSubjectSource,
	teachers qualifiedTeacherSource,
	cache TimetableCache,
	cacheTTL time.Duration,
	metrics GenerationObserver,
	validate *validator.Validate,
	logger *zap.Logger,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &TimetableService{
		timetables: timetables,
		branches:   branches,
		subjects:   subjects,
		teachers:   teachers,
		cache:      cache,
		cacheTTL:   cacheTTL,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
	}
}

func generationKey(collegeID, branchID string, semester int) string {
	return fmt.Sprintf("%s:%s:%d", collegeID, branchID, semester)
}

func (s *TimetableService) lockKey(key string) *sync.Mutex {
	mu, _ := s.keyLocks.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Generate builds a fresh timetable for the branch semester and replaces any
// stored one. Concurrent calls for the same key are serialized.
func (s *TimetableService) Generate(ctx context.Context, collegeID, createdBy string, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}

	branch, err := s.branches.FindByID(ctx, collegeID, req.BranchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "branch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load branch")
	}

	subjects, err := s.subjects.ListForGeneration(ctx, collegeID, req.BranchID, req.Semester, req.SubjectIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	if len(subjects) != len(req.SubjectIDs) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "one or more subjects do not belong to the branch semester")
	}

	teachers, err := s.teachers.ListQualified(ctx, collegeID, req.BranchID, req.SubjectIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}

	started := time.Now()
	result := generateWeeklySchedule(subjects, teachers, branch)
	unmetPeriods := 0
	for _, u := range result.Unmet {
		unmetPeriods += u.Remaining
	}

	timetable := &models.Timetable{
		CollegeID: collegeID,
		BranchID:  req.BranchID,
		Semester:  req.Semester,
		Schedule:  result.Schedule,
		CreatedBy: createdBy,
	}

	key := generationKey(collegeID, req.BranchID, req.Semester)
	mu := s.lockKey(key)
	mu.Lock()
	err = s.timetables.Replace(ctx, timetable)
	mu.Unlock()
	if s.metrics != nil {
		s.metrics.ObserveGeneration(time.Since(started), unmetPeriods, err != nil)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store timetable")
	}

	s.invalidateViews(ctx, collegeID, req.BranchID)

	s.logger.Info("timetable generated",
		zap.String("timetable_id", timetable.ID),
		zap.String("branch_id", req.BranchID),
		zap.Int("semester", req.Semester),
		zap.Int("subjects", len(subjects)),
		zap.Int("teachers", len(teachers)),
		zap.Int("unmet_subjects", len(result.Unmet)))

	view := s.buildView(timetable, subjects, teachers)
	return &dto.GenerateTimetableResponse{Timetable: view, Unmet: result.Unmet}, nil
}

// GetByKey serves the resolved timetable for a branch semester, preferring the
// cache when available.
func (s *TimetableService) GetByKey(ctx context.Context, collegeID, branchID string, semester int) (*dto.TimetableView, error) {
	cacheKey := fmt.Sprintf("timetable:view:%s:%s:%d", collegeID, branchID, semester)
	if s.cache != nil {
		var cached dto.TimetableView
		err := s.cache.Get(ctx, cacheKey, &cached)
		if s.metrics != nil {
			s.metrics.RecordCacheLookup(err == nil)
		}
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("timetable cache read failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}

	timetable, err := s.timetables.FindByKey(ctx, collegeID, branchID, semester)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}

	view, err := s.resolveView(ctx, timetable)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, view, s.cacheTTL); err != nil {
			s.logger.Warn("timetable cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return view, nil
}

// Get serves one timetable by id with references resolved.
func (s *TimetableService) Get(ctx context.Context, collegeID, id string) (*dto.TimetableView, error) {
	timetable, err := s.findByID(ctx, collegeID, id)
	if err != nil {
		return nil, err
	}
	return s.resolveView(ctx, timetable)
}

// Update replaces the stored grid with a manually edited schedule.
func (s *TimetableService) Update(ctx context.Context, collegeID, id string, req dto.UpdateTimetableRequest) (*dto.TimetableView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	timetable, err := s.findByID(ctx, collegeID, id)
	if err != nil {
		return nil, err
	}

	if err := s.timetables.UpdateSchedule(ctx, collegeID, id, req.Schedule); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update timetable")
	}
	timetable.Schedule = req.Schedule

	s.invalidateViews(ctx, collegeID, timetable.BranchID)
	return s.resolveView(ctx, timetable)
}

// Delete removes a timetable.
func (s *TimetableService) Delete(ctx context.Context, collegeID, id string) error {
	timetable, err := s.findByID(ctx, collegeID, id)
	if err != nil {
		return err
	}
	if err := s.timetables.Delete(ctx, collegeID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable")
	}
	s.invalidateViews(ctx, collegeID, timetable.BranchID)
	return nil
}

// Export renders the resolved timetable as CSV or PDF.
func (s *TimetableService) Export(ctx context.Context, collegeID, id string, format ExportFormat) (*ExportResult, error) {
	view, err := s.Get(ctx, collegeID, id)
	if err != nil {
		return nil, err
	}

	dataset := buildTimetableDataset(view)
	stamp := time.Now().UTC().Format("20060102")

	switch format {
	case ExportFormatCSV:
		content, err := export.NewCSVExporter().Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("timetable_sem%d_%s.csv", view.Semester, stamp),
			ContentType: "text/csv",
			Content:     content,
		}, nil
	case ExportFormatPDF:
		title := fmt.Sprintf("Weekly Timetable - Semester %d", view.Semester)
		content, err := export.NewPDFExporter().Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("timetable_sem%d_%s.pdf", view.Semester, stamp),
			ContentType: "application/pdf",
			Content:     content,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format: "+string(format))
	}
}

func (s *TimetableService) findByID(ctx context.Context, collegeID, id string) (*models.Timetable, error) {
	timetable, err := s.timetables.FindByID(ctx, collegeID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	return timetable, nil
}

func (s *TimetableService) invalidateViews(ctx context.Context, collegeID, branchID string) {
	if s.cache == nil {
		return
	}
	pattern := fmt.Sprintf("timetable:view:%s:%s:*", collegeID, branchID)
	if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("timetable cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
	}
}

// resolveView re-fetches the referenced subjects and teachers so stored ids can
// be rendered with current display names.
func (s *TimetableService) resolveView(ctx context.Context, timetable *models.Timetable) (*dto.TimetableView, error) {
	subjectIDs := referencedSubjectIDs(timetable.Schedule)

	var subjects []models.Subject
	var teachers []models.Teacher
	var err error
	if len(subjectIDs) > 0 {
		subjects, err = s.subjects.ListForGeneration(ctx, timetable.CollegeID, timetable.BranchID, timetable.Semester, subjectIDs)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve subjects")
		}
		teachers, err = s.teachers.ListQualified(ctx, timetable.CollegeID, timetable.BranchID, subjectIDs)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve teachers")
		}
	}

	return s.buildView(timetable, subjects, teachers), nil
}

func (s *TimetableService) buildView(timetable *models.Timetable, subjects []models.Subject, teachers []models.Teacher) *dto.TimetableView {
	subjectByID := make(map[string]*models.Subject, len(subjects))
	for i := range subjects {
		subjectByID[subjects[i].ID] = &subjects[i]
	}
	teacherByID := make(map[string]*models.Teacher, len(teachers))
	for i := range teachers {
		teacherByID[teachers[i].ID] = &teachers[i]
	}

	days := make([]dto.DayView, 0, len(timetable.Schedule))
	for _, day := range timetable.Schedule {
		periods := make([]dto.EntryView, 0, len(day.Periods))
		for _, entry := range day.Periods {
			view := dto.EntryView{
				Period:    entry.Period,
				SubjectID: entry.SubjectID,
				TeacherID: entry.TeacherID,
				Classroom: entry.Classroom,
				StartTime: entry.StartTime,
				EndTime:   entry.EndTime,
				IsBreak:   entry.IsBreak,
				BreakType: entry.BreakType,
			}
			if entry.SubjectID != nil {
				if subject, ok := subjectByID[*entry.SubjectID]; ok {
					view.SubjectName = subject.Name
					view.SubjectCode = subject.Code
				}
			}
			if entry.TeacherID != nil {
				if teacher, ok := teacherByID[*entry.TeacherID]; ok {
					view.TeacherName = teacher.Name
				}
			}
			periods = append(periods, view)
		}
		days = append(days, dto.DayView{Day: day.Day, Periods: periods})
	}

	return &dto.TimetableView{
		ID:        timetable.ID,
		BranchID:  timetable.BranchID,
		Semester:  timetable.Semester,
		Schedule:  days,
		CreatedBy: timetable.CreatedBy,
	}
}

func referencedSubjectIDs(schedule models.WeekSchedule) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, day := range schedule {
		for _, entry := range day.Periods {
			if entry.SubjectID != nil && !seen[*entry.SubjectID] {
				seen[*entry.SubjectID] = true
				ids = append(ids, *entry.SubjectID)
			}
		}
	}
	return ids
}

// buildTimetableDataset flattens the resolved grid into a days-by-periods
// table for export.
func buildTimetableDataset(view *dto.TimetableView) export.Dataset {
	maxPeriods := 0
	for _, day := range view.Schedule {
		if len(day.Periods) > maxPeriods {
			maxPeriods = len(day.Periods)
		}
	}

	headers := make([]string, 0, maxPeriods+1)
	headers = append(headers, "Day")
	for p := 1; p <= maxPeriods; p++ {
		headers = append(headers, fmt.Sprintf("Period %d", p))
	}

	rows := make([]map[string]string, 0, len(view.Schedule))
	for _, day := range view.Schedule {
		row := map[string]string{"Day": day.Day}
		for _, entry := range day.Periods {
			row[fmt.Sprintf("Period %d", entry.Period)] = formatEntryCell(entry)
		}
		rows = append(rows, row)
	}

	return export.Dataset{Headers: headers, Rows: rows}
}

func formatEntryCell(entry dto.EntryView) string {
	if entry.IsBreak {
		if entry.BreakType != "" {
			return string(entry.BreakType)
		}
		return string(models.BreakTypeFree)
	}
	parts := make([]string, 0, 3)
	if entry.SubjectName != "" {
		parts = append(parts, entry.SubjectName)
	} else if entry.SubjectID != nil {
		parts = append(parts, *entry.SubjectID)
	}
	if entry.TeacherName != "" {
		parts = append(parts, entry.TeacherName)
	}
	if entry.Classroom != nil {
		parts = append(parts, *entry.Classroom)
	}
	return strings.Join(parts, " / ")
}
