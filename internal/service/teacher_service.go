package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/college-timetable-api/internal/models"
	appErrors "github.com/noah-isme/college-timetable-api/pkg/errors"
)

type teacherRepository interface {
	List(ctx context.Context, collegeID string, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, collegeID, id string) (*models.Teacher, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Delete(ctx context.Context, collegeID, id string) error
}

type subjectLookup interface {
	FindByID(ctx context.Context, collegeID, id string) (*models.Subject, error)
}

// AvailabilitySlotRequest declares one day of teacher availability.
type AvailabilitySlotRequest struct {
	Day     string `json:"day" validate:"required,oneof=Monday Tuesday Wednesday Thursday Friday Saturday"`
	Periods []int  `json:"periods" validate:"required,min=1,dive,min=1,max=8"`
}

// SaveTeacherRequest captures create/update payloads for a teacher.
type SaveTeacherRequest struct {
	BranchID       string                    `json:"branchId" validate:"required"`
	Name           string                    `json:"name" validate:"required"`
	Email          string                    `json:"email" validate:"required,email"`
	Phone          string                    `json:"phone" validate:"required"`
	EmployeeID     string                    `json:"employeeId" validate:"required"`
	Designation    string                    `json:"designation" validate:"omitempty,oneof=Lecturer 'Assistant Professor' 'Associate Professor' Professor"`
	Specialization string                    `json:"specialization"`
	SubjectIDs     []string                  `json:"subjects" validate:"dive,required"`
	AvailableSlots []AvailabilitySlotRequest `json:"availableSlots" validate:"dive"`
}

// TeacherService manages teacher records.
type TeacherService struct {
	repo      teacherRepository
	subjects  subjectLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a teacher service.
func NewTeacherService(repo teacherRepository, subjects subjectLookup, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, subjects: subjects, validator: validate, logger: logger}
}

// List returns teachers for the college.
func (s *TeacherService) List(ctx context.Context, collegeID string, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	teachers, total, err := s.repo.List(ctx, collegeID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return teachers, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads one teacher.
func (s *TeacherService) Get(ctx context.Context, collegeID, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, collegeID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

// Create validates and stores a new teacher.
func (s *TeacherService) Create(ctx context.Context, collegeID string, req SaveTeacherRequest) (*models.Teacher, error) {
	teacher, err := s.buildTeacher(ctx, collegeID, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}
	s.logger.Info("teacher created", zap.String("teacher_id", teacher.ID), zap.String("employee_id", teacher.EmployeeID))
	return teacher, nil
}

// Update validates and modifies an existing teacher.
func (s *TeacherService) Update(ctx context.Context, collegeID, id string, req SaveTeacherRequest) (*models.Teacher, error) {
	existing, err := s.Get(ctx, collegeID, id)
	if err != nil {
		return nil, err
	}

	teacher, err := s.buildTeacher(ctx, collegeID, req)
	if err != nil {
		return nil, err
	}
	teacher.ID = existing.ID
	teacher.CreatedAt = existing.CreatedAt

	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	return teacher, nil
}

// Delete removes a teacher.
func (s *TeacherService) Delete(ctx context.Context, collegeID, id string) error {
	if _, err := s.Get(ctx, collegeID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, collegeID, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete teacher")
	}
	return nil
}

func (s *TeacherService) buildTeacher(ctx context.Context, collegeID string, req SaveTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}

	// Qualified subjects must belong to the requesting college.
	for _, subjectID := range req.SubjectIDs {
		if _, err := s.subjects.FindByID(ctx, collegeID, subjectID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "unknown subject reference: "+subjectID)
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify subject")
		}
	}

	seen := make(map[string]bool, len(req.AvailableSlots))
	slots := make(models.AvailabilityList, 0, len(req.AvailableSlots))
	for _, slot := range req.AvailableSlots {
		if seen[slot.Day] {
			return nil, appErrors.Clone(appErrors.ErrValidation, "duplicate availability entry for "+slot.Day)
		}
		seen[slot.Day] = true
		slots = append(slots, models.AvailabilitySlot{Day: slot.Day, Periods: slot.Periods})
	}

	teacher := &models.Teacher{
		CollegeID:      collegeID,
		BranchID:       req.BranchID,
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		EmployeeID:     req.EmployeeID,
		Designation:    req.Designation,
		SubjectIDs:     models.StringList(req.SubjectIDs),
		AvailableSlots: slots,
	}
	if teacher.Designation == "" {
		teacher.Designation = "Assistant Professor"
	}
	if req.Specialization != "" {
		teacher.Specialization = &req.Specialization
	}

	return teacher, nil
}
