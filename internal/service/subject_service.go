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

type subjectRepository interface {
	List(ctx context.Context, collegeID string, filter models.SubjectFilter) ([]models.Subject, int, error)
	FindByID(ctx context.Context, collegeID, id string) (*models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, collegeID, id string) error
}

// SaveSubjectRequest captures create/update payloads for a subject.
type SaveSubjectRequest struct {
	BranchID string `json:"branchId" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Code     string `json:"code" validate:"required"`
	Credits  int    `json:"credits" validate:"required,min=1,max=6"`
	Type     string `json:"type" validate:"omitempty,oneof=Theory Practical Lab"`
	Semester int    `json:"semester" validate:"required,min=1,max=12"`
}

// SubjectService manages subject records.
type SubjectService struct {
	repo      subjectRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService constructs a subject service.
func NewSubjectService(repo subjectRepository, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, validator: validate, logger: logger}
}

// List returns subjects for the college.
func (s *SubjectService) List(ctx context.Context, collegeID string, filter models.SubjectFilter) ([]models.Subject, *models.Pagination, error) {
	subjects, total, err := s.repo.List(ctx, collegeID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return subjects, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads one subject.
func (s *SubjectService) Get(ctx context.Context, collegeID, id string) (*models.Subject, error) {
	subject, err := s.repo.FindByID(ctx, collegeID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return subject, nil
}

// Create validates and stores a new subject.
func (s *SubjectService) Create(ctx context.Context, collegeID string, req SaveSubjectRequest) (*models.Subject, error) {
	subject, err := s.buildSubject(collegeID, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	s.logger.Info("subject created", zap.String("subject_id", subject.ID), zap.String("code", subject.Code))
	return subject, nil
}

// Update validates and modifies an existing subject.
func (s *SubjectService) Update(ctx context.Context, collegeID, id string, req SaveSubjectRequest) (*models.Subject, error) {
	existing, err := s.Get(ctx, collegeID, id)
	if err != nil {
		return nil, err
	}

	subject, err := s.buildSubject(collegeID, req)
	if err != nil {
		return nil, err
	}
	subject.ID = existing.ID
	subject.CreatedAt = existing.CreatedAt

	if err := s.repo.Update(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subject")
	}
	return subject, nil
}

// Delete removes a subject.
func (s *SubjectService) Delete(ctx context.Context, collegeID, id string) error {
	if _, err := s.Get(ctx, collegeID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, collegeID, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	return nil
}

func (s *SubjectService) buildSubject(collegeID string, req SaveSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	subject := &models.Subject{
		CollegeID: collegeID,
		BranchID:  req.BranchID,
		Name:      req.Name,
		Code:      req.Code,
		Credits:   req.Credits,
		Type:      models.SubjectType(req.Type),
		Semester:  req.Semester,
	}
	if subject.Type == "" {
		subject.Type = models.SubjectTypeTheory
	}
	return subject, nil
}
