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

type branchRepository interface {
	List(ctx context.Context, collegeID string, filter models.BranchFilter) ([]models.Branch, int, error)
	FindByID(ctx context.Context, collegeID, id string) (*models.Branch, error)
	Create(ctx context.Context, branch *models.Branch) error
	Update(ctx context.Context, branch *models.Branch) error
	Delete(ctx context.Context, collegeID, id string) error
}

// ClassroomRequest is one room in a branch payload.
type ClassroomRequest struct {
	Name     string `json:"name" validate:"required"`
	Capacity int    `json:"capacity" validate:"required,min=1"`
	Type     string `json:"type" validate:"omitempty,oneof=Classroom Lab 'Seminar Hall'"`
	Location string `json:"location"`
}

// SaveBranchRequest captures create/update payloads for a branch.
type SaveBranchRequest struct {
	Name             string             `json:"name" validate:"required"`
	Code             string             `json:"code" validate:"required"`
	TotalSemesters   int                `json:"totalSemesters" validate:"omitempty,min=1,max=12"`
	PeriodsPerDay    int                `json:"periodsPerDay" validate:"omitempty,min=1,max=8"`
	LunchStartPeriod int                `json:"lunchStartPeriod" validate:"omitempty,min=1,max=8"`
	LunchEndPeriod   int                `json:"lunchEndPeriod" validate:"omitempty,min=1,max=8"`
	Classrooms       []ClassroomRequest `json:"classrooms" validate:"dive"`
}

// BranchService manages branch records.
type BranchService struct {
	repo      branchRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBranchService constructs a branch service.
func NewBranchService(repo branchRepository, validate *validator.Validate, logger *zap.Logger) *BranchService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BranchService{repo: repo, validator: validate, logger: logger}
}

// List returns branches for the college.
func (s *BranchService) List(ctx context.Context, collegeID string, filter models.BranchFilter) ([]models.Branch, *models.Pagination, error) {
	branches, total, err := s.repo.List(ctx, collegeID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list branches")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return branches, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads one branch.
func (s *BranchService) Get(ctx context.Context, collegeID, id string) (*models.Branch, error) {
	branch, err := s.repo.FindByID(ctx, collegeID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "branch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load branch")
	}
	return branch, nil
}

// Create validates and stores a new branch.
func (s *BranchService) Create(ctx context.Context, collegeID string, req SaveBranchRequest) (*models.Branch, error) {
	branch, err := s.buildBranch(collegeID, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, branch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create branch")
	}
	s.logger.Info("branch created", zap.String("branch_id", branch.ID), zap.String("code", branch.Code))
	return branch, nil
}

// Update validates and modifies an existing branch.
func (s *BranchService) Update(ctx context.Context, collegeID, id string, req SaveBranchRequest) (*models.Branch, error) {
	existing, err := s.Get(ctx, collegeID, id)
	if err != nil {
		return nil, err
	}

	branch, err := s.buildBranch(collegeID, req)
	if err != nil {
		return nil, err
	}
	branch.ID = existing.ID
	branch.CreatedAt = existing.CreatedAt

	if err := s.repo.Update(ctx, branch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update branch")
	}
	return branch, nil
}

// Delete removes a branch.
func (s *BranchService) Delete(ctx context.Context, collegeID, id string) error {
	if _, err := s.Get(ctx, collegeID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, collegeID, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete branch")
	}
	return nil
}

func (s *BranchService) buildBranch(collegeID string, req SaveBranchRequest) (*models.Branch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid branch payload")
	}

	branch := &models.Branch{
		CollegeID:      collegeID,
		Name:           req.Name,
		Code:           req.Code,
		TotalSemesters: req.TotalSemesters,
		PeriodsPerDay:  req.PeriodsPerDay,
		LunchBreak:     models.LunchBreak{StartPeriod: req.LunchStartPeriod, EndPeriod: req.LunchEndPeriod},
	}
	if branch.TotalSemesters == 0 {
		branch.TotalSemesters = 8
	}
	if branch.PeriodsPerDay == 0 {
		branch.PeriodsPerDay = 8
	}
	if branch.LunchBreak.StartPeriod == 0 {
		branch.LunchBreak.StartPeriod = 4
	}
	if branch.LunchBreak.EndPeriod == 0 {
		branch.LunchBreak.EndPeriod = 5
	}
	if branch.LunchBreak.StartPeriod > branch.LunchBreak.EndPeriod ||
		branch.LunchBreak.EndPeriod > branch.PeriodsPerDay {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lunch break range must lie within the daily periods")
	}

	rooms := make(models.ClassroomList, 0, len(req.Classrooms))
	for _, room := range req.Classrooms {
		roomType := models.RoomType(room.Type)
		if roomType == "" {
			roomType = models.RoomTypeClassroom
		}
		rooms = append(rooms, models.Classroom{
			Name:     room.Name,
			Capacity: room.Capacity,
			Type:     roomType,
			Location: room.Location,
		})
	}
	branch.Classrooms = rooms

	return branch, nil
}
