package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	internalmiddleware "github.com/noah-isme/college-timetable-api/internal/middleware"
	"github.com/noah-isme/college-timetable-api/internal/models"
	"github.com/noah-isme/college-timetable-api/internal/service"
)

type fakeTimetableStore struct {
	mu     sync.Mutex
	stored *models.Timetable
}

func (s *fakeTimetableStore) FindByKey(ctx context.Context, collegeID, branchID string, semester int) (*models.Timetable, error) {
	if s.stored == nil {
		return nil, sql.ErrNoRows
	}
	return s.stored, nil
}

func (s *fakeTimetableStore) FindByID(ctx context.Context, collegeID, id string) (*models.Timetable, error) {
	if s.stored == nil || s.stored.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.stored, nil
}

func (s *fakeTimetableStore) Replace(ctx context.Context, timetable *models.Timetable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timetable.ID == "" {
		timetable.ID = "tt-1"
	}
	s.stored = timetable
	return nil
}

func (s *fakeTimetableStore) UpdateSchedule(ctx context.Context, collegeID, id string, schedule models.WeekSchedule) error {
	if s.stored == nil || s.stored.ID != id {
		return sql.ErrNoRows
	}
	s.stored.Schedule = schedule
	return nil
}

func (s *fakeTimetableStore) Delete(ctx context.Context, collegeID, id string) error {
	if s.stored == nil || s.stored.ID != id {
		return sql.ErrNoRows
	}
	s.stored = nil
	return nil
}

type fakeBranchStore struct{ branch *models.Branch }

func (s *fakeBranchStore) FindByID(ctx context.Context, collegeID, id string) (*models.Branch, error) {
	if s.branch == nil {
		return nil, sql.ErrNoRows
	}
	return s.branch, nil
}

type fakeSubjectStore struct{ subjects []models.Subject }

func (s *fakeSubjectStore) ListForGeneration(ctx context.Context, collegeID, branchID string, semester int, ids []string) ([]models.Subject, error) {
	return s.subjects, nil
}

type fakeTeacherStore struct{ teachers []models.Teacher }

func (s *fakeTeacherStore) ListQualified(ctx context.Context, collegeID, branchID string, subjectIDs []string) ([]models.Teacher, error) {
	return s.teachers, nil
}

func testClaims() *models.JWTClaims {
	return &models.JWTClaims{
		CollegeID:   "college-1",
		CollegeCode: "IOT-001",
		Email:       "admin@iot.edu",
		Name:        "Institute of Testing",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "college-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func buildTimetableRouter(t *testing.T, exportsEnabled bool, authed bool) (*gin.Engine, *fakeTimetableStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	periods := make([]int, 8)
	for i := range periods {
		periods[i] = i + 1
	}
	availability := make(models.AvailabilityList, 0, len(models.WeekDays))
	for _, day := range models.WeekDays {
		availability = append(availability, models.AvailabilitySlot{Day: day, Periods: periods})
	}

	store := &fakeTimetableStore{}
	branches := &fakeBranchStore{branch: &models.Branch{
		ID:            "branch-1",
		CollegeID:     "college-1",
		PeriodsPerDay: 8,
		LunchBreak:    models.LunchBreak{StartPeriod: 5, EndPeriod: 5},
		Classrooms:    models.ClassroomList{{Name: "CR-101", Capacity: 60, Type: models.RoomTypeClassroom}},
	}}
	subjects := &fakeSubjectStore{subjects: []models.Subject{{
		ID: "sub-1", CollegeID: "college-1", BranchID: "branch-1",
		Name: "Data Structures", Code: "CS201", Credits: 2,
		Type: models.SubjectTypeTheory, Semester: 3,
	}}}
	teachers := &fakeTeacherStore{teachers: []models.Teacher{{
		ID: "teacher-1", CollegeID: "college-1", BranchID: "branch-1",
		Name: "Prof. Rao", SubjectIDs: models.StringList{"sub-1"}, AvailableSlots: availability,
	}}}

	svc := service.NewTimetableService(store, branches, subjects, teachers, nil, time.Minute, nil, validator.New(), zap.NewNop())
	h := NewTimetableHandler(svc, exportsEnabled)

	r := gin.New()
	if authed {
		r.Use(func(c *gin.Context) {
			c.Set(internalmiddleware.ContextUserKey, testClaims())
			c.Next()
		})
	}
	group := r.Group("/timetables")
	group.POST("/generate", h.Generate)
	group.GET("/branch/:branchId/semester/:semester", h.GetByKey)
	group.GET("/:id", h.Get)
	group.GET("/:id/export", h.Export)
	return r, store
}

func performRequest(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

const generatePayload = `{"branchId":"branch-1","semester":3,"subjects":["sub-1"]}`

func TestGenerateEndpoint(t *testing.T) {
	router, store := buildTimetableRouter(t, true, true)

	req, _ := http.NewRequest(http.MethodPost, "/timetables/generate", bytes.NewBufferString(generatePayload))
	req.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	require.NotNil(t, store.stored)

	var envelope struct {
		Data struct {
			Timetable struct {
				ID       string `json:"id"`
				Schedule []struct {
					Day string `json:"day"`
				} `json:"schedule"`
			} `json:"timetable"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "tt-1", envelope.Data.Timetable.ID)
	assert.Len(t, envelope.Data.Timetable.Schedule, len(models.WeekDays))
}

func TestGenerateEndpointUnauthorized(t *testing.T) {
	router, _ := buildTimetableRouter(t, true, false)

	req, _ := http.NewRequest(http.MethodPost, "/timetables/generate", bytes.NewBufferString(generatePayload))
	req.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, req)

	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestGenerateEndpointRejectsBadPayload(t *testing.T) {
	router, _ := buildTimetableRouter(t, true, true)

	req, _ := http.NewRequest(http.MethodPost, "/timetables/generate", bytes.NewBufferString(`{"semester":0}`))
	req.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetByKeyEndpointRejectsBadSemester(t *testing.T) {
	router, _ := buildTimetableRouter(t, true, true)

	req, _ := http.NewRequest(http.MethodGet, "/timetables/branch/branch-1/semester/zero", nil)
	resp := performRequest(router, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetByKeyEndpointNotFound(t *testing.T) {
	router, _ := buildTimetableRouter(t, true, true)

	req, _ := http.NewRequest(http.MethodGet, "/timetables/branch/branch-1/semester/3", nil)
	resp := performRequest(router, req)

	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestExportEndpointDisabled(t *testing.T) {
	router, _ := buildTimetableRouter(t, false, true)

	genReq, _ := http.NewRequest(http.MethodPost, "/timetables/generate", bytes.NewBufferString(generatePayload))
	genReq.Header.Set("Content-Type", "application/json")
	require.Equal(t, http.StatusCreated, performRequest(router, genReq).Code)

	req, _ := http.NewRequest(http.MethodGet, "/timetables/tt-1/export?format=csv", nil)
	resp := performRequest(router, req)

	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestExportEndpointCSV(t *testing.T) {
	router, _ := buildTimetableRouter(t, true, true)

	genReq, _ := http.NewRequest(http.MethodPost, "/timetables/generate", bytes.NewBufferString(generatePayload))
	genReq.Header.Set("Content-Type", "application/json")
	require.Equal(t, http.StatusCreated, performRequest(router, genReq).Code)

	req, _ := http.NewRequest(http.MethodGet, "/timetables/tt-1/export?format=csv", nil)
	resp := performRequest(router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, resp.Body.String(), "Monday")
}
