package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/college-timetable-api/internal/models"
	appErrors "github.com/noah-isme/college-timetable-api/pkg/errors"
)

type mockCollegeRepo struct {
	collegeByEmail *models.College
	collegeByID    *models.College
	exists         bool
	findByEmailErr error
	findByIDErr    error
	existsErr      error
	createErr      error
	created        *models.College
}

func (m *mockCollegeRepo) FindByEmail(ctx context.Context, email string) (*models.College, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	return m.collegeByEmail, nil
}

func (m *mockCollegeRepo) FindByID(ctx context.Context, id string) (*models.College, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	if m.collegeByID != nil {
		return m.collegeByID, nil
	}
	return m.collegeByEmail, nil
}

func (m *mockCollegeRepo) ExistsByEmailOrCode(ctx context.Context, email, code string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	return m.exists, nil
}

func (m *mockCollegeRepo) Create(ctx context.Context, college *models.College) error {
	if m.createErr != nil {
		return m.createErr
	}
	college.ID = "college-1"
	m.created = college
	return nil
}

func newAuthService(repo *mockCollegeRepo) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		TokenSecret: "test-secret",
		TokenExpiry: time.Hour,
		Issuer:      "college-timetable-api",
	})
}

func hashPassword(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestRegisterIssuesToken(t *testing.T) {
	repo := &mockCollegeRepo{}
	svc := newAuthService(repo)

	resp, err := svc.Register(context.Background(), models.RegisterCollegeRequest{
		Name:      "Institute of Testing",
		CollegeID: "IOT-001",
		Email:     "admin@iot.edu",
		Password:  "super-secret",
	})
	require.NoError(t, err)
	require.NotNil(t, repo.created)

	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "IOT-001", resp.College.CollegeID)
	assert.NotEqual(t, "super-secret", repo.created.PasswordHash)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "college-1", claims.CollegeID)
	assert.Equal(t, "IOT-001", claims.CollegeCode)
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	repo := &mockCollegeRepo{exists: true}
	svc := newAuthService(repo)

	_, err := svc.Register(context.Background(), models.RegisterCollegeRequest{
		Name:      "Institute of Testing",
		CollegeID: "IOT-001",
		Email:     "admin@iot.edu",
		Password:  "super-secret",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestRegisterRejectsInvalidPayload(t *testing.T) {
	svc := newAuthService(&mockCollegeRepo{})

	_, err := svc.Register(context.Background(), models.RegisterCollegeRequest{
		Name:      "Institute of Testing",
		CollegeID: "IOT-001",
		Email:     "not-an-email",
		Password:  "short",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLoginSuccess(t *testing.T) {
	repo := &mockCollegeRepo{collegeByEmail: &models.College{
		ID:           "college-1",
		CollegeID:    "IOT-001",
		Name:         "Institute of Testing",
		Email:        "admin@iot.edu",
		PasswordHash: hashPassword(t, "super-secret"),
	}}
	svc := newAuthService(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@iot.edu", Password: "super-secret"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "college-1", resp.College.ID)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := &mockCollegeRepo{collegeByEmail: &models.College{
		ID:           "college-1",
		Email:        "admin@iot.edu",
		PasswordHash: hashPassword(t, "super-secret"),
	}}
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@iot.edu", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginUnknownEmail(t *testing.T) {
	repo := &mockCollegeRepo{findByEmailErr: sql.ErrNoRows}
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@iot.edu", Password: "whatever"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	repo := &mockCollegeRepo{}
	svc := newAuthService(repo)

	resp, err := svc.Register(context.Background(), models.RegisterCollegeRequest{
		Name:      "Institute of Testing",
		CollegeID: "IOT-001",
		Email:     "admin@iot.edu",
		Password:  "super-secret",
	})
	require.NoError(t, err)

	_, err = svc.ValidateToken(resp.AccessToken + "x")
	require.Error(t, err)

	other := NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{TokenSecret: "different", TokenExpiry: time.Hour})
	_, err = other.ValidateToken(resp.AccessToken)
	require.Error(t, err)
}

func TestProfileNotFound(t *testing.T) {
	repo := &mockCollegeRepo{findByIDErr: sql.ErrNoRows}
	svc := newAuthService(repo)

	_, err := svc.Profile(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
