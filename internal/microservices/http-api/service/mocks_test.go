package service

import (
	"context"
	"time"

	"cinelist/internal/microservices/http-api/models"
	"cinelist/internal/microservices/http-api/repository"
	"cinelist/internal/shared"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository mocks the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	return m.Called(user).Error(0)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) EmailForUsername(ctx context.Context, username string) (string, error) {
	args := m.Called(username)
	return args.String(0), args.Error(1)
}

func (m *MockUserRepository) TouchLastLogin(ctx context.Context, id string) error {
	return m.Called(id).Error(0)
}

// MockRefreshTokenRepository mocks the RefreshTokenRepository interface
type MockRefreshTokenRepository struct {
	mock.Mock
}

func (m *MockRefreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	return m.Called(token).Error(0)
}

func (m *MockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RefreshToken), args.Error(1)
}

func (m *MockRefreshTokenRepository) Revoke(ctx context.Context, id string) error {
	return m.Called(id).Error(0)
}

func (m *MockRefreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(now)
	return args.Get(0).(int64), args.Error(1)
}

type MockRecommendationRepository struct {
	mock.Mock
}

func (m *MockRecommendationRepository) Create(ctx context.Context, rec *models.Recommendation) error {
	return m.Called(rec).Error(0)
}

func (m *MockRecommendationRepository) GetByID(ctx context.Context, id string) (*models.Recommendation, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Recommendation), args.Error(1)
}

func (m *MockRecommendationRepository) ListSent(ctx context.Context, userID string) ([]models.Recommendation, error) {
	args := m.Called(userID)
	return args.Get(0).([]models.Recommendation), args.Error(1)
}

func (m *MockRecommendationRepository) ListReceived(ctx context.Context, userID string) ([]models.Recommendation, error) {
	args := m.Called(userID)
	return args.Get(0).([]models.Recommendation), args.Error(1)
}

func (m *MockRecommendationRepository) SoftDelete(ctx context.Context, recID, userID string) (*repository.SoftDeleteResult, error) {
	args := m.Called(recID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.SoftDeleteResult), args.Error(1)
}

func (m *MockRecommendationRepository) MarkRead(ctx context.Context, recID, receiverID string) (bool, error) {
	args := m.Called(recID, receiverID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRecommendationRepository) MarkAllRead(ctx context.Context, receiverID string) (int64, error) {
	args := m.Called(receiverID)
	return args.Get(0).(int64), args.Error(1)
}

type MockCommentRepository struct {
	mock.Mock
}

func (m *MockCommentRepository) Create(ctx context.Context, comment *models.RecommendationComment) error {
	return m.Called(comment).Error(0)
}

func (m *MockCommentRepository) GetByID(ctx context.Context, commentID string) (*models.RecommendationComment, error) {
	args := m.Called(commentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RecommendationComment), args.Error(1)
}

func (m *MockCommentRepository) Delete(ctx context.Context, commentID string) error {
	return m.Called(commentID).Error(0)
}

func (m *MockCommentRepository) MarkReadForViewer(ctx context.Context, recID, viewerID string) (int64, error) {
	args := m.Called(recID, viewerID)
	return args.Get(0).(int64), args.Error(1)
}

type MockRatingRepository struct {
	mock.Mock
}

func (m *MockRatingRepository) UpsertAndMarkRead(ctx context.Context, recID string, score int) (*models.Rating, error) {
	args := m.Called(recID, score)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Rating), args.Error(1)
}

func (m *MockRatingRepository) GetByRecommendation(ctx context.Context, recID string) (*models.Rating, error) {
	args := m.Called(recID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Rating), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, ev shared.ChangeEvent) error {
	return m.Called(ev).Error(0)
}
