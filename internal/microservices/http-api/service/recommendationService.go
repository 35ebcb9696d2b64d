package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"cinelist/internal/microservices/http-api/dto"
	"cinelist/internal/microservices/http-api/models"
	"cinelist/internal/microservices/http-api/repository"
	"cinelist/internal/microservices/realtime"
	"cinelist/internal/shared"

	"gorm.io/gorm"
)

const MaxMessageLength = 500

type RecommendationService interface {
	ListSent(ctx context.Context, userID string) ([]dto.RecommendationResponse, error)
	ListReceived(ctx context.Context, userID string) ([]dto.RecommendationResponse, error)
	Create(ctx context.Context, senderID string, req dto.CreateRecommendationDTO) (*dto.RecommendationResponse, error)
	// Delete hides the recommendation from userID's side. false means nothing changed.
	Delete(ctx context.Context, recID, userID string) (bool, error)
	MarkRead(ctx context.Context, recID, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type recommendationService struct {
	recRepo   repository.RecommendationRepository
	userRepo  repository.UserRepository
	publisher realtime.Publisher
	logger    *slog.Logger
}

func NewRecommendationService(
	recRepo repository.RecommendationRepository,
	userRepo repository.UserRepository,
	publisher realtime.Publisher,
	logger *slog.Logger,
) RecommendationService {
	return &recommendationService{
		recRepo:   recRepo,
		userRepo:  userRepo,
		publisher: publisher,
		logger:    logger.With("component", "recommendation_service"),
	}
}

func (s *recommendationService) ListSent(ctx context.Context, userID string) ([]dto.RecommendationResponse, error) {
	recs, err := s.recRepo.ListSent(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.FromModelsToRecommendationResponses(recs), nil
}

func (s *recommendationService) ListReceived(ctx context.Context, userID string) ([]dto.RecommendationResponse, error) {
	recs, err := s.recRepo.ListReceived(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.FromModelsToRecommendationResponses(recs), nil
}

// Create stores a new recommendation and notifies the receiver.
func (s *recommendationService) Create(ctx context.Context, senderID string, req dto.CreateRecommendationDTO) (*dto.RecommendationResponse, error) {
	if req.MediaKind != "movie" && req.MediaKind != "tv" {
		return nil, fmt.Errorf("%w: media_kind must be movie or tv", ErrInvalidInput)
	}
	if req.ExternalID <= 0 {
		return nil, fmt.Errorf("%w: external_id must be positive", ErrInvalidInput)
	}
	message := strings.TrimSpace(req.Message)
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return nil, fmt.Errorf("%w: message longer than %d characters", ErrInvalidInput, MaxMessageLength)
	}

	receiver, err := s.resolveReceiver(ctx, req)
	if err != nil {
		return nil, err
	}
	if receiver.ID == senderID {
		return nil, ErrSelfRecommendation
	}

	rec := &models.Recommendation{
		SenderID:   senderID,
		ReceiverID: receiver.ID,
		ExternalID: req.ExternalID,
		MediaKind:  req.MediaKind,
	}
	if message != "" {
		rec.Message = &message
	}
	if err := s.recRepo.Create(ctx, rec); err != nil {
		return nil, err
	}

	created, err := s.recRepo.GetByID(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	resp := dto.FromModelToRecommendationResponse(created)

	s.publish(ctx, shared.TableRecommendations, shared.ChangeInsert, resp, receiver.ID)
	return &resp, nil
}

func (s *recommendationService) resolveReceiver(ctx context.Context, req dto.CreateRecommendationDTO) (*models.User, error) {
	var (
		user *models.User
		err  error
	)
	switch {
	case req.ReceiverID != "":
		user, err = s.userRepo.FindByID(ctx, req.ReceiverID)
	case req.ReceiverUsername != "":
		user, err = s.userRepo.FindByUsername(ctx, req.ReceiverUsername)
	default:
		return nil, fmt.Errorf("%w: receiver is required", ErrInvalidInput)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: receiver", ErrNotFound)
	}
	return user, err
}

func (s *recommendationService) Delete(ctx context.Context, recID, userID string) (bool, error) {
	if !validID(recID) {
		return false, nil
	}
	res, err := s.recRepo.SoftDelete(ctx, recID, userID)
	if err != nil {
		return false, err
	}
	if !res.Deleted {
		return false, nil
	}

	// once purged the counterpart's other devices must drop it too
	audience := []string{userID}
	if res.Purged {
		audience = append(audience, res.Recommendation.Counterpart(userID))
	}
	s.publish(ctx, shared.TableRecommendations, shared.ChangeDelete, shared.RowKey{ID: recID}, audience...)

	s.logger.Info("recommendation_deleted", "recommendation_id", recID, "user_id", userID, "purged", res.Purged)
	return true, nil
}

func (s *recommendationService) MarkRead(ctx context.Context, recID, userID string) error {
	if !validID(recID) {
		return ErrNotFound
	}
	ok, err := s.recRepo.MarkRead(ctx, recID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *recommendationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.recRepo.MarkAllRead(ctx, userID)
}

// publish is fire-and-forget: the write already committed and clients
// reconcile on their next fetch.
func (s *recommendationService) publish(ctx context.Context, table string, typ shared.ChangeType, row any, audience ...string) {
	publishChange(ctx, s.publisher, s.logger, table, typ, row, audience...)
}

func publishChange(ctx context.Context, pub realtime.Publisher, logger *slog.Logger, table string, typ shared.ChangeType, row any, audience ...string) {
	if pub == nil {
		return
	}
	ev, err := realtime.NewEvent(table, typ, row, audience...)
	if err == nil {
		err = pub.Publish(ctx, ev)
	}
	if err != nil {
		logger.Warn("publish_change_failed", "table", table, "type", typ, "error", err)
	}
}
