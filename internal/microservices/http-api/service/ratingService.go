package service

import (
	"context"
	"fmt"

	"cinelist/internal/microservices/http-api/dto"
	"cinelist/internal/microservices/http-api/repository"
)

const (
	MinScore = 0
	MaxScore = 10
)

type RatingService interface {
	// Rate sets the receiver's score and marks the recommendation read.
	Rate(ctx context.Context, recID, userID string, score int) (*dto.RatingResponse, error)
}

type ratingService struct {
	ratingRepo repository.RatingRepository
	recRepo    repository.RecommendationRepository
}

func NewRatingService(ratingRepo repository.RatingRepository, recRepo repository.RecommendationRepository) RatingService {
	return &ratingService{ratingRepo: ratingRepo, recRepo: recRepo}
}

func (s *ratingService) Rate(ctx context.Context, recID, userID string, score int) (*dto.RatingResponse, error) {
	if score < MinScore || score > MaxScore {
		return nil, fmt.Errorf("%w: score must be between %d and %d", ErrInvalidInput, MinScore, MaxScore)
	}

	rec, err := visibleRecommendation(ctx, s.recRepo, recID, userID)
	if err != nil {
		return nil, err
	}
	if rec.ReceiverID != userID {
		return nil, ErrForbidden
	}

	rating, err := s.ratingRepo.UpsertAndMarkRead(ctx, recID, score)
	if err != nil {
		return nil, err
	}
	return dto.FromModelToRatingResponse(rating), nil
}
