package dto

import (
	"time"

	"cinelist/internal/microservices/http-api/models"
)

// RateRecommendationDTO sets the receiver's score. A pointer so that 0 passes "required".
type RateRecommendationDTO struct {
	Score *int `json:"score" binding:"required,min=0,max=10"`
}

// RatingResponse mirrors the ratings row
type RatingResponse struct {
	RecommendationID string    `json:"recommendation_id"`
	Score            int       `json:"score"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// FromModelToRatingResponse converts a rating model to its response DTO
func FromModelToRatingResponse(r *models.Rating) *RatingResponse {
	if r == nil {
		return nil
	}
	return &RatingResponse{
		RecommendationID: r.RecommendationID,
		Score:            r.Score,
		UpdatedAt:        r.UpdatedAt,
	}
}
