package dto

import (
	"time"

	"cinelist/internal/microservices/http-api/models"
)

// CreateRecommendationDTO sends a movie or show to another user, addressed
// by id or by username.
type CreateRecommendationDTO struct {
	ReceiverID       string `json:"receiver_id" binding:"required_without=ReceiverUsername"`
	ReceiverUsername string `json:"receiver_username" binding:"required_without=ReceiverID"`
	ExternalID       int64  `json:"external_id" binding:"required,gt=0"`
	MediaKind        string `json:"media_kind" binding:"required,oneof=movie tv"`
	Message          string `json:"message" binding:"max=500"`
}

type ProfileResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// RecommendationResponse is one inbox row with its thread and rating joined.
type RecommendationResponse struct {
	ID         string            `json:"id"`
	SenderID   string            `json:"sender_id"`
	ReceiverID string            `json:"receiver_id"`
	ExternalID int64             `json:"external_id"`
	MediaKind  string            `json:"media_kind"`
	Message    string            `json:"message,omitempty"`
	IsRead     bool              `json:"is_read"`
	CreatedAt  time.Time         `json:"created_at"`
	Sender     *ProfileResponse  `json:"sender,omitempty"`
	Receiver   *ProfileResponse  `json:"receiver,omitempty"`
	Comments   []CommentResponse `json:"comments"`
	Rating     *RatingResponse   `json:"rating,omitempty"`
}

// DeleteRecommendationResponse carries the soft-delete outcome
type DeleteRecommendationResponse struct {
	Deleted bool `json:"deleted"`
}

func profile(u *models.User) *ProfileResponse {
	if u == nil {
		return nil
	}
	return &ProfileResponse{ID: u.ID, Username: u.Username}
}

// FromModelToRecommendationResponse converts a recommendation with its preloads
func FromModelToRecommendationResponse(rec *models.Recommendation) RecommendationResponse {
	out := RecommendationResponse{
		ID:         rec.ID,
		SenderID:   rec.SenderID,
		ReceiverID: rec.ReceiverID,
		ExternalID: rec.ExternalID,
		MediaKind:  rec.MediaKind,
		IsRead:     rec.IsRead,
		CreatedAt:  rec.CreatedAt,
		Sender:     profile(rec.Sender),
		Receiver:   profile(rec.Receiver),
		Comments:   make([]CommentResponse, 0, len(rec.Comments)),
		Rating:     FromModelToRatingResponse(rec.Rating),
	}
	if rec.Message != nil {
		out.Message = *rec.Message
	}
	for i := range rec.Comments {
		out.Comments = append(out.Comments, FromModelToCommentResponse(&rec.Comments[i]))
	}
	return out
}

// FromModelsToRecommendationResponses converts a list, never returning nil
func FromModelsToRecommendationResponses(recs []models.Recommendation) []RecommendationResponse {
	out := make([]RecommendationResponse, 0, len(recs))
	for i := range recs {
		out = append(out, FromModelToRecommendationResponse(&recs[i]))
	}
	return out
}
