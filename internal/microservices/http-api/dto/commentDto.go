package dto

import (
	"time"

	"cinelist/internal/microservices/http-api/models"
)

// CreateCommentDTO for adding a comment to a recommendation thread
type CreateCommentDTO struct {
	Content string `json:"content" binding:"required,min=1,max=1000"`
}

// CommentResponse mirrors the recommendation_comments row
type CommentResponse struct {
	ID               string    `json:"id"`
	RecommendationID string    `json:"recommendation_id"`
	UserID           string    `json:"user_id"`
	Content          string    `json:"content"`
	IsRead           bool      `json:"is_read"`
	CreatedAt        time.Time `json:"created_at"`
}

// FromModelToCommentResponse converts a comment model to its response DTO
func FromModelToCommentResponse(c *models.RecommendationComment) CommentResponse {
	return CommentResponse{
		ID:               c.ID,
		RecommendationID: c.RecommendationID,
		UserID:           c.UserID,
		Content:          c.Content,
		IsRead:           c.IsRead,
		CreatedAt:        c.CreatedAt,
	}
}

// MarkedReadResponse reports how many rows a read-marking call touched
type MarkedReadResponse struct {
	Updated int64 `json:"updated"`
}
