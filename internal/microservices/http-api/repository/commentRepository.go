package repository

import (
	"context"
	"fmt"

	"cinelist/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

type CommentRepository interface {
	Create(ctx context.Context, comment *models.RecommendationComment) error
	GetByID(ctx context.Context, commentID string) (*models.RecommendationComment, error)
	Delete(ctx context.Context, commentID string) error
	MarkReadForViewer(ctx context.Context, recID, viewerID string) (int64, error)
}

type commentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.RecommendationComment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, commentID string) (*models.RecommendationComment, error) {
	var comment models.RecommendationComment
	if err := r.db.WithContext(ctx).First(&comment, "id = ?", commentID).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// Delete removes a comment; authorization is the service's job.
func (r *commentRepository) Delete(ctx context.Context, commentID string) error {
	result := r.db.WithContext(ctx).Where("id = ?", commentID).Delete(&models.RecommendationComment{})
	if result.Error != nil {
		return fmt.Errorf("delete comment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkReadForViewer marks every comment on recID not written by viewerID read.
func (r *commentRepository) MarkReadForViewer(ctx context.Context, recID, viewerID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.RecommendationComment{}).
		Where("recommendation_id = ? AND user_id <> ? AND is_read = ?", recID, viewerID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, fmt.Errorf("mark comments read: %w", res.Error)
	}
	return res.RowsAffected, nil
}
