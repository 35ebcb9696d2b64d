package repository

import (
	"context"
	"fmt"
	"time"

	"cinelist/internal/microservices/http-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RatingRepository interface {
	// UpsertAndMarkRead writes the score for recID (insert or overwrite)
	// and sets the recommendation's is_read in the same transaction.
	UpsertAndMarkRead(ctx context.Context, recID string, score int) (*models.Rating, error)
	GetByRecommendation(ctx context.Context, recID string) (*models.Rating, error)
}

type ratingRepository struct {
	db *gorm.DB
}

func NewRatingRepository(db *gorm.DB) RatingRepository {
	return &ratingRepository{db: db}
}

func (r *ratingRepository) UpsertAndMarkRead(ctx context.Context, recID string, score int) (*models.Rating, error) {
	rating := &models.Rating{
		RecommendationID: recID,
		Score:            score,
		UpdatedAt:        time.Now().UTC(),
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "recommendation_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "updated_at"}),
		}).Create(rating).Error; err != nil {
			return err
		}
		return tx.Model(&models.Recommendation{}).
			Where("id = ?", recID).
			Update("is_read", true).Error
	})
	if err != nil {
		return nil, fmt.Errorf("upsert rating: %w", err)
	}
	return r.GetByRecommendation(ctx, recID)
}

func (r *ratingRepository) GetByRecommendation(ctx context.Context, recID string) (*models.Rating, error) {
	var rating models.Rating
	if err := r.db.WithContext(ctx).First(&rating, "recommendation_id = ?", recID).Error; err != nil {
		return nil, err
	}
	return &rating, nil
}
