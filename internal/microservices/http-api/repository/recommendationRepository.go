package repository

import (
	"context"
	"errors"
	"fmt"

	"cinelist/internal/microservices/http-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SoftDeleteResult reports what SoftDelete did.
// Deleted is false when the caller is not a party, the row does not exist,
// or the caller's side is already hidden. Purged is true when both sides
// are now hidden and the row was removed.
type SoftDeleteResult struct {
	Deleted        bool
	Purged         bool
	Recommendation *models.Recommendation
}

type RecommendationRepository interface {
	Create(ctx context.Context, rec *models.Recommendation) error
	GetByID(ctx context.Context, id string) (*models.Recommendation, error)
	ListSent(ctx context.Context, userID string) ([]models.Recommendation, error)
	ListReceived(ctx context.Context, userID string) ([]models.Recommendation, error)
	SoftDelete(ctx context.Context, recID, userID string) (*SoftDeleteResult, error)
	MarkRead(ctx context.Context, recID, receiverID string) (bool, error)
	MarkAllRead(ctx context.Context, receiverID string) (int64, error)
}

type recommendationRepository struct {
	db *gorm.DB
}

func NewRecommendationRepository(db *gorm.DB) RecommendationRepository {
	return &recommendationRepository{db: db}
}

func (r *recommendationRepository) Create(ctx context.Context, rec *models.Recommendation) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("create recommendation: %w", err)
	}
	return nil
}

// GetByID loads a recommendation with its sender and receiver profiles.
func (r *recommendationRepository) GetByID(ctx context.Context, id string) (*models.Recommendation, error) {
	var rec models.Recommendation
	if err := r.db.WithContext(ctx).
		Preload("Sender").
		Preload("Receiver").
		First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// withThread preloads everything the inbox renders, comments oldest first.
func withThread(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Sender").
		Preload("Receiver").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Rating")
}

func (r *recommendationRepository) ListSent(ctx context.Context, userID string) ([]models.Recommendation, error) {
	var recs []models.Recommendation
	err := withThread(r.db.WithContext(ctx)).
		Where("sender_id = ? AND sender_deleted = ?", userID, false).
		Order("created_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list sent: %w", err)
	}
	return recs, nil
}

func (r *recommendationRepository) ListReceived(ctx context.Context, userID string) ([]models.Recommendation, error) {
	var recs []models.Recommendation
	err := withThread(r.db.WithContext(ctx)).
		Where("receiver_id = ? AND receiver_deleted = ?", userID, false).
		Order("created_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list received: %w", err)
	}
	return recs, nil
}

// SoftDelete hides the recommendation from userID's side. The check and
// the flag write happen in one transaction with the row locked.
func (r *recommendationRepository) SoftDelete(ctx context.Context, recID, userID string) (*SoftDeleteResult, error) {
	result := &SoftDeleteResult{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.Recommendation
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&rec, "id = ?", recID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		var column string
		switch {
		case rec.SenderID == userID && !rec.SenderDeleted:
			column = "sender_deleted"
			rec.SenderDeleted = true
		case rec.ReceiverID == userID && !rec.ReceiverDeleted:
			column = "receiver_deleted"
			rec.ReceiverDeleted = true
		default:
			return nil
		}

		result.Deleted = true
		result.Recommendation = &rec

		if rec.SenderDeleted && rec.ReceiverDeleted {
			result.Purged = true
			if err := tx.Where("recommendation_id = ?", recID).Delete(&models.RecommendationComment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("recommendation_id = ?", recID).Delete(&models.Rating{}).Error; err != nil {
				return err
			}
			return tx.Delete(&models.Recommendation{}, "id = ?", recID).Error
		}

		return tx.Model(&models.Recommendation{}).Where("id = ?", recID).Update(column, true).Error
	})
	if err != nil {
		return nil, fmt.Errorf("soft delete recommendation: %w", err)
	}
	return result, nil
}

// MarkRead sets is_read on a recommendation received by receiverID.
// Returns false when no such recommendation is visible to the receiver.
func (r *recommendationRepository) MarkRead(ctx context.Context, recID, receiverID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Recommendation{}).
		Where("id = ? AND receiver_id = ? AND receiver_deleted = ?", recID, receiverID, false).
		Update("is_read", true)
	if res.Error != nil {
		return false, fmt.Errorf("mark read: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *recommendationRepository) MarkAllRead(ctx context.Context, receiverID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Recommendation{}).
		Where("receiver_id = ? AND receiver_deleted = ? AND is_read = ?", receiverID, false, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, fmt.Errorf("mark all read: %w", res.Error)
	}
	return res.RowsAffected, nil
}
