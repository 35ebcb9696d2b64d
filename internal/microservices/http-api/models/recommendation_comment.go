package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RecommendationComment struct {
	ID               string    `gorm:"primaryKey;type:uuid" json:"id"`
	RecommendationID string    `gorm:"type:uuid;not null;index" json:"recommendation_id"`
	UserID           string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Content          string    `gorm:"type:varchar(1000);not null" json:"content"`
	IsRead           bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (c *RecommendationComment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

func (RecommendationComment) TableName() string {
	return "recommendation_comments"
}
