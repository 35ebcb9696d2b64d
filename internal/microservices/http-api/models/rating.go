package models

import "time"

// Rating is keyed by recommendation: one score per recommendation, set by the receiver.
type Rating struct {
	RecommendationID string    `gorm:"primaryKey;type:uuid" json:"recommendation_id"`
	Score            int       `gorm:"not null;check:score >= 0 AND score <= 10" json:"score"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Rating) TableName() string {
	return "ratings"
}
