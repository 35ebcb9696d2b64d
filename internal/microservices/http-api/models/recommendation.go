package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Recommendation is "sender suggested a movie or show to receiver".
// Each side hides it independently through its own deleted flag; the row
// is removed once both flags are set.
type Recommendation struct {
	ID              string    `gorm:"primaryKey;type:uuid" json:"id"`
	SenderID        string    `gorm:"type:uuid;not null;index" json:"sender_id"`
	ReceiverID      string    `gorm:"type:uuid;not null;index" json:"receiver_id"`
	ExternalID      int64     `gorm:"not null" json:"external_id"`
	MediaKind       string    `gorm:"type:varchar(8);not null" json:"media_kind"`
	Message         *string   `gorm:"type:varchar(500)" json:"message,omitempty"`
	IsRead          bool      `gorm:"not null;default:false" json:"is_read"`
	SenderDeleted   bool      `gorm:"not null;default:false" json:"-"`
	ReceiverDeleted bool      `gorm:"not null;default:false" json:"-"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index" json:"created_at"`

	// Associations
	Sender   *User                   `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE;" json:"sender,omitempty"`
	Receiver *User                   `gorm:"foreignKey:ReceiverID;constraint:OnDelete:CASCADE;" json:"receiver,omitempty"`
	Comments []RecommendationComment `gorm:"foreignKey:RecommendationID;constraint:OnDelete:CASCADE;" json:"comments"`
	Rating   *Rating                 `gorm:"foreignKey:RecommendationID;constraint:OnDelete:CASCADE;" json:"rating,omitempty"`
}

func (r *Recommendation) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

func (Recommendation) TableName() string {
	return "recommendations"
}

// IsParty reports whether userID is the sender or the receiver.
func (r *Recommendation) IsParty(userID string) bool {
	return r.SenderID == userID || r.ReceiverID == userID
}

// Counterpart returns the other party's id.
func (r *Recommendation) Counterpart(userID string) string {
	if r.SenderID == userID {
		return r.ReceiverID
	}
	return r.SenderID
}
