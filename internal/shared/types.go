package shared

import (
	"encoding/json"
	"time"
)

// types shared between the API server and its clients:
// 1st: auth claims carried in access tokens
// 2nd: the realtime change-event envelope

type AuthClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// Tables that emit change events.
const (
	TableRecommendations = "recommendations"
	TableComments        = "recommendation_comments"
)

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeDelete ChangeType = "DELETE"
)

// ChangeEvent describes one row change. Record holds the new row for
// INSERT; OldRecord holds at least the primary key for DELETE.
// Audience lists the user ids allowed to see the event.
type ChangeEvent struct {
	Table           string          `json:"table"`
	Type            ChangeType      `json:"type"`
	Record          json.RawMessage `json:"record,omitempty"`
	OldRecord       json.RawMessage `json:"old_record,omitempty"`
	Audience        []string        `json:"audience,omitempty"`
	CommitTimestamp time.Time       `json:"commit_timestamp"`
}

// RowKey is the minimal payload of OldRecord.
type RowKey struct {
	ID string `json:"id"`
}
