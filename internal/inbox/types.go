package inbox

import (
	"context"
	"time"
)

// MediaKind identifies which catalog an external id belongs to.
type MediaKind string

const (
	MediaMovie MediaKind = "movie"
	MediaTV    MediaKind = "tv"
)

// Valid reports whether k is a known media kind.
func (k MediaKind) Valid() bool {
	return k == MediaMovie || k == MediaTV
}

// Profile is the public part of a user joined onto a recommendation.
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Comment is a threaded reply on a recommendation.
// IsRead is a single shared flag: true once the non-author party has seen it.
type Comment struct {
	ID               string    `json:"id"`
	RecommendationID string    `json:"recommendation_id"`
	UserID           string    `json:"user_id"`
	Content          string    `json:"content"`
	IsRead           bool      `json:"is_read"`
	CreatedAt        time.Time `json:"created_at"`
}

// Rating is the receiver's 0..10 score, at most one per recommendation.
type Rating struct {
	RecommendationID string    `json:"recommendation_id"`
	Score            int       `json:"score"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Recommendation is "sender suggested item X to receiver", enriched with
// its comments, rating, and display metadata.
type Recommendation struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	ExternalID int64     `json:"external_id"`
	MediaKind  MediaKind `json:"media_kind"`
	Message    string    `json:"message,omitempty"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`

	Sender   *Profile  `json:"sender,omitempty"`
	Receiver *Profile  `json:"receiver,omitempty"`
	Comments []Comment `json:"comments"`
	Rating   *Rating   `json:"rating,omitempty"`

	// display enrichment, never part of correctness
	Title      string `json:"title,omitempty"`
	PosterPath string `json:"poster_path,omitempty"`
}

// State is what the presentation layer reads.
type State struct {
	Sent        []Recommendation
	Received    []Recommendation
	UnreadCount int
	LastFetched time.Time // zero until the first successful fetch
	IsLoading   bool
	Error       string
}

// Remote is the data service the store talks to. Every call is scoped to
// the authenticated caller on the server side.
type Remote interface {
	ListSent(ctx context.Context) ([]Recommendation, error)
	ListReceived(ctx context.Context) ([]Recommendation, error)
	InsertComment(ctx context.Context, recID, content string) (*Comment, error)
	DeleteComment(ctx context.Context, recID, commentID string) error
	// SoftDeleteRecommendation returns false when the caller is not a party
	// or the record does not exist.
	SoftDeleteRecommendation(ctx context.Context, recID string) (bool, error)
	// UpsertRating stores the score and marks the recommendation read.
	UpsertRating(ctx context.Context, recID string, score int) (*Rating, error)
	MarkRead(ctx context.Context, recID string) error
	MarkAllRead(ctx context.Context) error
	MarkCommentsRead(ctx context.Context, recID string) error
}

// Identity supplies the current authenticated user. An empty id means
// nobody is signed in.
type Identity interface {
	CurrentUserID() string
}

// IdentityFunc adapts a function to Identity.
type IdentityFunc func() string

func (f IdentityFunc) CurrentUserID() string { return f() }

// Enricher resolves display metadata for a catalog item.
type Enricher interface {
	Lookup(ctx context.Context, kind MediaKind, externalID int64) (title, posterPath string, err error)
}

// Feed delivers realtime change events for the given user. The returned
// func stops delivery and must be called on teardown.
type Feed interface {
	Subscribe(ctx context.Context, userID string, handle func(Event)) (unsubscribe func(), err error)
}
