package inbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	viewer = "viewer"
	friend = "friend"
)

func TestUnreadCount_MixedSources(t *testing.T) {
	sent := []Recommendation{
		{ID: "s1", SenderID: viewer, ReceiverID: friend, IsRead: false, Comments: []Comment{
			{ID: "c1", RecommendationID: "s1", UserID: friend, IsRead: false},
		}},
	}
	received := []Recommendation{
		{ID: "r1", SenderID: friend, ReceiverID: viewer, IsRead: false},
		{ID: "r2", SenderID: friend, ReceiverID: viewer, IsRead: true, Comments: []Comment{
			{ID: "c2", RecommendationID: "r2", UserID: friend, IsRead: false},
			{ID: "c3", RecommendationID: "r2", UserID: viewer, IsRead: false},
		}},
	}

	assert.Equal(t, 3, UnreadCount(sent, received, viewer))
}

func TestUnreadCount_SentReadFlagNeverCounts(t *testing.T) {
	sent := []Recommendation{{ID: "1", IsRead: false}}
	received := []Recommendation{{ID: "2", IsRead: false}}

	assert.Equal(t, 1, UnreadCount(sent, received, viewer))
}

func TestApplyNewComment(t *testing.T) {
	recs := []Recommendation{{ID: "a"}, {ID: "b"}}
	c := Comment{ID: "c1", RecommendationID: "b", UserID: friend}

	out := ApplyNewComment(recs, c)
	assert.Len(t, out[1].Comments, 1)
	assert.Empty(t, recs[1].Comments, "input must not be mutated")

	again := ApplyNewComment(out, c)
	assert.Len(t, again[1].Comments, 1, "duplicate ids are ignored")

	missing := ApplyNewComment(recs, Comment{ID: "x", RecommendationID: "zzz"})
	assert.Equal(t, recs, missing)
}

func TestApplyCommentDeletion(t *testing.T) {
	recs := []Recommendation{{ID: "a", Comments: []Comment{{ID: "c1"}, {ID: "c2"}}}}

	out := ApplyCommentDeletion(recs, "a", "c1")
	assert.Equal(t, []Comment{{ID: "c2"}}, out[0].Comments)
	assert.Len(t, recs[0].Comments, 2)

	assert.Equal(t, recs, ApplyCommentDeletion(recs, "a", "nope"))
}

func TestApplyDeletion_Idempotent(t *testing.T) {
	recs := []Recommendation{{ID: "a"}, {ID: "b"}}

	out := ApplyDeletion(recs, "a")
	assert.Equal(t, []Recommendation{{ID: "b"}}, out)

	assert.Equal(t, out, ApplyDeletion(out, "a"))
}

func TestApplyRating_ForcesRead(t *testing.T) {
	recs := []Recommendation{{ID: "a", IsRead: false}}

	out := ApplyRating(recs, Rating{RecommendationID: "a", Score: 7})
	assert.True(t, out[0].IsRead)
	assert.Equal(t, 7, out[0].Rating.Score)
	assert.False(t, recs[0].IsRead)

	out = ApplyRating(out, Rating{RecommendationID: "a", Score: 9})
	assert.Equal(t, 9, out[0].Rating.Score)
}

func TestApplyCommentsRead_OnlyOthers(t *testing.T) {
	recs := []Recommendation{{ID: "a", IsRead: false, Comments: []Comment{
		{ID: "c1", UserID: friend},
		{ID: "c2", UserID: viewer},
	}}}

	out := ApplyCommentsRead(recs, "a", viewer)
	assert.True(t, out[0].Comments[0].IsRead)
	assert.False(t, out[0].Comments[1].IsRead)
	assert.False(t, out[0].IsRead, "recommendation read flag is independent")
	assert.False(t, recs[0].Comments[0].IsRead)
}

func TestApplyReadAndAllRead(t *testing.T) {
	recs := []Recommendation{{ID: "a"}, {ID: "b"}}

	out := ApplyRead(recs, "b")
	assert.False(t, out[0].IsRead)
	assert.True(t, out[1].IsRead)

	all := ApplyAllRead(recs)
	assert.True(t, all[0].IsRead && all[1].IsRead)
	assert.False(t, recs[0].IsRead)
}
