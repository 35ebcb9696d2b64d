package inbox

// Pure state transitions. None of them mutate their input; changed
// records are copied so snapshots handed to readers stay stable.

// UnreadCount is the badge value: unread received recommendations plus
// unread comments written by someone other than the viewer, on either side.
// Recommendation read state and comment read state are independent.
func UnreadCount(sent, received []Recommendation, viewerID string) int {
	count := 0
	for i := range received {
		if !received[i].IsRead {
			count++
		}
	}
	count += unreadComments(sent, viewerID)
	count += unreadComments(received, viewerID)
	return count
}

func unreadComments(recs []Recommendation, viewerID string) int {
	count := 0
	for i := range recs {
		for _, c := range recs[i].Comments {
			if c.UserID != viewerID && !c.IsRead {
				count++
			}
		}
	}
	return count
}

// ApplyNewComment appends c to the recommendation it belongs to. A comment
// whose id is already present is ignored, so replays do not duplicate.
func ApplyNewComment(recs []Recommendation, c Comment) []Recommendation {
	return updateByID(recs, c.RecommendationID, func(r *Recommendation) bool {
		for _, existing := range r.Comments {
			if existing.ID == c.ID {
				return false
			}
		}
		comments := make([]Comment, 0, len(r.Comments)+1)
		comments = append(comments, r.Comments...)
		r.Comments = append(comments, c)
		return true
	})
}

// ApplyCommentDeletion drops commentID from recID's thread.
func ApplyCommentDeletion(recs []Recommendation, recID, commentID string) []Recommendation {
	return updateByID(recs, recID, func(r *Recommendation) bool {
		kept := make([]Comment, 0, len(r.Comments))
		for _, c := range r.Comments {
			if c.ID != commentID {
				kept = append(kept, c)
			}
		}
		if len(kept) == len(r.Comments) {
			return false
		}
		r.Comments = kept
		return true
	})
}

// ApplyDeletion removes recID. Removing an absent id returns recs as is.
func ApplyDeletion(recs []Recommendation, recID string) []Recommendation {
	idx := indexOf(recs, recID)
	if idx < 0 {
		return recs
	}
	out := make([]Recommendation, 0, len(recs)-1)
	out = append(out, recs[:idx]...)
	return append(out, recs[idx+1:]...)
}

// ApplyRating stores rating on its recommendation and marks it read.
func ApplyRating(recs []Recommendation, rating Rating) []Recommendation {
	return updateByID(recs, rating.RecommendationID, func(r *Recommendation) bool {
		stored := rating
		r.Rating = &stored
		r.IsRead = true
		return true
	})
}

// ApplyRead marks recID read.
func ApplyRead(recs []Recommendation, recID string) []Recommendation {
	return updateByID(recs, recID, func(r *Recommendation) bool {
		if r.IsRead {
			return false
		}
		r.IsRead = true
		return true
	})
}

// ApplyAllRead marks every recommendation in recs read.
func ApplyAllRead(recs []Recommendation) []Recommendation {
	out := make([]Recommendation, len(recs))
	copy(out, recs)
	for i := range out {
		out[i].IsRead = true
	}
	return out
}

// ApplyCommentsRead marks every comment on recID not written by viewerID read.
func ApplyCommentsRead(recs []Recommendation, recID, viewerID string) []Recommendation {
	return updateByID(recs, recID, func(r *Recommendation) bool {
		changed := false
		comments := make([]Comment, len(r.Comments))
		copy(comments, r.Comments)
		for i := range comments {
			if comments[i].UserID != viewerID && !comments[i].IsRead {
				comments[i].IsRead = true
				changed = true
			}
		}
		if changed {
			r.Comments = comments
		}
		return changed
	})
}

// updateByID applies fn to a copy of the record with the given id and
// returns a new slice when fn reports a change.
func updateByID(recs []Recommendation, id string, fn func(*Recommendation) bool) []Recommendation {
	idx := indexOf(recs, id)
	if idx < 0 {
		return recs
	}
	rec := recs[idx]
	if !fn(&rec) {
		return recs
	}
	out := make([]Recommendation, len(recs))
	copy(out, recs)
	out[idx] = rec
	return out
}

func indexOf(recs []Recommendation, id string) int {
	for i := range recs {
		if recs[i].ID == id {
			return i
		}
	}
	return -1
}

func findByID(recs []Recommendation, id string) (Recommendation, bool) {
	if idx := indexOf(recs, id); idx >= 0 {
		return recs[idx], true
	}
	return Recommendation{}, false
}

// cloneRecs deep-copies the slices inside each record.
func cloneRecs(recs []Recommendation) []Recommendation {
	if recs == nil {
		return nil
	}
	out := make([]Recommendation, len(recs))
	for i, r := range recs {
		if r.Comments != nil {
			r.Comments = append([]Comment(nil), r.Comments...)
		}
		if r.Rating != nil {
			rating := *r.Rating
			r.Rating = &rating
		}
		if r.Sender != nil {
			p := *r.Sender
			r.Sender = &p
		}
		if r.Receiver != nil {
			p := *r.Receiver
			r.Receiver = &p
		}
		out[i] = r
	}
	return out
}
