package inbox

import (
	"context"
	"encoding/json"
	"errors"

	"cinelist/internal/shared"
)

// Event is a realtime row change.
type Event = shared.ChangeEvent

// Subscribe attaches the store to its feed for the current user. The
// returned func must be called on sign-out or teardown so events stop
// landing in a defunct store.
func (s *Store) Subscribe(ctx context.Context) (unsubscribe func(), err error) {
	if s.feed == nil {
		return nil, ErrNoFeed
	}
	userID := s.viewer()
	if userID == "" {
		return nil, errors.New("inbox: subscribe requires a signed-in user")
	}
	return s.feed.Subscribe(ctx, userID, func(ev Event) {
		s.HandleEvent(ctx, ev)
	})
}

// HandleEvent merges one pushed change into the store.
//
//   - comment INSERT by someone else: appended like AddComment would.
//   - comment INSERT by the viewer: echo of a local action, ignored.
//   - recommendation DELETE: removed from both sides, idempotent.
//   - recommendation INSERT: forced refetch, since the new row needs
//     server-side joins (sender profile).
func (s *Store) HandleEvent(ctx context.Context, ev Event) {
	userID := s.viewer()
	if userID == "" {
		return
	}

	switch ev.Table {
	case shared.TableComments:
		if ev.Type != shared.ChangeInsert {
			return
		}
		var c Comment
		if err := json.Unmarshal(ev.Record, &c); err != nil {
			s.logger.Warn("realtime_bad_comment", "error", err)
			return
		}
		if c.UserID == userID {
			return
		}
		s.apply(userID, func(st *State) {
			st.Sent = ApplyNewComment(st.Sent, c)
			st.Received = ApplyNewComment(st.Received, c)
		})

	case shared.TableRecommendations:
		switch ev.Type {
		case shared.ChangeInsert:
			s.FetchRecommendations(ctx, true)
		case shared.ChangeDelete:
			raw := ev.OldRecord
			if len(raw) == 0 {
				raw = ev.Record
			}
			var key shared.RowKey
			if err := json.Unmarshal(raw, &key); err != nil || key.ID == "" {
				s.logger.Warn("realtime_bad_delete", "error", err)
				return
			}
			s.apply(userID, func(st *State) {
				st.Sent = ApplyDeletion(st.Sent, key.ID)
				st.Received = ApplyDeletion(st.Received, key.ID)
			})
		}

	default:
		s.logger.Debug("realtime_event_ignored", "table", ev.Table, "type", ev.Type)
	}
}
