// Package inbox holds the recommendation inbox: sent and received
// recommendations, their comment threads and ratings, and the derived
// unread badge count.
//
// Every mutation calls the remote service first and touches local state
// only after the call succeeds. There is no rollback path. Realtime change
// events are merged through the same transition functions, and the unread
// count is recomputed from scratch after every transition.
package inbox

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"cinelist/internal/logging"
)

const (
	// DefaultFetchDebounce gates non-forced refetches.
	DefaultFetchDebounce = 30 * time.Second

	MaxCommentLength = 1000
	MinScore         = 0
	MaxScore         = 10

	// UntitledPlaceholder is shown when metadata lookup fails.
	UntitledPlaceholder = "Sin título"

	enrichConcurrency = 4
)

var ErrNoFeed = errors.New("inbox: no realtime feed configured")

// Option configures a Store.
type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func WithEnricher(e Enricher) Option {
	return func(s *Store) { s.enricher = e }
}

func WithFeed(f Feed) Option {
	return func(s *Store) { s.feed = f }
}

func WithFetchDebounce(d time.Duration) Option {
	return func(s *Store) { s.debounce = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is the inbox state container. One instance is created by the
// composition root and shared by whatever presents it. Safe for
// concurrent use.
type Store struct {
	remote   Remote
	identity Identity
	enricher Enricher
	feed     Feed
	logger   *slog.Logger
	debounce time.Duration
	now      func() time.Time

	mu           sync.Mutex
	state        State
	listeners    map[int]func(State)
	nextListener int

	// fetches counts in-flight fetches. While any is running, record
	// transitions are logged in replay and re-run on top of the fetch
	// result.
	fetches int
	replay  []func(st *State)

	pending   []notification
	notifying bool
}

type notification struct {
	snap      State
	listeners []func(State)
}

func NewStore(remote Remote, identity Identity, opts ...Option) *Store {
	s := &Store{
		remote:    remote,
		identity:  identity,
		logger:    logging.Discard(),
		debounce:  DefaultFetchDebounce,
		now:       time.Now,
		listeners: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "inbox")
	return s
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	st := s.state
	st.Sent = cloneRecs(s.state.Sent)
	st.Received = cloneRecs(s.state.Received)
	return st
}

// Watch registers fn to receive a snapshot after every state change.
// The returned func removes the listener.
func (s *Store) Watch(fn func(State)) (cancel func()) {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// update applies fn to the live state, recomputes the unread count for
// viewerID and queues a snapshot for listeners. Transitions always run
// against the freshest state, so concurrent operations do not overwrite
// each other. Snapshots reach listeners in transition order.
func (s *Store) update(viewerID string, fn func(st *State)) {
	s.mu.Lock()
	fn(&s.state)
	s.state.UnreadCount = UnreadCount(s.state.Sent, s.state.Received, viewerID)
	if len(s.listeners) == 0 {
		s.mu.Unlock()
		return
	}
	listeners := make([]func(State), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.pending = append(s.pending, notification{snap: s.snapshotLocked(), listeners: listeners})
	if s.notifying {
		// the goroutine already draining the queue delivers it
		s.mu.Unlock()
		return
	}
	s.notifying = true
	s.mu.Unlock()
	s.drain()
}

func (s *Store) drain() {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.notifying = false
			s.mu.Unlock()
			return
		}
		n := s.pending[0]
		s.pending[0] = notification{}
		s.pending = s.pending[1:]
		s.mu.Unlock()

		for _, l := range n.listeners {
			l(n.snap)
		}
	}
}

// apply runs a record transition. While a fetch is in flight the
// transition is also kept for replay so the fetch result cannot undo it.
func (s *Store) apply(viewerID string, fn func(st *State)) {
	s.update(viewerID, func(st *State) {
		fn(st)
		if s.fetches > 0 {
			s.replay = append(s.replay, fn)
		}
	})
}

// commit is apply for a successful operation. It clears any error left by
// an earlier failure.
func (s *Store) commit(viewerID string, fn func(st *State)) {
	s.apply(viewerID, func(st *State) {
		fn(st)
		st.Error = ""
	})
}

// endFetchLocked must run under s.mu.
func (s *Store) endFetchLocked(st *State) {
	s.fetches--
	if s.fetches == 0 {
		s.replay = nil
	}
	st.IsLoading = s.fetches > 0
}

// fail records a remote error. Records are left untouched.
func (s *Store) fail(viewerID, op string, err error, attrs ...any) {
	s.logger.Error(op+"_failed", append(attrs, "error", err)...)
	s.update(viewerID, func(st *State) {
		if op == "fetch_recommendations" {
			s.endFetchLocked(st)
		}
		st.Error = err.Error()
	})
}

func (s *Store) viewer() string {
	if s.identity == nil {
		return ""
	}
	return s.identity.CurrentUserID()
}

// FetchRecommendations replaces both collections with the server's view.
// Transitions that landed while the fetch was in flight are re-applied to
// the result. Unless force is set, a call within the debounce window of
// the last successful fetch returns true without touching the network.
func (s *Store) FetchRecommendations(ctx context.Context, force bool) bool {
	userID := s.viewer()
	if userID == "" {
		return false
	}

	s.mu.Lock()
	last := s.state.LastFetched
	s.mu.Unlock()
	if !force && !last.IsZero() && s.now().Sub(last) < s.debounce {
		s.logger.Debug("fetch_skipped_debounce", "since_last", s.now().Sub(last))
		return true
	}

	var mark int
	s.update(userID, func(st *State) {
		s.fetches++
		mark = len(s.replay)
		st.IsLoading = true
		st.Error = ""
	})

	sent, err := s.remote.ListSent(ctx)
	if err != nil {
		s.fail(userID, "fetch_recommendations", err, "direction", "sent")
		return false
	}
	received, err := s.remote.ListReceived(ctx)
	if err != nil {
		s.fail(userID, "fetch_recommendations", err, "direction", "received")
		return false
	}

	s.enrich(ctx, sent, received)

	fetchedAt := s.now()
	s.update(userID, func(st *State) {
		st.Sent = sent
		st.Received = received
		for _, fn := range s.replay[mark:] {
			fn(st)
		}
		st.LastFetched = fetchedAt
		s.endFetchLocked(st)
	})
	s.logger.Debug("fetch_done", "sent", len(sent), "received", len(received))
	return true
}

type mediaKey struct {
	kind MediaKind
	id   int64
}

type mediaInfo struct {
	title  string
	poster string
}

// enrich fills Title/PosterPath in place. Lookup failures fall back to the
// placeholder and are never reported as errors.
func (s *Store) enrich(ctx context.Context, lists ...[]Recommendation) {
	if s.enricher == nil {
		return
	}

	seen := make(map[mediaKey]bool)
	var keys []mediaKey
	for _, recs := range lists {
		for i := range recs {
			k := mediaKey{recs[i].MediaKind, recs[i].ExternalID}
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		sem     = make(chan struct{}, enrichConcurrency)
		results = make(map[mediaKey]mediaInfo, len(keys))
	)
	for _, key := range keys {
		wg.Add(1)
		sem <- struct{}{}
		go func(k mediaKey) {
			defer wg.Done()
			defer func() { <-sem }()

			info := mediaInfo{title: UntitledPlaceholder}
			title, poster, err := s.enricher.Lookup(ctx, k.kind, k.id)
			if err != nil {
				s.logger.Debug("metadata_lookup_failed", "media_kind", k.kind, "external_id", k.id, "error", err)
			} else {
				if title != "" {
					info.title = title
				}
				info.poster = poster
			}
			mu.Lock()
			results[k] = info
			mu.Unlock()
		}(key)
	}
	wg.Wait()

	for _, recs := range lists {
		for i := range recs {
			if info, ok := results[mediaKey{recs[i].MediaKind, recs[i].ExternalID}]; ok {
				recs[i].Title = info.title
				recs[i].PosterPath = info.poster
			}
		}
	}
}

// AddComment posts a comment and appends the stored copy locally. The
// viewer's own comment never counts as unread.
func (s *Store) AddComment(ctx context.Context, recID, content string) bool {
	userID := s.viewer()
	if userID == "" {
		return false
	}
	content = strings.TrimSpace(content)
	if content == "" || len([]rune(content)) > MaxCommentLength {
		s.logger.Warn("comment_rejected", "recommendation_id", recID, "length", len([]rune(content)))
		return false
	}

	comment, err := s.remote.InsertComment(ctx, recID, content)
	if err != nil {
		s.fail(userID, "add_comment", err, "recommendation_id", recID)
		return false
	}
	c := *comment
	if c.RecommendationID == "" {
		c.RecommendationID = recID
	}
	if c.UserID == "" {
		c.UserID = userID
	}

	s.commit(userID, func(st *State) {
		st.Sent = ApplyNewComment(st.Sent, c)
		st.Received = ApplyNewComment(st.Received, c)
	})
	return true
}

// DeleteComment removes a comment. Deleting an unread incoming comment
// lowers the badge.
func (s *Store) DeleteComment(ctx context.Context, recID, commentID string) bool {
	userID := s.viewer()
	if userID == "" {
		return false
	}

	if err := s.remote.DeleteComment(ctx, recID, commentID); err != nil {
		s.fail(userID, "delete_comment", err, "recommendation_id", recID, "comment_id", commentID)
		return false
	}

	s.commit(userID, func(st *State) {
		st.Sent = ApplyCommentDeletion(st.Sent, recID, commentID)
		st.Received = ApplyCommentDeletion(st.Received, recID, commentID)
	})
	return true
}

// DeleteRecommendation hides the recommendation from the caller's side.
// A false answer from the server (not a party, or already gone) leaves
// state untouched.
func (s *Store) DeleteRecommendation(ctx context.Context, recID string) bool {
	userID := s.viewer()
	if userID == "" {
		return false
	}

	ok, err := s.remote.SoftDeleteRecommendation(ctx, recID)
	if err != nil {
		s.fail(userID, "delete_recommendation", err, "recommendation_id", recID)
		return false
	}
	if !ok {
		s.logger.Warn("delete_recommendation_refused", "recommendation_id", recID)
		return false
	}

	s.commit(userID, func(st *State) {
		st.Sent = ApplyDeletion(st.Sent, recID)
		st.Received = ApplyDeletion(st.Received, recID)
	})
	return true
}

// AddRating upserts the receiver's score, which also marks the
// recommendation read.
func (s *Store) AddRating(ctx context.Context, recID string, score int) bool {
	userID := s.viewer()
	if userID == "" {
		return false
	}
	if score < MinScore || score > MaxScore {
		s.logger.Warn("rating_rejected", "recommendation_id", recID, "score", score)
		return false
	}

	rating, err := s.remote.UpsertRating(ctx, recID, score)
	if err != nil {
		s.fail(userID, "add_rating", err, "recommendation_id", recID, "score", score)
		return false
	}
	r := Rating{RecommendationID: recID, Score: score, UpdatedAt: s.now()}
	if rating != nil {
		r = *rating
		r.RecommendationID = recID
	}

	s.commit(userID, func(st *State) {
		st.Sent = ApplyRating(st.Sent, r)
		st.Received = ApplyRating(st.Received, r)
	})
	return true
}

// MarkAsRead marks a received recommendation read. Already-read records
// skip the remote write.
func (s *Store) MarkAsRead(ctx context.Context, recID string) bool {
	userID := s.viewer()
	if userID == "" {
		return false
	}

	s.mu.Lock()
	rec, found := findByID(s.state.Received, recID)
	s.mu.Unlock()
	if !found {
		return false
	}
	if rec.IsRead {
		return true
	}

	if err := s.remote.MarkRead(ctx, recID); err != nil {
		s.fail(userID, "mark_read", err, "recommendation_id", recID)
		return false
	}

	s.commit(userID, func(st *State) {
		st.Received = ApplyRead(st.Received, recID)
	})
	return true
}

// MarkAllAsRead marks every received recommendation read. With nothing
// unread it is a no-op.
func (s *Store) MarkAllAsRead(ctx context.Context) bool {
	userID := s.viewer()
	if userID == "" {
		return false
	}

	s.mu.Lock()
	pending := false
	for _, r := range s.state.Received {
		if !r.IsRead {
			pending = true
			break
		}
	}
	s.mu.Unlock()
	if !pending {
		return true
	}

	if err := s.remote.MarkAllRead(ctx); err != nil {
		s.fail(userID, "mark_all_read", err)
		return false
	}

	s.commit(userID, func(st *State) {
		st.Received = ApplyAllRead(st.Received)
	})
	return true
}

// MarkCommentsAsRead marks the other party's comments on recID read. The
// recommendation's own read flag is not touched.
func (s *Store) MarkCommentsAsRead(ctx context.Context, recID string) bool {
	userID := s.viewer()
	if userID == "" {
		return false
	}

	if err := s.remote.MarkCommentsRead(ctx, recID); err != nil {
		s.fail(userID, "mark_comments_read", err, "recommendation_id", recID)
		return false
	}

	s.commit(userID, func(st *State) {
		st.Sent = ApplyCommentsRead(st.Sent, recID, userID)
		st.Received = ApplyCommentsRead(st.Received, recID, userID)
	})
	return true
}
