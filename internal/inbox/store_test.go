package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cinelist/internal/shared"
)

type MockRemote struct {
	mock.Mock
}

func (m *MockRemote) ListSent(ctx context.Context) ([]Recommendation, error) {
	args := m.Called(ctx)
	recs, _ := args.Get(0).([]Recommendation)
	return recs, args.Error(1)
}

func (m *MockRemote) ListReceived(ctx context.Context) ([]Recommendation, error) {
	args := m.Called(ctx)
	recs, _ := args.Get(0).([]Recommendation)
	return recs, args.Error(1)
}

func (m *MockRemote) InsertComment(ctx context.Context, recID, content string) (*Comment, error) {
	args := m.Called(ctx, recID, content)
	c, _ := args.Get(0).(*Comment)
	return c, args.Error(1)
}

func (m *MockRemote) DeleteComment(ctx context.Context, recID, commentID string) error {
	return m.Called(ctx, recID, commentID).Error(0)
}

func (m *MockRemote) SoftDeleteRecommendation(ctx context.Context, recID string) (bool, error) {
	args := m.Called(ctx, recID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRemote) UpsertRating(ctx context.Context, recID string, score int) (*Rating, error) {
	args := m.Called(ctx, recID, score)
	r, _ := args.Get(0).(*Rating)
	return r, args.Error(1)
}

func (m *MockRemote) MarkRead(ctx context.Context, recID string) error {
	return m.Called(ctx, recID).Error(0)
}

func (m *MockRemote) MarkAllRead(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockRemote) MarkCommentsRead(ctx context.Context, recID string) error {
	return m.Called(ctx, recID).Error(0)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(remote Remote, opts ...Option) (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return NewStore(remote, IdentityFunc(func() string { return viewer }), opts...), clock
}

// seed loads state through a forced fetch.
func seed(t *testing.T, remote *MockRemote, store *Store, sent, received []Recommendation) {
	t.Helper()
	remote.On("ListSent", mock.Anything).Return(sent, nil).Once()
	remote.On("ListReceived", mock.Anything).Return(received, nil).Once()
	require.True(t, store.FetchRecommendations(context.Background(), true))
}

func assertInvariant(t *testing.T, st State) {
	t.Helper()
	assert.Equal(t, UnreadCount(st.Sent, st.Received, viewer), st.UnreadCount)
}

func TestFetchRecommendations_FreshFetch(t *testing.T) {
	remote := new(MockRemote)
	store, _ := newTestStore(remote)

	seed(t, remote, store,
		[]Recommendation{{ID: "1", SenderID: viewer, ReceiverID: friend}},
		[]Recommendation{{ID: "2", SenderID: friend, ReceiverID: viewer}},
	)

	st := store.Snapshot()
	assert.Len(t, st.Sent, 1)
	assert.Len(t, st.Received, 1)
	assert.Equal(t, 1, st.UnreadCount)
	assert.False(t, st.IsLoading)
	assert.False(t, st.LastFetched.IsZero())
	remote.AssertExpectations(t)
}

func TestFetchRecommendations_Debounce(t *testing.T) {
	remote := new(MockRemote)
	store, clock := newTestStore(remote)
	seed(t, remote, store, nil, nil)

	clock.Advance(10 * time.Second)
	assert.True(t, store.FetchRecommendations(context.Background(), false))
	remote.AssertNumberOfCalls(t, "ListSent", 1)

	remote.On("ListSent", mock.Anything).Return([]Recommendation{}, nil).Once()
	remote.On("ListReceived", mock.Anything).Return([]Recommendation{}, nil).Once()
	clock.Advance(25 * time.Second)
	assert.True(t, store.FetchRecommendations(context.Background(), false))
	remote.AssertNumberOfCalls(t, "ListSent", 2)
}

func TestFetchRecommendations_ForceBypassesDebounce(t *testing.T) {
	remote := new(MockRemote)
	store, _ := newTestStore(remote)
	seed(t, remote, store, nil, nil)
	seed(t, remote, store, nil, []Recommendation{{ID: "x"}})

	assert.Len(t, store.Snapshot().Received, 1)
	remote.AssertNumberOfCalls(t, "ListReceived", 2)
}

func TestFetchRecommendations_ErrorKeepsState(t *testing.T) {
	remote := new(MockRemote)
	store, _ := newTestStore(remote)
	seed(t, remote, store, nil, []Recommendation{{ID: "x"}})

	remote.On("ListSent", mock.Anything).Return(nil, errors.New("network down")).Once()
	assert.False(t, store.FetchRecommendations(context.Background(), true))

	st := store.Snapshot()
	assert.Len(t, st.Received, 1)
	assert.Equal(t, "network down", st.Error)
	assert.False(t, st.IsLoading)
}

func TestOperations_NoUserIsNoop(t *testing.T) {
	remote := new(MockRemote)
	store := NewStore(remote, IdentityFunc(func() string { return "" }))
	ctx := context.Background()

	assert.False(t, store.FetchRecommendations(ctx, true))
	assert.False(t, store.AddComment(ctx, "x", "hi"))
	assert.False(t, store.DeleteComment(ctx, "x", "c"))
	assert.False(t, store.DeleteRecommendation(ctx, "x"))
	assert.False(t, store.AddRating(ctx, "x", 5))
	assert.False(t, store.MarkAsRead(ctx, "x"))
	assert.False(t, store.MarkAllAsRead(ctx))
	assert.False(t, store.MarkCommentsAsRead(ctx, "x"))
	remote.AssertNotCalled(t, "ListSent", mock.Anything)
}

func TestAddComment_AppendsWithoutCountChange(t *testing.T) {
	remote := new(MockRemote)
	store, _ := newTestStore(remote)
	seed(t, remote, store, nil, []Recommendation{{ID: "r1", IsRead: true}})

	remote.On("InsertComment", mock.Anything, "r1", "great pick").
		Return(&Comment{ID: "c1", RecommendationID: "r1", UserID: viewer, Content: "great pick"}, nil)

	assert.True(t, store.AddComment(context.Background(), "r1", "  great pick "))
	st := store.Snapshot()
	require.Len(t, st.Received[0].Comments, 1)
	assert.Equal(t, 0, st.UnreadCount)
}

func TestAddComment_RejectsEmpty(t *testing.T) {
	remote := new(MockRemote)
	store, _ := newTestStore(remote)

	assert.False(t, store.AddComment(context.Background(), "r1", "   "))
	remote.AssertNotCalled(t, "InsertComment", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteComment_ReducesCount(t *testing.T) {
	remote := new(MockRemote)
	store, _ := newTestStore(remote)
	seed(t, remote, store, []Recommendation{{ID: "s1", IsRead: true, Comments: []Comment{
		{ID: "c1", RecommendationID: "s1", UserID: friend},
	}}}, nil)
	require.Equal(t, 1, store.Snapshot().UnreadCount)

	remote.On("DeleteComment", mock.Anything, "s1", "c1").Return(nil)
	assert.True(t, store.DeleteComment(context.Background(), "s1", "c1"))
	assert.Equal(t, 0, store.Snapshot().UnreadCount)
}

func TestDeleteRecommendation_ReducesCount(t *testing.T) {
	remote := new(MockRemote)
	store, _ := newTestStore(remote)
	seed(t, remote, store, nil, []Recommendation{{ID: "x", IsRead: false}})
	require.Equal(t, 1, store.Snapshot().UnreadCount)

	remote.On("SoftDeleteRecommendation", mock.Anything, "x").Return(true, nil).Once()
	assert.True(t, store.DeleteRecommendation(context.Background(), "x"))

	st := store.Snapshot()
	assert.Empty(t, st.Received)
	assert.Equal(t, 0, st.UnreadCount)
}

func TestDeleteRecommendation_TwiceIsHarmless(t *testing.T) {
	remote := new(MockRemote)
	store, _ := newTestStore(remote)
	seed(t, remote, store, nil, []Recommendation{{ID: "x"}, {ID: "y"}})

	remote.On("SoftDeleteRecommendation", mock.Anything, "x").Return(true, nil).Once()
	remote.On("SoftDeleteRecommendation", mock.Anything, "x").Return(false, nil).Once()

	assert.True(t, store.DeleteRecommendation(context.Background(), "x"))
	before := store.Snapshot().UnreadCount
	assert.NotPanics(t, func() {
		assert.False(t, store.DeleteRecommendation(context.Background(), "x"))
	})
	assert.Equal(t, before, store.Snapshot().UnreadCount)
}

func TestDeleteRecommendation_RefusedKeepsState(t *testing.T) {
	remote := new(MockRemote)
	store, _ := newTestStore(remote)
	seed(t, remote, store, nil, []Recommendation{{ID: "x"}})

	remote.On("SoftDeleteRecommendation", mock.Anything, "x").Return(false, nil)
	assert.False(t, store.DeleteRecommendation(context.Background(), "x"))

	st := store.Snapshot()
	assert.Len(t, st.Received, 1)
	assert.Equal(t, 1, st.UnreadCount)
	assert.Empty(t, st.Error)
}

func TestDeleteRecommendation_RemoteErrorKeepsState(t *testing.T) {
	remote := new(MockRemote)
	store, _ := newTestStore(remote)
	seed(t, remote, store, nil, []Recommendation{{ID: "x"}})

	remote.On("SoftDeleteRecommendation", mock.Anything, "x").Return(false, errors.New("timeout"))
	assert.False(t, store.DeleteRecommendation(context.Background(), "x"))

	st := store.Snapshot()
	assert.Len(t, st.Received, 1)
	assert.Equal(t, "timeout", st.Error)
}

func TestAddRating_ForcesRead(t *testing.T) {
	remote := new(MockRemote)
	store, _ := newTestStore(remote)
	seed(t, remote, store, nil, []Recommendation{{ID: "r1", IsRead: false}})
	require.Equal(t, 1, store.Snapshot().UnreadCount)

	remote.On("UpsertRating", mock.Anything, "r1", 7).Return(&Rating{RecommendationID: "r1", Score: 7}, nil)
	assert.True(t, store.AddRating(context.Background(), "r1", 7))

	st := store.Snapshot()
	require.NotNil(t, st.Received[0].Rating)
	assert.Equal(t, 7, st.Received[0].Rating.Score)
	assert.True(t, st.Received[0].IsRead)
	assert.Equal(t, 0, st.UnreadCount)
}

func TestAddRating_OutOfRange(t *testing.T) {
	remote := new(MockRemote)
	store, _ := newTestStore(remote)

	assert.False(t, store.AddRating(context.Background(), "r1", 11))
	assert.False(t, store.AddRating(context.Background(), "r1", -1))
	remote.AssertNotCalled(t, "UpsertRating", mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkAsRead_SkipsAlreadyRead(t *testing.T) {
	remote := new(MockRemote)
	store, _ := newTestStore(remote)
	seed(t, remote, store, nil, []Recommendation{{ID: "a", IsRead: true}, {ID: "b"}})

	assert.True(t, store.MarkAsRead(context.Background(), "a"))
	remote.AssertNotCalled(t, "MarkRead", mock.Anything, "a")

	remote.On("MarkRead", mock.Anything, "b").Return(nil)
	assert.True(t, store.MarkAsRead(context.Background(), "b"))
	assert.Equal(t, 0, store.Snapshot().UnreadCount)
}

func TestMarkAllAsRead(t *testing.T) {
	remote := new(MockRemote)
	store, _ := newTestStore(remote)
	seed(t, remote, store, nil, []Recommendation{{ID: "a"}, {ID: "b"}})

	remote.On("MarkAllRead", mock.Anything).Return(nil).Once()
	assert.True(t, store.MarkAllAsRead(context.Background()))
	assert.Equal(t, 0, store.Snapshot().UnreadCount)

	// nothing left unread, no second write
	assert.True(t, store.MarkAllAsRead(context.Background()))
	remote.AssertNumberOfCalls(t, "MarkAllRead", 1)
}

func TestMarkCommentsAsRead(t *testing.T) {
	remote := new(MockRemote)
	store, _ := newTestStore(remote)
	seed(t, remote, store, nil, []Recommendation{{ID: "a", IsRead: false, Comments: []Comment{
		{ID: "c1", RecommendationID: "a", UserID: friend},
		{ID: "c2", RecommendationID: "a", UserID: friend},
	}}})
	require.Equal(t, 3, store.Snapshot().UnreadCount)

	remote.On("MarkCommentsRead", mock.Anything, "a").Return(nil)
	assert.True(t, store.MarkCommentsAsRead(context.Background(), "a"))

	st := store.Snapshot()
	assert.Equal(t, 1, st.UnreadCount, "recommendation itself stays unread")
	assertInvariant(t, st)
}

func commentEvent(t *testing.T, c Comment) Event {
	t.Helper()
	raw, err := json.Marshal(c)
	require.NoError(t, err)
	return Event{Table: shared.TableComments, Type: shared.ChangeInsert, Record: raw}
}

func TestHandleEvent_SelfEchoIgnored(t *testing.T) {
	remote := new(MockRemote)
	store, _ := newTestStore(remote)
	seed(t, remote, store, nil, []Recommendation{{ID: "a", IsRead: true}})
	before := store.Snapshot()

	store.HandleEvent(context.Background(), commentEvent(t, Comment{ID: "c9", RecommendationID: "a", UserID: viewer}))

	assert.Equal(t, before, store.Snapshot())
}

func TestHandleEvent_IncomingCommentIncrements(t *testing.T) {
	remote := new(MockRemote)
	store, _ := newTestStore(remote)
	seed(t, remote, store, []Recommendation{{ID: "s", IsRead: true}}, nil)

	ev := commentEvent(t, Comment{ID: "c1", RecommendationID: "s", UserID: friend})
	store.HandleEvent(context.Background(), ev)
	assert.Equal(t, 1, store.Snapshot().UnreadCount)

	// replay does not double count
	store.HandleEvent(context.Background(), ev)
	assert.Equal(t, 1, store.Snapshot().UnreadCount)
}

func TestHandleEvent_DeleteIsIdempotent(t *testing.T) {
	remote := new(MockRemote)
	store, _ := newTestStore(remote)
	seed(t, remote, store, nil, []Recommendation{{ID: "x"}})

	ev := Event{Table: shared.TableRecommendations, Type: shared.ChangeDelete, OldRecord: json.RawMessage(`{"id":"x"}`)}
	store.HandleEvent(context.Background(), ev)
	store.HandleEvent(context.Background(), ev)

	st := store.Snapshot()
	assert.Empty(t, st.Received)
	assert.Equal(t, 0, st.UnreadCount)
}

func TestHandleEvent_InsertTriggersForcedFetch(t *testing.T) {
	remote := new(MockRemote)
	store, _ := newTestStore(remote)
	seed(t, remote, store, nil, nil)

	remote.On("ListSent", mock.Anything).Return([]Recommendation{}, nil).Once()
	remote.On("ListReceived", mock.Anything).Return([]Recommendation{{ID: "new"}}, nil).Once()

	store.HandleEvent(context.Background(), Event{Table: shared.TableRecommendations, Type: shared.ChangeInsert, Record: json.RawMessage(`{"id":"new"}`)})

	assert.Len(t, store.Snapshot().Received, 1)
	remote.AssertNumberOfCalls(t, "ListReceived", 2)
}

type stubEnricher struct{}

func (stubEnricher) Lookup(_ context.Context, kind MediaKind, id int64) (string, string, error) {
	if id == 404 {
		return "", "", errors.New("not found")
	}
	return "Title " + string(kind), "/poster.jpg", nil
}

func TestFetchRecommendations_Enrichment(t *testing.T) {
	remote := new(MockRemote)
	store, _ := newTestStore(remote, WithEnricher(stubEnricher{}))
	seed(t, remote, store, nil, []Recommendation{
		{ID: "a", MediaKind: MediaMovie, ExternalID: 1},
		{ID: "b", MediaKind: MediaTV, ExternalID: 404},
	})

	st := store.Snapshot()
	assert.Equal(t, "Title movie", st.Received[0].Title)
	assert.Equal(t, "/poster.jpg", st.Received[0].PosterPath)
	assert.Equal(t, UntitledPlaceholder, st.Received[1].Title)
	assert.Empty(t, st.Received[1].PosterPath)
}

type slowEnricher struct{}

func (slowEnricher) Lookup(_ context.Context, _ MediaKind, id int64) (string, string, error) {
	time.Sleep(time.Microsecond)
	return "Title " + strconv.FormatInt(id, 10), "", nil
}

func TestFetchRecommendations_EnrichesManyTitles(t *testing.T) {
	recs := make([]Recommendation, 0, 200)
	for i := 0; i < 200; i++ {
		recs = append(recs, Recommendation{ID: strconv.Itoa(i), MediaKind: MediaMovie, ExternalID: int64(i + 1)})
	}

	remote := new(MockRemote)
	store, _ := newTestStore(remote, WithEnricher(slowEnricher{}))
	for i := 0; i < 20; i++ {
		remote.On("ListSent", mock.Anything).Return(nil, nil).Once()
		remote.On("ListReceived", mock.Anything).Return(cloneRecs(recs), nil).Once()
		require.True(t, store.FetchRecommendations(context.Background(), true))
	}

	st := store.Snapshot()
	require.Len(t, st.Received, 200)
	for _, r := range st.Received {
		assert.Equal(t, "Title "+strconv.FormatInt(r.ExternalID, 10), r.Title)
	}
}

func TestFetchRecommendations_KeepsDeleteDuringFetch(t *testing.T) {
	remote := new(MockRemote)
	store, _ := newTestStore(remote)
	seed(t, remote, store, nil, []Recommendation{{ID: "x"}, {ID: "y"}})

	remote.On("ListSent", mock.Anything).Return(nil, nil).Once()
	remote.On("ListReceived", mock.Anything).Run(func(mock.Arguments) {
		store.HandleEvent(context.Background(), Event{
			Table:     shared.TableRecommendations,
			Type:      shared.ChangeDelete,
			OldRecord: json.RawMessage(`{"id":"x"}`),
		})
	}).Return([]Recommendation{{ID: "x"}, {ID: "y"}}, nil).Once()
	require.True(t, store.FetchRecommendations(context.Background(), true))

	st := store.Snapshot()
	require.Len(t, st.Received, 1)
	assert.Equal(t, "y", st.Received[0].ID)
	assert.False(t, st.IsLoading)
	assertInvariant(t, st)

	// the transition log is dropped once no fetch is running
	seed(t, remote, store, nil, []Recommendation{{ID: "x"}})
	assert.Len(t, store.Snapshot().Received, 1)
}

func TestFetchRecommendations_KeepsCommentDuringFetch(t *testing.T) {
	remote := new(MockRemote)
	store, _ := newTestStore(remote)
	seed(t, remote, store, nil, []Recommendation{{ID: "x", SenderID: friend, ReceiverID: viewer, IsRead: true}})

	remote.On("InsertComment", mock.Anything, "x", "seen it").
		Return(&Comment{ID: "c1", RecommendationID: "x", UserID: viewer, Content: "seen it"}, nil).Once()
	remote.On("ListSent", mock.Anything).Return(nil, nil).Once()
	remote.On("ListReceived", mock.Anything).Run(func(mock.Arguments) {
		assert.True(t, store.AddComment(context.Background(), "x", "seen it"))
	}).Return([]Recommendation{{ID: "x", SenderID: friend, ReceiverID: viewer, IsRead: true}}, nil).Once()
	require.True(t, store.FetchRecommendations(context.Background(), true))

	st := store.Snapshot()
	require.Len(t, st.Received, 1)
	require.Len(t, st.Received[0].Comments, 1)
	assert.Equal(t, "c1", st.Received[0].Comments[0].ID)
	assert.Equal(t, 0, st.UnreadCount)
}

func TestSuccessfulOperation_ClearsError(t *testing.T) {
	remote := new(MockRemote)
	store, _ := newTestStore(remote)
	seed(t, remote, store, nil, []Recommendation{{ID: "a"}})

	remote.On("DeleteComment", mock.Anything, "a", "c1").Return(errors.New("boom")).Once()
	remote.On("MarkCommentsRead", mock.Anything, "a").Return(nil).Once()

	assert.False(t, store.DeleteComment(context.Background(), "a", "c1"))
	assert.Equal(t, "boom", store.Snapshot().Error)

	assert.True(t, store.MarkCommentsAsRead(context.Background(), "a"))
	assert.Empty(t, store.Snapshot().Error)
	remote.AssertExpectations(t)
}

func TestRefusedDelete_DoesNotReportStaleError(t *testing.T) {
	remote := new(MockRemote)
	store, _ := newTestStore(remote)
	seed(t, remote, store, nil, []Recommendation{{ID: "a"}, {ID: "b"}})

	remote.On("MarkRead", mock.Anything, "a").Return(errors.New("timeout")).Once()
	remote.On("MarkRead", mock.Anything, "b").Return(nil).Once()
	remote.On("SoftDeleteRecommendation", mock.Anything, "zzz").Return(false, nil).Once()

	assert.False(t, store.MarkAsRead(context.Background(), "a"))
	assert.True(t, store.MarkAsRead(context.Background(), "b"))
	assert.False(t, store.DeleteRecommendation(context.Background(), "zzz"))
	assert.Empty(t, store.Snapshot().Error)
}

func TestWatch_NotifiesAndCancels(t *testing.T) {
	remote := new(MockRemote)
	store, _ := newTestStore(remote)

	var got []int
	cancel := store.Watch(func(st State) { got = append(got, st.UnreadCount) })
	seed(t, remote, store, nil, []Recommendation{{ID: "a"}})
	cancel()
	seed(t, remote, store, nil, nil)

	require.NotEmpty(t, got)
	assert.Equal(t, 1, got[len(got)-1])
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	remote := new(MockRemote)
	store, _ := newTestStore(remote)
	seed(t, remote, store, nil, []Recommendation{{ID: "a", Comments: []Comment{{ID: "c", UserID: friend}}}})

	snap := store.Snapshot()
	snap.Received[0].Comments[0].IsRead = true

	assert.Equal(t, 2, store.Snapshot().UnreadCount)
	assert.False(t, store.Snapshot().Received[0].Comments[0].IsRead)
}

type fakeFeed struct {
	handler  func(Event)
	userID   string
	canceled bool
}

func (f *fakeFeed) Subscribe(_ context.Context, userID string, handle func(Event)) (func(), error) {
	f.userID = userID
	f.handler = handle
	return func() { f.canceled = true }, nil
}

func TestSubscribe_RoutesEvents(t *testing.T) {
	remote := new(MockRemote)
	feed := &fakeFeed{}
	store, _ := newTestStore(remote, WithFeed(feed))
	seed(t, remote, store, nil, []Recommendation{{ID: "x"}})

	unsubscribe, err := store.Subscribe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, viewer, feed.userID)

	feed.handler(Event{Table: shared.TableRecommendations, Type: shared.ChangeDelete, OldRecord: json.RawMessage(`{"id":"x"}`)})
	assert.Empty(t, store.Snapshot().Received)

	unsubscribe()
	assert.True(t, feed.canceled)
}

func TestSubscribe_NoFeed(t *testing.T) {
	store, _ := newTestStore(new(MockRemote))
	_, err := store.Subscribe(context.Background())
	assert.ErrorIs(t, err, ErrNoFeed)
}

func TestConcurrentTransitions_KeepInvariant(t *testing.T) {
	remote := new(MockRemote)
	store, _ := newTestStore(remote)
	recs := make([]Recommendation, 0, 20)
	for i := 0; i < 20; i++ {
		recs = append(recs, Recommendation{ID: string(rune('a' + i))})
	}
	seed(t, remote, store, nil, recs)
	remote.On("SoftDeleteRecommendation", mock.Anything, mock.Anything).Return(true, nil)
	remote.On("MarkRead", mock.Anything, mock.Anything).Return(nil)

	var wg sync.WaitGroup
	for i, r := range recs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			if i%2 == 0 {
				store.DeleteRecommendation(context.Background(), id)
			} else {
				store.MarkAsRead(context.Background(), id)
			}
		}(i, r.ID)
	}
	wg.Wait()

	st := store.Snapshot()
	assert.Len(t, st.Received, 10)
	assert.Equal(t, 0, st.UnreadCount)
	assertInvariant(t, st)
}

func TestWatch_DeliversSnapshotsInOrder(t *testing.T) {
	remote := new(MockRemote)
	store, _ := newTestStore(remote)
	recs := make([]Recommendation, 0, 50)
	for i := 0; i < 50; i++ {
		recs = append(recs, Recommendation{ID: strconv.Itoa(i)})
	}
	seed(t, remote, store, nil, recs)
	remote.On("MarkRead", mock.Anything, mock.Anything).Return(nil)

	var (
		mu  sync.Mutex
		got []int
	)
	cancel := store.Watch(func(st State) {
		mu.Lock()
		got = append(got, st.UnreadCount)
		mu.Unlock()
	})
	defer cancel()

	var wg sync.WaitGroup
	for _, r := range recs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			store.MarkAsRead(context.Background(), id)
		}(r.ID)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 50)
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i], got[i-1], "snapshot %d arrived out of order", i)
	}
	assert.Equal(t, 0, got[len(got)-1])
}

func TestWatch_ListenerMayCallBack(t *testing.T) {
	remote := new(MockRemote)
	store, _ := newTestStore(remote)
	remote.On("MarkAllRead", mock.Anything).Return(nil).Once()

	var counts []int
	cancel := store.Watch(func(st State) {
		counts = append(counts, st.UnreadCount)
		if st.UnreadCount > 0 {
			store.MarkAllAsRead(context.Background())
		}
	})
	defer cancel()
	seed(t, remote, store, nil, []Recommendation{{ID: "a"}, {ID: "b"}})

	assert.Equal(t, 0, store.Snapshot().UnreadCount)
	require.NotEmpty(t, counts)
	assert.Equal(t, 0, counts[len(counts)-1])
	remote.AssertExpectations(t)
}
