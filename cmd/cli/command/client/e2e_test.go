package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"cinelist/internal/config"
	"cinelist/internal/inbox"
	"cinelist/internal/logging"
	httpapi "cinelist/internal/microservices/http-api"
	"cinelist/internal/microservices/http-api/dto"
	"cinelist/internal/microservices/http-api/models"
	"cinelist/internal/microservices/realtime"
)

func newTestServer(t *testing.T) (*httptest.Server, *realtime.Hub) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// sqlite in-memory: one connection keeps every request on the same database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Recommendation{},
		&models.RecommendationComment{},
		&models.Rating{},
	))

	cfg := &config.Config{
		GoEnv:           "test",
		JWTSecret:       "e2e-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	}
	logger := logging.Discard()
	hub := realtime.NewHub(logger)
	srv := httptest.NewServer(httpapi.NewRouter(cfg, db, realtime.NewHubPublisher(hub), hub, logger))
	t.Cleanup(func() {
		hub.CloseAll()
		srv.Close()
	})
	return srv, hub
}

func signUp(t *testing.T, ctx context.Context, apiURL, username string) *HTTPClient {
	t.Helper()
	c := NewHTTPClient(apiURL)
	_, err := c.Register(ctx, dto.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "correct-horse-battery",
	})
	require.NoError(t, err)
	_, err = c.Login(ctx, username, "correct-horse-battery")
	require.NoError(t, err)
	return c
}

func TestInboxEndToEnd(t *testing.T) {
	srv, hub := newTestServer(t)
	apiURL := srv.URL + "/api"
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	alice := signUp(t, ctx, apiURL, "alice")
	bob := signUp(t, ctx, apiURL, "bob")

	aliceStore := inbox.NewStore(alice, alice)

	feed, err := NewWSFeed(apiURL, bob.AccessToken, logging.Discard())
	require.NoError(t, err)
	bobStore := inbox.NewStore(bob, bob, inbox.WithFeed(feed))
	require.True(t, bobStore.FetchRecommendations(ctx, true))
	assert.Empty(t, bobStore.Snapshot().Received)

	unsubscribe, err := bobStore.Subscribe(ctx)
	require.NoError(t, err)
	defer unsubscribe()
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	// a new recommendation reaches bob through the feed
	rec, err := alice.Recommend(ctx, dto.CreateRecommendationDTO{
		ReceiverUsername: "bob",
		ExternalID:       603,
		MediaKind:        "movie",
		Message:          "you will love it",
	})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		st := bobStore.Snapshot()
		return len(st.Received) == 1 && st.UnreadCount == 1
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, rec.ID, bobStore.Snapshot().Received[0].ID)

	// alice comments; bob gets it pushed, alice's own copy stays read-neutral
	require.True(t, aliceStore.FetchRecommendations(ctx, true))
	require.True(t, aliceStore.AddComment(ctx, rec.ID, "tell me when you watch it"))
	assert.Equal(t, 0, aliceStore.Snapshot().UnreadCount)
	require.Eventually(t, func() bool {
		return bobStore.Snapshot().UnreadCount == 2
	}, 3*time.Second, 20*time.Millisecond)

	require.True(t, bobStore.MarkCommentsAsRead(ctx, rec.ID))
	assert.Equal(t, 1, bobStore.Snapshot().UnreadCount)

	// a zero score is a valid rating and marks the recommendation read
	require.True(t, bobStore.AddRating(ctx, rec.ID, 0))
	st := bobStore.Snapshot()
	assert.Equal(t, 0, st.UnreadCount)
	require.NotNil(t, st.Received[0].Rating)
	assert.Equal(t, 0, st.Received[0].Rating.Score)
	assert.True(t, st.Received[0].IsRead)

	require.True(t, aliceStore.FetchRecommendations(ctx, true))
	sent := aliceStore.Snapshot().Sent
	require.Len(t, sent, 1)
	require.NotNil(t, sent[0].Rating)
	assert.Equal(t, 0, sent[0].Rating.Score)

	// deletes are per side until both parties have removed it
	require.True(t, bobStore.DeleteRecommendation(ctx, rec.ID))
	assert.Empty(t, bobStore.Snapshot().Received)
	require.True(t, aliceStore.FetchRecommendations(ctx, true))
	assert.Len(t, aliceStore.Snapshot().Sent, 1)

	require.True(t, aliceStore.DeleteRecommendation(ctx, rec.ID))
	assert.Empty(t, aliceStore.Snapshot().Sent)
	assert.False(t, bobStore.DeleteRecommendation(ctx, rec.ID), "already gone")
}

func TestInboxEndToEnd_SelfRecommendationRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	carol := signUp(t, ctx, srv.URL+"/api", "carol")
	_, err := carol.Recommend(ctx, dto.CreateRecommendationDTO{
		ReceiverUsername: "carol",
		ExternalID:       1399,
		MediaKind:        "tv",
	})
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusBadRequest))
}
