package client

// ws_client.go subscribes to the server's change feed and implements inbox.Feed.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"cinelist/internal/inbox"
	"cinelist/internal/shared"
)

const (
	wsInitialBackoff = time.Second
	wsMaxBackoff     = 30 * time.Second
	wsPongWait       = 70 * time.Second
)

// TokenSource returns the current bearer token.
type TokenSource func() string

type WSFeed struct {
	url         string
	token       TokenSource
	dialer      *websocket.Dialer
	logger      *slog.Logger
	onReconnect func()
}

var _ inbox.Feed = (*WSFeed)(nil)

// NewWSFeed derives the websocket URL from the REST base URL
// (http://host/api -> ws://host/api/realtime).
func NewWSFeed(apiURL string, token TokenSource, logger *slog.Logger) (*WSFeed, error) {
	u, err := url.Parse(strings.TrimRight(apiURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path += "/realtime"

	return &WSFeed{
		url:    u.String(),
		token:  token,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger: logger.With("component", "ws_feed"),
	}, nil
}

// OnReconnect sets a hook run after every successful reconnect. Events
// missed while disconnected are gone, so callers typically refetch here.
func (f *WSFeed) OnReconnect(fn func()) {
	f.onReconnect = fn
}

func (f *WSFeed) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if tok := f.token(); tok != "" {
		header.Set("Authorization", "Bearer "+tok)
	}
	conn, resp, err := f.dialer.DialContext(ctx, f.url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", f.url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", f.url, err)
	}
	return conn, nil
}

// Subscribe connects and delivers every event to handle until the
// returned func is called or ctx ends. The first dial must succeed;
// later drops reconnect with backoff. userID is enforced server-side
// by the token, it is only used for logging here.
func (f *WSFeed) Subscribe(ctx context.Context, userID string, handle func(inbox.Event)) (func(), error) {
	conn, err := f.dial(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	var (
		mu      sync.Mutex
		current = conn
		wg      sync.WaitGroup
	)

	// closing the live conn unblocks ReadJSON
	go func() {
		<-ctx.Done()
		mu.Lock()
		if current != nil {
			_ = current.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = current.Close()
		}
		mu.Unlock()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		backoff := wsInitialBackoff
		for {
			mu.Lock()
			c := current
			mu.Unlock()

			f.readLoop(c, handle)
			if c != nil {
				mu.Lock()
				if current == c {
					current = nil
				}
				mu.Unlock()
				_ = c.Close()
			}
			if ctx.Err() != nil {
				return
			}
			f.logger.Warn("feed_disconnected", "user_id", userID, "retry_in", backoff)

			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}

			next, err := f.dial(ctx)
			if err != nil {
				backoff = min(backoff*2, wsMaxBackoff)
				// readLoop on nil returns immediately
				continue
			}
			backoff = wsInitialBackoff

			mu.Lock()
			current = next
			mu.Unlock()
			if ctx.Err() != nil {
				_ = next.Close()
				return
			}
			f.logger.Info("feed_reconnected", "user_id", userID)
			if f.onReconnect != nil {
				f.onReconnect()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}, nil
}

func (f *WSFeed) readLoop(conn *websocket.Conn, handle func(inbox.Event)) {
	if conn == nil {
		return
	}
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	for {
		var ev shared.ChangeEvent
		if err := conn.ReadJSON(&ev); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) || closeErr.Code != websocket.CloseNormalClosure {
				f.logger.Debug("feed_read_failed", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		handle(ev)
	}
}
