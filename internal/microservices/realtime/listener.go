package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"cinelist/internal/shared"
)

const (
	listenInitialBackoff = 500 * time.Millisecond
	listenMaxBackoff     = 30 * time.Second
)

// Listener holds a dedicated pgx connection LISTENing on the change
// channel and dispatches every notification into the hub.
type Listener struct {
	connString string
	channel    string
	hub        *Hub
	logger     *slog.Logger
}

func NewListener(connString, channel string, hub *Hub, logger *slog.Logger) *Listener {
	return &Listener{
		connString: connString,
		channel:    channel,
		hub:        hub,
		logger:     logger.With("component", "realtime_listener", "channel", channel),
	}
}

// Run blocks until ctx is done, reconnecting with exponential backoff.
// Events published while disconnected are lost; clients refetch when
// their own socket reconnects.
func (l *Listener) Run(ctx context.Context) error {
	backoff := listenInitialBackoff
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		l.logger.Error("listen_failed", "error", err, "retry_in", backoff)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > listenMaxBackoff {
			backoff = listenMaxBackoff
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.connString)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	l.logger.Info("listening")

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		l.handle(n.Payload)
	}
}

func (l *Listener) handle(payload string) {
	var ev shared.ChangeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		l.logger.Warn("bad_notification_payload", "error", err)
		return
	}
	delivered := l.hub.Dispatch(ev)
	l.logger.Debug("event_dispatched", "table", ev.Table, "type", ev.Type, "delivered", delivered)
}
