package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Notifier publishes session updates over Postgres LISTEN/NOTIFY so review
// dashboards can follow interviews without polling. The payload is the
// session id whose state changed.
type Notifier struct {
	DB      *sql.DB
	Channel string
	ConnStr string
	log     *zap.Logger
}

// NewNotifier constructs a Notifier. connStr is needed because pq listeners
// hold their own connection.
func NewNotifier(db *sql.DB, connStr, channel string, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{DB: db, Channel: channel, ConnStr: connStr, log: log}
}

// Notify publishes a session id on the channel.
func (n *Notifier) Notify(ctx context.Context, sessionID string) error {
	_, err := n.DB.ExecContext(ctx, `SELECT pg_notify($1, $2)`, n.Channel, sessionID)
	return err
}

// Listen yields session ids as they are published until the context is
// cancelled.
func (n *Notifier) Listen(ctx context.Context) (<-chan string, error) {
	listener := pq.NewListener(n.ConnStr, 10*time.Second, time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				n.log.Warn("listener event error", zap.Int("event", int(ev)), zap.Error(err))
			}
		})
	if err := listener.Listen(n.Channel); err != nil {
		_ = listener.Close()
		return nil, err
	}

	ch := make(chan string)
	go func() {
		defer func() {
			_ = listener.Close()
			close(ch)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case notification, ok := <-listener.Notify:
				if !ok {
					return
				}
				if notification == nil {
					// Reconnect marker; pq re-establishes the LISTEN itself.
					continue
				}
				select {
				case ch <- notification.Extra:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}
