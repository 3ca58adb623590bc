package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dsilveira/finledger/internal/store"
)

// notifyChannel is the Postgres channel the row triggers publish to.
// Payloads are "user_id|table".
const notifyChannel = "finledger_changes"

// Notifier delivers per-user change events over LISTEN/NOTIFY. It holds
// a dedicated connection from the store's pool for the lifetime of the
// subscription.
type Notifier struct {
	store *Store
	log   zerolog.Logger
}

var _ store.ChangeNotifier = (*Notifier)(nil)

// NewNotifier creates a change notifier on top of the store's pool.
func NewNotifier(st *Store, log zerolog.Logger) *Notifier {
	return &Notifier{store: st, log: log}
}

// Subscribe listens for change notifications and invokes the handler for
// each one. It blocks until ctx is cancelled. Malformed payloads are
// logged and dropped rather than aborting the subscription.
func (n *Notifier) Subscribe(ctx context.Context, handler store.ChangeHandler) error {
	conn, err := n.store.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("postgres: acquiring listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return fmt.Errorf("postgres: listen: %w", err)
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("postgres: waiting for notification: %w", err)
		}

		userID, table, ok := strings.Cut(notification.Payload, "|")
		if !ok || userID == "" {
			n.log.Warn().
				Str("payload", notification.Payload).
				Msg("Dropping malformed change notification")
			continue
		}
		handler(userID, store.Table(table))
	}
}

// Close is a no-op; the listen connection is released when Subscribe
// returns.
func (n *Notifier) Close() error {
	return nil
}
