package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// FeedItemRepo records which feed items have already been announced so a
// restart does not replay a feed's history into the issue ledger.
type FeedItemRepo struct{ db *sql.DB }

// NewFeedItemRepo creates a Postgres-backed seen-item store.
func NewFeedItemRepo(db *sql.DB) *FeedItemRepo { return &FeedItemRepo{db: db} }

// MarkSeen records the item and reports whether it was newly recorded.
// A duplicate insert is absorbed by the primary key and returns false.
func (r *FeedItemRepo) MarkSeen(ctx context.Context, feedURL, guid string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO nl_feed_items (feed_url, item_guid)
		VALUES ($1, $2)
		ON CONFLICT (feed_url, item_guid) DO NOTHING
	`, feedURL, guid)
	if err != nil {
		return false, fmt.Errorf("mark feed item seen: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark feed item seen: %w", err)
	}
	return n > 0, nil
}
