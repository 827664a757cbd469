package membership

import (
	"context"

	"github.com/quillhub/quillhub/internal/domain"
)

// Repository defines the data access contract for membership rows.
// Implementations must be safe for concurrent use.
//
// Add and Remove are conditional writes: two concurrent Adds for the same
// (newsletter, user, role) key must leave exactly one row, with the
// duplicate insert absorbed (changed=false), never an error.
type Repository interface {
	// Add inserts a membership row if absent. Returns true if a row was
	// inserted, false if the membership already existed.
	Add(ctx context.Context, newsletterID int64, userID string, role domain.Role) (bool, error)

	// Remove deletes a membership row if present. Returns true if a row was
	// removed, false if there was nothing to remove.
	Remove(ctx context.Context, newsletterID int64, userID string, role domain.Role) (bool, error)

	// Has reports whether the membership row exists.
	Has(ctx context.Context, newsletterID int64, userID string, role domain.Role) (bool, error)

	// Count returns the number of rows for the role.
	Count(ctx context.Context, newsletterID int64, role domain.Role) (int, error)

	// List returns user IDs for the role in insertion order (stable for
	// pagination). limit <= 0 means no limit; offset applies either way.
	List(ctx context.Context, newsletterID int64, role domain.Role, limit, offset int) ([]string, error)

	// PurgeNewsletter removes every membership row for the newsletter.
	PurgeNewsletter(ctx context.Context, newsletterID int64) error
}
