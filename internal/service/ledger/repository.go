package ledger

import (
	"context"

	"github.com/quillhub/quillhub/internal/domain"
)

// Repository defines the data access contract for the issue ledger.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Insert appends an issue and returns its assigned ID and timestamp.
	// IDs are strictly unique and monotonically increasing in commit order.
	Insert(ctx context.Context, issue *domain.Issue) (int64, error)

	// Get returns an issue by ID regardless of whether its newsletter still
	// exists. Returns ErrIssueNotFound if absent.
	Get(ctx context.Context, issueID int64) (*domain.Issue, error)

	// ListRecent returns up to limit issues for the newsletter, most recent
	// first (timestamp, then ID for ties).
	ListRecent(ctx context.Context, newsletterID int64, limit int) ([]domain.Issue, error)
}

// NewsletterChecker re-validates announcement targets. The registry service
// satisfies it.
type NewsletterChecker interface {
	Get(ctx context.Context, id int64) (*domain.Newsletter, error)
}
