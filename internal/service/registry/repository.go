package registry

import (
	"context"

	"github.com/quillhub/quillhub/internal/domain"
)

// Repository defines the data access contract for newsletters.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Create inserts a new newsletter and returns its assigned ID. The
	// uniqueness checks on name and main page must be evaluated atomically
	// with the insert: of two concurrent creates with the same name, exactly
	// one succeeds and the other gets ErrDuplicateName (or ErrMainPageInUse
	// for a main page collision).
	Create(ctx context.Context, n *domain.Newsletter) (int64, error)

	// Get returns a live newsletter by ID. Returns ErrNotFound if it does
	// not exist or has been deleted.
	Get(ctx context.Context, id int64) (*domain.Newsletter, error)

	// GetByMainPage returns the live newsletter referencing the given main
	// page. Returns ErrNotFound if there is none.
	GetByMainPage(ctx context.Context, ref string) (*domain.Newsletter, error)

	// List returns live newsletters ordered by name, with the total count of
	// live newsletters for pagination.
	List(ctx context.Context, limit, offset int) ([]domain.Newsletter, int, error)

	// MarkDeleted soft-deletes a newsletter, freeing its name and main page
	// for reuse. Returns ErrNotFound if no live newsletter has that ID.
	MarkDeleted(ctx context.Context, id int64) error
}

// MembershipPurger is the cascade hook invoked after a newsletter is
// deleted. The membership service implements it.
type MembershipPurger interface {
	PurgeNewsletter(ctx context.Context, newsletterID int64) error
}
