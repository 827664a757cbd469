package registry

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/quillhub/quillhub/internal/domain"
)

// Service implements newsletter identity management. It coordinates the
// repository layer with the membership cascade on deletion. All public
// methods are safe for concurrent use if the underlying repository is
// concurrency-safe.
type Service struct {
	repo   Repository
	purger MembershipPurger
}

// NewService creates a registry service backed by the given repository.
// purger may be nil, in which case Delete skips the membership cascade.
func NewService(repo Repository, purger MembershipPurger) *Service {
	return &Service{repo: repo, purger: purger}
}

// Create validates and persists a new newsletter, returning its ID.
func (s *Service) Create(ctx context.Context, name, description, mainPageRef string) (int64, error) {
	name = strings.TrimSpace(name)
	if !domain.ValidName(name) {
		return 0, fmt.Errorf("name must be 1-%d characters", domain.MaxNameLength)
	}
	if !domain.ValidDescription(description) {
		return 0, fmt.Errorf("description exceeds %d characters", domain.MaxDescriptionLength)
	}
	if strings.TrimSpace(mainPageRef) == "" {
		return 0, fmt.Errorf("main page is required")
	}

	n := &domain.Newsletter{
		Name:        name,
		Description: description,
		MainPageRef: mainPageRef,
	}
	return s.repo.Create(ctx, n)
}

// Get returns a live newsletter.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Newsletter, error) {
	return s.repo.Get(ctx, id)
}

// GetByMainPage returns the live newsletter owning the given main page.
func (s *Service) GetByMainPage(ctx context.Context, ref string) (*domain.Newsletter, error) {
	return s.repo.GetByMainPage(ctx, ref)
}

// List returns live newsletters ordered by name.
func (s *Service) List(ctx context.Context, limit, offset int) ([]domain.Newsletter, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// Delete soft-deletes a newsletter and cascades to its membership rows.
// Issues are historical and are retained; the newsletter merely becomes
// unresolvable for new announcements.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.MarkDeleted(ctx, id); err != nil {
		return err
	}
	if s.purger != nil {
		if err := s.purger.PurgeNewsletter(ctx, id); err != nil {
			// The newsletter is already gone; orphaned membership rows are
			// invisible through the live-newsletter paths, so log and move on.
			log.Printf("[registry.Service] membership purge for newsletter %d failed: %v", id, err)
		}
	}
	return nil
}
