package membership

import (
	"context"
	"fmt"
	"strings"

	"github.com/quillhub/quillhub/internal/domain"
)

// Store implements publisher and subscriber set management on top of the
// repository's atomic insert/delete primitives. It holds no state of its
// own and is safe for concurrent use.
type Store struct {
	repo Repository
}

// NewStore creates a membership store backed by the given repository.
func NewStore(repo Repository) *Store {
	return &Store{repo: repo}
}

func validUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id is required")
	}
	return nil
}

// AddPublisher grants the publisher role. Returns false if the user was
// already a publisher.
func (s *Store) AddPublisher(ctx context.Context, newsletterID int64, userID string) (bool, error) {
	if err := validUser(userID); err != nil {
		return false, err
	}
	return s.repo.Add(ctx, newsletterID, userID, domain.RolePublisher)
}

// RemovePublisher revokes the publisher role. Returns false if the user was
// not a publisher.
func (s *Store) RemovePublisher(ctx context.Context, newsletterID int64, userID string) (bool, error) {
	if err := validUser(userID); err != nil {
		return false, err
	}
	return s.repo.Remove(ctx, newsletterID, userID, domain.RolePublisher)
}

// Subscribe adds the user to the subscriber set. Returns false if already
// subscribed.
func (s *Store) Subscribe(ctx context.Context, newsletterID int64, userID string) (bool, error) {
	if err := validUser(userID); err != nil {
		return false, err
	}
	return s.repo.Add(ctx, newsletterID, userID, domain.RoleSubscriber)
}

// Unsubscribe removes the user from the subscriber set. Returns false if
// not subscribed.
func (s *Store) Unsubscribe(ctx context.Context, newsletterID int64, userID string) (bool, error) {
	if err := validUser(userID); err != nil {
		return false, err
	}
	return s.repo.Remove(ctx, newsletterID, userID, domain.RoleSubscriber)
}

// IsPublisher reports whether the user holds the publisher role.
func (s *Store) IsPublisher(ctx context.Context, newsletterID int64, userID string) (bool, error) {
	return s.repo.Has(ctx, newsletterID, userID, domain.RolePublisher)
}

// IsSubscribed reports whether the user is a subscriber.
func (s *Store) IsSubscribed(ctx context.Context, newsletterID int64, userID string) (bool, error) {
	return s.repo.Has(ctx, newsletterID, userID, domain.RoleSubscriber)
}

// SubscriberCount returns the number of subscribers.
func (s *Store) SubscriberCount(ctx context.Context, newsletterID int64) (int, error) {
	return s.repo.Count(ctx, newsletterID, domain.RoleSubscriber)
}

// ListSubscribers returns subscriber user IDs in insertion order.
func (s *Store) ListSubscribers(ctx context.Context, newsletterID int64, limit, offset int) ([]string, error) {
	return s.repo.List(ctx, newsletterID, domain.RoleSubscriber, limit, offset)
}

// ListPublishers returns the publisher set.
func (s *Store) ListPublishers(ctx context.Context, newsletterID int64) ([]string, error) {
	return s.repo.List(ctx, newsletterID, domain.RolePublisher, 0, 0)
}

// PurgeNewsletter drops every membership row for the newsletter. Invoked by
// the registry's deletion cascade.
func (s *Store) PurgeNewsletter(ctx context.Context, newsletterID int64) error {
	return s.repo.PurgeNewsletter(ctx, newsletterID)
}
