package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/quillhub/quillhub/internal/domain"
	"github.com/quillhub/quillhub/internal/service/registry"
)

// Service implements the append-only issue ledger. It re-validates the
// target newsletter on every announcement even though the façade checks
// first; the ledger is the last line of defense against recording issues
// for deleted newsletters.
type Service struct {
	repo    Repository
	checker NewsletterChecker
}

// NewService creates an issue ledger backed by the given repository.
func NewService(repo Repository, checker NewsletterChecker) *Service {
	return &Service{repo: repo, checker: checker}
}

// Announce records a new issue and returns its ID.
func (s *Service) Announce(ctx context.Context, newsletterID int64, pageRef, publisherID, summary string) (int64, error) {
	if strings.TrimSpace(pageRef) == "" {
		return 0, fmt.Errorf("page ref is required")
	}
	summary = strings.TrimSpace(summary)
	if !domain.ValidSummary(summary) {
		return 0, fmt.Errorf("summary exceeds %d characters", domain.MaxSummaryLength)
	}

	if _, err := s.checker.Get(ctx, newsletterID); err != nil {
		// Only a definitive miss means the newsletter is gone; a failing
		// lookup must stay retryable for the caller.
		if errors.Is(err, registry.ErrNotFound) {
			return 0, ErrUnknownNewsletter
		}
		return 0, fmt.Errorf("check newsletter %d: %w", newsletterID, err)
	}

	issue := &domain.Issue{
		NewsletterID: newsletterID,
		PageRef:      pageRef,
		PublisherID:  publisherID,
		Summary:      summary,
	}
	return s.repo.Insert(ctx, issue)
}

// Get returns an issue by ID. Works for issues of deleted newsletters.
func (s *Service) Get(ctx context.Context, issueID int64) (*domain.Issue, error) {
	return s.repo.Get(ctx, issueID)
}

// ListRecent returns the newsletter's issues, most recent first.
func (s *Service) ListRecent(ctx context.Context, newsletterID int64, limit int) ([]domain.Issue, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.repo.ListRecent(ctx, newsletterID, limit)
}
