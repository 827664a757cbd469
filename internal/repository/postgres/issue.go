package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/quillhub/quillhub/internal/domain"
	"github.com/quillhub/quillhub/internal/service/ledger"
)

// IssueRepo implements ledger.Repository against PostgreSQL. The BIGSERIAL
// primary key is the issue ID: strictly unique and monotonic in commit
// order, with gaps from failed attempts being harmless.
type IssueRepo struct{ db *sql.DB }

// NewIssueRepo creates a Postgres-backed issue repository.
func NewIssueRepo(db *sql.DB) *IssueRepo { return &IssueRepo{db: db} }

func (r *IssueRepo) Insert(ctx context.Context, issue *domain.Issue) (int64, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO nl_issues (newsletter_id, page_ref, publisher_id, summary, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`, issue.NewsletterID, issue.PageRef, issue.PublisherID, issue.Summary).
		Scan(&issue.ID, &issue.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert issue: %w", err)
	}
	return issue.ID, nil
}

func (r *IssueRepo) Get(ctx context.Context, issueID int64) (*domain.Issue, error) {
	issue := &domain.Issue{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, newsletter_id, page_ref, publisher_id, summary, created_at
		FROM nl_issues
		WHERE id = $1
	`, issueID).Scan(&issue.ID, &issue.NewsletterID, &issue.PageRef, &issue.PublisherID, &issue.Summary, &issue.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrIssueNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get issue: %w", err)
	}
	return issue, nil
}

func (r *IssueRepo) ListRecent(ctx context.Context, newsletterID int64, limit int) ([]domain.Issue, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, newsletter_id, page_ref, publisher_id, summary, created_at
		FROM nl_issues
		WHERE newsletter_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, newsletterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer rows.Close()

	var out []domain.Issue
	for rows.Next() {
		var issue domain.Issue
		if err := rows.Scan(&issue.ID, &issue.NewsletterID, &issue.PageRef, &issue.PublisherID, &issue.Summary, &issue.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		out = append(out, issue)
	}
	return out, rows.Err()
}
