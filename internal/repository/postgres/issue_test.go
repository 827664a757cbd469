package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/quillhub/quillhub/internal/domain"
	"github.com/quillhub/quillhub/internal/service/ledger"
)

func TestIssueInsertReturnsIDAndTimestamp(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewIssueRepo(db)

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO nl_issues`).
		WithArgs(int64(3), "Issue_1", "amara@example.org", "first issue").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(12, now))

	issue := &domain.Issue{NewsletterID: 3, PageRef: "Issue_1", PublisherID: "amara@example.org", Summary: "first issue"}
	id, err := repo.Insert(context.Background(), issue)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id != 12 || issue.ID != 12 || !issue.CreatedAt.Equal(now) {
		t.Fatalf("unexpected issue after insert: id=%d %+v", id, issue)
	}
}

func TestIssueGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewIssueRepo(db)

	mock.ExpectQuery(`SELECT id, newsletter_id, page_ref, publisher_id, summary, created_at`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := repo.Get(context.Background(), 42); !errors.Is(err, ledger.ErrIssueNotFound) {
		t.Fatalf("expected ErrIssueNotFound, got %v", err)
	}
}

func TestIssueListRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewIssueRepo(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT id, newsletter_id, page_ref, publisher_id, summary, created_at`).
		WithArgs(int64(3), 2).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "newsletter_id", "page_ref", "publisher_id", "summary", "created_at"},
		).
			AddRow(9, 3, "Issue_9", "amara@example.org", "s", now).
			AddRow(8, 3, "Issue_8", "amara@example.org", "s", now.Add(-time.Hour)))

	out, err := repo.ListRecent(context.Background(), 3, 2)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(out) != 2 || out[0].ID != 9 {
		t.Fatalf("expected most recent first, got %+v", out)
	}
}
