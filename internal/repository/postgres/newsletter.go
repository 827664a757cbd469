package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/quillhub/quillhub/internal/domain"
	"github.com/quillhub/quillhub/internal/service/registry"
)

// Partial unique indexes scoped to live newsletters; the constraint name
// tells us which uniqueness rule a concurrent create lost against.
const (
	constraintLiveName     = "nl_newsletters_name_live_idx"
	constraintLiveMainPage = "nl_newsletters_main_page_live_idx"
)

// NewsletterRepo implements registry.Repository against PostgreSQL.
type NewsletterRepo struct{ db *sql.DB }

// NewNewsletterRepo creates a Postgres-backed newsletter repository.
func NewNewsletterRepo(db *sql.DB) *NewsletterRepo { return &NewsletterRepo{db: db} }

func (r *NewsletterRepo) Create(ctx context.Context, n *domain.Newsletter) (int64, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO nl_newsletters (name, description, main_page_ref, deleted, created_at, updated_at)
		VALUES ($1, $2, $3, false, NOW(), NOW())
		RETURNING id
	`, n.Name, n.Description, n.MainPageRef).Scan(&n.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			switch pqErr.Constraint {
			case constraintLiveName:
				return 0, registry.ErrDuplicateName
			case constraintLiveMainPage:
				return 0, registry.ErrMainPageInUse
			}
		}
		return 0, fmt.Errorf("create newsletter: %w", err)
	}
	return n.ID, nil
}

func (r *NewsletterRepo) Get(ctx context.Context, id int64) (*domain.Newsletter, error) {
	n := &domain.Newsletter{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, main_page_ref, deleted, created_at, updated_at
		FROM nl_newsletters
		WHERE id = $1 AND NOT deleted
	`, id).Scan(&n.ID, &n.Name, &n.Description, &n.MainPageRef, &n.Deleted, &n.CreatedAt, &n.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, registry.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get newsletter: %w", err)
	}
	return n, nil
}

func (r *NewsletterRepo) GetByMainPage(ctx context.Context, ref string) (*domain.Newsletter, error) {
	n := &domain.Newsletter{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, main_page_ref, deleted, created_at, updated_at
		FROM nl_newsletters
		WHERE main_page_ref = $1 AND NOT deleted
	`, ref).Scan(&n.ID, &n.Name, &n.Description, &n.MainPageRef, &n.Deleted, &n.CreatedAt, &n.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, registry.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get newsletter by main page: %w", err)
	}
	return n, nil
}

func (r *NewsletterRepo) List(ctx context.Context, limit, offset int) ([]domain.Newsletter, int, error) {
	if limit <= 0 {
		limit = 50
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM nl_newsletters WHERE NOT deleted`,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count newsletters: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, main_page_ref, deleted, created_at, updated_at
		FROM nl_newsletters
		WHERE NOT deleted
		ORDER BY name
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list newsletters: %w", err)
	}
	defer rows.Close()

	var out []domain.Newsletter
	for rows.Next() {
		var n domain.Newsletter
		if err := rows.Scan(&n.ID, &n.Name, &n.Description, &n.MainPageRef, &n.Deleted, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan newsletter: %w", err)
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

func (r *NewsletterRepo) MarkDeleted(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE nl_newsletters SET deleted = true, updated_at = NOW()
		WHERE id = $1 AND NOT deleted
	`, id)
	if err != nil {
		return fmt.Errorf("delete newsletter: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return registry.ErrNotFound
	}
	return nil
}
