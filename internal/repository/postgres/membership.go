package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/quillhub/quillhub/internal/domain"
)

// MembershipRepo implements membership.Repository against PostgreSQL. The
// primary key on (newsletter_id, user_id, role) plus ON CONFLICT DO NOTHING
// makes every toggle a single conditional write: concurrent duplicate
// subscribes collapse to one row with no error.
type MembershipRepo struct{ db *sql.DB }

// NewMembershipRepo creates a Postgres-backed membership repository.
func NewMembershipRepo(db *sql.DB) *MembershipRepo { return &MembershipRepo{db: db} }

func (r *MembershipRepo) Add(ctx context.Context, newsletterID int64, userID string, role domain.Role) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO nl_memberships (newsletter_id, user_id, role, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (newsletter_id, user_id, role) DO NOTHING
	`, newsletterID, userID, role)
	if err != nil {
		return false, fmt.Errorf("add membership: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *MembershipRepo) Remove(ctx context.Context, newsletterID int64, userID string, role domain.Role) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM nl_memberships
		WHERE newsletter_id = $1 AND user_id = $2 AND role = $3
	`, newsletterID, userID, role)
	if err != nil {
		return false, fmt.Errorf("remove membership: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *MembershipRepo) Has(ctx context.Context, newsletterID int64, userID string, role domain.Role) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM nl_memberships
			WHERE newsletter_id = $1 AND user_id = $2 AND role = $3
		)
	`, newsletterID, userID, role).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return exists, nil
}

func (r *MembershipRepo) Count(ctx context.Context, newsletterID int64, role domain.Role) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM nl_memberships
		WHERE newsletter_id = $1 AND role = $2
	`, newsletterID, role).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count memberships: %w", err)
	}
	return n, nil
}

func (r *MembershipRepo) List(ctx context.Context, newsletterID int64, role domain.Role, limit, offset int) ([]string, error) {
	q := `
		SELECT user_id FROM nl_memberships
		WHERE newsletter_id = $1 AND role = $2
		ORDER BY created_at, user_id`
	args := []interface{}{newsletterID, role}
	switch {
	case limit > 0:
		q += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
		args = append(args, limit, offset)
	case offset > 0:
		// Offset applies even when the caller wants the whole tail.
		q += fmt.Sprintf(` OFFSET $%d`, len(args)+1)
		args = append(args, offset)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		out = append(out, userID)
	}
	return out, rows.Err()
}

func (r *MembershipRepo) PurgeNewsletter(ctx context.Context, newsletterID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM nl_memberships WHERE newsletter_id = $1`, newsletterID)
	if err != nil {
		return fmt.Errorf("purge memberships: %w", err)
	}
	return nil
}
