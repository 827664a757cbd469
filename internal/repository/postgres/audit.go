package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/quillhub/quillhub/internal/domain"
)

// AuditRepo persists the write-once audit trail. It implements the façade's
// AuditLogger interface; RecentByNewsletter additionally serves the
// deleted-newsletter log shown when a lookup misses.
type AuditRepo struct{ db *sql.DB }

// NewAuditRepo creates a Postgres-backed audit logger.
func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

func (r *AuditRepo) Record(ctx context.Context, event domain.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	params, err := json.Marshal(event.Params)
	if err != nil {
		return fmt.Errorf("marshal audit params: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO nl_audit_log (id, kind, actor, newsletter_id, newsletter_name, params, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, event.ID, event.Kind, event.Actor, event.NewsletterID, event.NewsletterName, params)
	if err != nil {
		return fmt.Errorf("record audit event: %w", err)
	}
	return nil
}

// RecentByNewsletter returns the newest audit events for a newsletter,
// optionally filtered by kind (empty kind means all kinds).
func (r *AuditRepo) RecentByNewsletter(ctx context.Context, newsletterID int64, kind domain.AuditKind, limit int) ([]domain.AuditEvent, error) {
	if limit <= 0 {
		limit = 10
	}

	q := `
		SELECT id, kind, actor, newsletter_id, newsletter_name, params, created_at
		FROM nl_audit_log
		WHERE newsletter_id = $1`
	args := []interface{}{newsletterID}
	if kind != "" {
		q += ` AND kind = $2`
		args = append(args, kind)
	}
	q += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []domain.AuditEvent
	for rows.Next() {
		var (
			ev     domain.AuditEvent
			params []byte
		)
		if err := rows.Scan(&ev.ID, &ev.Kind, &ev.Actor, &ev.NewsletterID, &ev.NewsletterName, &params, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if len(params) > 0 {
			if err := json.Unmarshal(params, &ev.Params); err != nil {
				return nil, fmt.Errorf("unmarshal audit params: %w", err)
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
