package domain

import "time"

// AuditKind enumerates the auditable state changes.
type AuditKind string

const (
	AuditNewsletterCreated AuditKind = "newsletter-created"
	AuditNewsletterRemoved AuditKind = "newsletter-removed"
	AuditPublisherAdded    AuditKind = "publisher-added"
	AuditPublisherRemoved  AuditKind = "publisher-removed"
	AuditIssueAdded        AuditKind = "issue-added"
)

// AuditEvent is a write-once record of a state-changing action. The
// newsletter name is snapshotted at event time so the trail stays readable
// after the newsletter is deleted.
type AuditEvent struct {
	ID             string            `json:"id" db:"id"`
	Kind           AuditKind         `json:"kind" db:"kind"`
	Actor          string            `json:"actor" db:"actor"`
	NewsletterID   int64             `json:"newsletter_id" db:"newsletter_id"`
	NewsletterName string            `json:"newsletter_name" db:"newsletter_name"`
	Params         map[string]string `json:"params,omitempty" db:"params"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
}
