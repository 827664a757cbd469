package newsletter

import (
	"context"

	"github.com/quillhub/quillhub/internal/domain"
)

// ContentStore validates the content pages a newsletter references: its main
// page at creation time and each announced issue page. Implementations must
// be safe for concurrent use.
type ContentStore interface {
	// Exists reports whether the referenced page exists.
	Exists(ctx context.Context, ref string) (bool, error)

	// Announceable reports whether the page may be announced as an issue.
	// Media and other binary content pages are not announceable.
	Announceable(ctx context.Context, ref string) (bool, error)
}

// Identity supplies the externally owned authorization decisions: global
// blocks, the newsletter-creation capability, the per-newsletter manage
// predicate, and the per-actor rate limiter.
type Identity interface {
	// IsBlocked reports whether the actor is globally blocked.
	IsBlocked(ctx context.Context, actor domain.Actor) (bool, error)

	// CanCreate reports whether the actor may create newsletters.
	CanCreate(ctx context.Context, actor domain.Actor) (bool, error)

	// CanManage reports whether the actor may administer the newsletter's
	// publisher and subscriber sets or delete it.
	CanManage(ctx context.Context, newsletterID int64, actor domain.Actor) (bool, error)

	// PingLimiter counts one action against the actor's limit for the given
	// key and reports true if the actor is now over the limit.
	PingLimiter(ctx context.Context, key string, actor domain.Actor) (bool, error)
}

// AuditLogger receives a structured event for every state change. The façade
// only supplies event data; it never reads the trail back.
type AuditLogger interface {
	Record(ctx context.Context, event domain.AuditEvent) error
}

// IssueAnnouncement is the event payload handed to the dispatcher when an
// issue is announced.
type IssueAnnouncement struct {
	IssueID        int64  `json:"issue_id"`
	NewsletterID   int64  `json:"newsletter_id"`
	NewsletterName string `json:"newsletter_name"`
	PageRef        string `json:"page_ref"`
	Summary        string `json:"summary"`
	Actor          string `json:"actor"`
}

// NotificationDispatcher delivers issue announcements to subscribers.
// Dispatch is fire-and-forget: implementations log failures and never
// surface them, and may deliver asynchronously.
type NotificationDispatcher interface {
	DispatchIssueAnnounced(ctx context.Context, ann IssueAnnouncement)
}
