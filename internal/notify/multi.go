package notify

import (
	"context"

	"github.com/quillhub/quillhub/internal/service/newsletter"
)

// Multi fans an announcement out to several dispatchers.
type Multi []newsletter.NotificationDispatcher

// NewMulti builds a fan-out dispatcher, skipping nil entries.
func NewMulti(dispatchers ...newsletter.NotificationDispatcher) Multi {
	out := make(Multi, 0, len(dispatchers))
	for _, d := range dispatchers {
		if d != nil {
			out = append(out, d)
		}
	}
	return out
}

// DispatchIssueAnnounced forwards the announcement to every dispatcher.
func (m Multi) DispatchIssueAnnounced(ctx context.Context, ann newsletter.IssueAnnouncement) {
	for _, d := range m {
		d.DispatchIssueAnnounced(ctx, ann)
	}
}
