package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/quillhub/quillhub/internal/pkg/httpretry"
	"github.com/quillhub/quillhub/internal/service/newsletter"
)

// Endpoint is a single outgoing webhook target.
type Endpoint struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
	Enabled bool   `yaml:"enabled"`
}

// WebhookPayload is the JSON body posted to webhook endpoints.
type WebhookPayload struct {
	EventType    string    `json:"event_type"`
	Timestamp    time.Time `json:"timestamp"`
	IssueID      int64     `json:"issue_id"`
	NewsletterID int64     `json:"newsletter_id"`
	Newsletter   string    `json:"newsletter"`
	PageRef      string    `json:"page_ref"`
	Summary      string    `json:"summary"`
	Publisher    string    `json:"publisher"`
}

const eventIssueAnnounced = "newsletter.issue.announced"

// WebhookDispatcher posts issue announcements to configured endpoints.
// Each delivery runs in its own goroutine with linear-backoff retries.
type WebhookDispatcher struct {
	endpoints []Endpoint
	client    httpretry.HTTPDoer
	retries   int
	delay     time.Duration

	wg sync.WaitGroup
}

// NewWebhookDispatcher creates a dispatcher for the given endpoints.
func NewWebhookDispatcher(endpoints []Endpoint) *WebhookDispatcher {
	return &WebhookDispatcher{
		endpoints: endpoints,
		client:    &http.Client{Timeout: 10 * time.Second},
		retries:   3,
		delay:     time.Second,
	}
}

// DispatchIssueAnnounced sends the announcement to every enabled endpoint.
func (d *WebhookDispatcher) DispatchIssueAnnounced(ctx context.Context, ann newsletter.IssueAnnouncement) {
	payload := WebhookPayload{
		EventType:    eventIssueAnnounced,
		Timestamp:    time.Now().UTC(),
		IssueID:      ann.IssueID,
		NewsletterID: ann.NewsletterID,
		Newsletter:   ann.NewsletterName,
		PageRef:      ann.PageRef,
		Summary:      ann.Summary,
		Publisher:    ann.Actor,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[notify] webhook payload marshal error: %v", err)
		return
	}

	// Deliveries outlive the announce request: the caller's context is
	// canceled as soon as its response is written, which must not kill
	// in-flight or retrying sends.
	ctx = context.WithoutCancel(ctx)

	for _, ep := range d.endpoints {
		if !ep.Enabled {
			continue
		}
		d.wg.Add(1)
		go func(ep Endpoint) {
			defer d.wg.Done()
			d.deliver(ctx, ep, body)
		}(ep)
	}
}

// Wait blocks until all in-flight deliveries have finished.
func (d *WebhookDispatcher) Wait() { d.wg.Wait() }

func (d *WebhookDispatcher) deliver(ctx context.Context, ep Endpoint, body []byte) {
	var lastErr error
	for attempt := 1; attempt <= d.retries; attempt++ {
		if err := d.send(ctx, ep, body); err != nil {
			lastErr = err
			if attempt < d.retries {
				time.Sleep(d.delay * time.Duration(attempt))
			}
			continue
		}
		return
	}
	log.Printf("[notify] webhook %s delivery failed after %d attempts: %v", ep.Name, d.retries, lastErr)
}

func (d *WebhookDispatcher) send(ctx context.Context, ep Endpoint, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if ep.Secret != "" {
		mac := hmac.New(sha256.New, []byte(ep.Secret))
		mac.Write(body)
		req.Header.Set("X-Quillhub-Signature", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", ep.URL, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("post %s: unexpected status %d", ep.URL, resp.StatusCode)
	}
	return nil
}
