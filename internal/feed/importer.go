// Package feed imports RSS/Atom feed items as newsletter issues.
package feed

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mmcdole/gofeed"

	"github.com/quillhub/quillhub/internal/domain"
	"github.com/quillhub/quillhub/internal/pkg/distlock"
	"github.com/quillhub/quillhub/internal/service/newsletter"
)

// Announcer is the slice of the newsletter service the importer needs.
type Announcer interface {
	Announce(ctx context.Context, actor domain.Actor, id int64, pageRef, summary string) (*newsletter.AnnounceResult, error)
}

// Source binds a feed URL to the newsletter its items are announced on.
// The actor must hold the publisher role on that newsletter.
type Source struct {
	FeedURL      string `yaml:"feed_url"`
	NewsletterID int64  `yaml:"newsletter_id"`
	Actor        string `yaml:"actor"`
}

// SeenStore records announced feed items. The Postgres implementation
// survives restarts; without one, a restarted process would re-announce
// a feed's entire history.
type SeenStore interface {
	// MarkSeen records the item and reports whether it was newly recorded.
	MarkSeen(ctx context.Context, feedURL, guid string) (bool, error)
}

// memorySeen is the default SeenStore. Process-local only.
type memorySeen struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (m *memorySeen) MarkSeen(_ context.Context, feedURL, guid string) (bool, error) {
	key := feedURL + "\x00" + guid
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

// Importer polls RSS/Atom feeds and announces new items as issues.
type Importer struct {
	announcer Announcer
	parser    *gofeed.Parser
	sources   []Source
	lock      distlock.DistLock
	seen      SeenStore
}

// NewImporter creates an importer for the given sources.
func NewImporter(announcer Announcer, sources []Source) *Importer {
	return &Importer{
		announcer: announcer,
		parser:    gofeed.NewParser(),
		sources:   sources,
		seen:      &memorySeen{seen: make(map[string]bool)},
	}
}

// WithLock makes poll cycles mutually exclusive across replicas. Without a
// lock every replica polls and duplicate announcements are possible.
func (im *Importer) WithLock(lock distlock.DistLock) *Importer {
	im.lock = lock
	return im
}

// WithSeenStore replaces the in-memory dedupe state with a durable one.
func (im *Importer) WithSeenStore(store SeenStore) *Importer {
	im.seen = store
	return im
}

// PollResult summarizes a single poll of one source.
type PollResult struct {
	ItemsFound int
	NewItems   int
	Announced  int
}

// Run polls all sources on the given interval until the context is
// cancelled. The first poll happens immediately.
func (im *Importer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	im.pollAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			im.pollAll(ctx)
		}
	}
}

func (im *Importer) pollAll(ctx context.Context) {
	if im.lock != nil {
		ok, err := im.lock.Acquire(ctx)
		if err != nil {
			log.Printf("[feed] acquire poll lock: %v", err)
			return
		}
		if !ok {
			// Another replica is polling this cycle.
			return
		}
		defer func() {
			if err := im.lock.Release(ctx); err != nil {
				log.Printf("[feed] release poll lock: %v", err)
			}
		}()
	}

	for _, src := range im.sources {
		res, err := im.Poll(ctx, src)
		if err != nil {
			log.Printf("[feed] poll %s: %v", src.FeedURL, err)
			continue
		}
		if res.NewItems > 0 {
			log.Printf("[feed] %s: %d items, %d new, %d announced",
				src.FeedURL, res.ItemsFound, res.NewItems, res.Announced)
		}
	}
}

// Poll fetches one source and announces its unseen items, oldest first.
func (im *Importer) Poll(ctx context.Context, src Source) (*PollResult, error) {
	parsed, err := im.parser.ParseURLWithContext(src.FeedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	res := &PollResult{ItemsFound: len(parsed.Items)}
	actor := domain.Actor{ID: src.Actor, Authenticated: true}

	// Feeds list newest first. Announce in chronological order so
	// issue numbers follow publication order.
	for i := len(parsed.Items) - 1; i >= 0; i-- {
		item := parsed.Items[i]
		guid := item.GUID
		if guid == "" {
			guid = item.Link
		}
		if guid == "" {
			continue
		}
		isNew, err := im.seen.MarkSeen(ctx, src.FeedURL, guid)
		if err != nil {
			// Without the dedupe record the item could be announced
			// twice; skip it and let the next poll retry.
			log.Printf("[feed] mark seen %s: %v", guid, err)
			continue
		}
		if !isNew {
			continue
		}
		res.NewItems++

		pageRef := item.Link
		if pageRef == "" {
			pageRef = guid
		}
		summary := truncateSummary(item.Title)

		if _, err := im.announcer.Announce(ctx, actor, src.NewsletterID, pageRef, summary); err != nil {
			log.Printf("[feed] announce %q on newsletter %d: %v", summary, src.NewsletterID, err)
			continue
		}
		res.Announced++
	}
	return res, nil
}

// truncateSummary bounds a feed title to the summary limit without
// splitting a multi-byte rune.
func truncateSummary(s string) string {
	if len(s) <= domain.MaxSummaryLength {
		return s
	}
	cut := domain.MaxSummaryLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
