package newsletter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/quillhub/quillhub/internal/domain"
	"github.com/quillhub/quillhub/internal/service/ledger"
	"github.com/quillhub/quillhub/internal/service/membership"
	"github.com/quillhub/quillhub/internal/service/registry"
)

// Rate limiter keys, one fixed window per actor per key.
const (
	limiterKeyCreate   = "newsletter"
	limiterKeyAnnounce = "newsletter-announce"
)

// Service is the orchestrating façade over the registry, membership store,
// and issue ledger. All public methods are safe for concurrent use.
type Service struct {
	registry *registry.Service
	members  *membership.Store
	issues   *ledger.Service
	content  ContentStore
	identity Identity
	audit    AuditLogger
	notify   NotificationDispatcher
}

// NewService wires the façade. audit and notify may be nil, in which case
// the corresponding side effects are skipped (useful for tooling).
func NewService(
	reg *registry.Service,
	members *membership.Store,
	issues *ledger.Service,
	content ContentStore,
	identity Identity,
	audit AuditLogger,
	notify NotificationDispatcher,
) *Service {
	return &Service{
		registry: reg,
		members:  members,
		issues:   issues,
		content:  content,
		identity: identity,
		audit:    audit,
		notify:   notify,
	}
}

// ViewResult aggregates everything the default newsletter page shows: the
// newsletter itself, its subscriber count, recent issues, and the viewing
// actor's relationship to it (which decides the actions offered).
type ViewResult struct {
	Newsletter      domain.Newsletter `json:"newsletter"`
	SubscriberCount int               `json:"subscriber_count"`
	RecentIssues    []domain.Issue    `json:"recent_issues"`
	IsSubscribed    bool              `json:"is_subscribed"`
	IsPublisher     bool              `json:"is_publisher"`
	CanManage       bool              `json:"can_manage"`
}

// AnnounceResult reports a successful announcement.
type AnnounceResult struct {
	IssueID         int64 `json:"issue_id"`
	SubscriberCount int   `json:"subscriber_count"`
}

// Create validates and creates a newsletter. The creator is auto-subscribed
// and auto-added as publisher.
func (s *Service) Create(ctx context.Context, actor domain.Actor, name, description, mainPageRef string) (int64, error) {
	if !actor.Authenticated {
		return 0, ErrLoginRequired
	}
	if err := s.checkBlocked(ctx, actor); err != nil {
		return 0, err
	}
	ok, err := s.identity.CanCreate(ctx, actor)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if !ok {
		return 0, ErrUnauthorized
	}

	name = strings.TrimSpace(name)
	if !domain.ValidName(name) {
		return 0, &ValidationError{Field: "name", Reason: fmt.Sprintf("must be 1-%d characters", domain.MaxNameLength)}
	}
	if !domain.ValidDescription(description) {
		return 0, &ValidationError{Field: "description", Reason: "too long"}
	}
	if strings.TrimSpace(mainPageRef) == "" {
		return 0, &ValidationError{Field: "main_page", Reason: "required"}
	}
	exists, err := s.content.Exists(ctx, mainPageRef)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if !exists {
		return 0, ErrPageNotFound
	}

	if err := s.pingLimiter(ctx, limiterKeyCreate, actor); err != nil {
		return 0, err
	}

	var id int64
	err = s.storageRetry(func() error {
		var cerr error
		id, cerr = s.registry.Create(ctx, name, description, mainPageRef)
		return cerr
	})
	if err != nil {
		return 0, err
	}

	// The original behavior: creators start subscribed and publishing. These
	// writes are idempotent; a failure leaves a usable newsletter, so log
	// and continue.
	if _, err := s.members.Subscribe(ctx, id, actor.ID); err != nil {
		log.Printf("[newsletter.Service] auto-subscribe creator %s to %d: %v", actor.ID, id, err)
	}
	if _, err := s.members.AddPublisher(ctx, id, actor.ID); err != nil {
		log.Printf("[newsletter.Service] auto-add publisher %s to %d: %v", actor.ID, id, err)
	}

	// Providers that track manage grants locally get told about the creator.
	if g, ok := s.identity.(interface{ GrantManage(int64, string) }); ok {
		g.GrantManage(id, actor.ID)
	}

	s.record(ctx, domain.AuditNewsletterCreated, actor, id, name, nil)
	return id, nil
}

// Delete removes a newsletter and cascades to its membership rows. Issues
// are retained as history.
func (s *Service) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	if !actor.Authenticated {
		return ErrLoginRequired
	}
	n, err := s.registry.Get(ctx, id)
	if err != nil {
		return err
	}
	ok, err := s.identity.CanManage(ctx, id, actor)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if !ok {
		return ErrUnauthorized
	}

	s.record(ctx, domain.AuditNewsletterRemoved, actor, n.ID, n.Name, nil)
	return s.storageRetry(func() error {
		return s.registry.Delete(ctx, id)
	})
}

// Subscribe adds the actor to the newsletter's subscriber set. Idempotent;
// returns false if the actor was already subscribed.
func (s *Service) Subscribe(ctx context.Context, actor domain.Actor, id int64) (bool, error) {
	return s.toggleSubscription(ctx, actor, id, true)
}

// Unsubscribe removes the actor from the subscriber set. Idempotent; returns
// false if the actor was not subscribed.
func (s *Service) Unsubscribe(ctx context.Context, actor domain.Actor, id int64) (bool, error) {
	return s.toggleSubscription(ctx, actor, id, false)
}

func (s *Service) toggleSubscription(ctx context.Context, actor domain.Actor, id int64, subscribe bool) (bool, error) {
	if !actor.Authenticated {
		return false, ErrLoginRequired
	}
	if _, err := s.registry.Get(ctx, id); err != nil {
		return false, err
	}

	var changed bool
	err := s.storageRetry(func() error {
		var terr error
		if subscribe {
			changed, terr = s.members.Subscribe(ctx, id, actor.ID)
		} else {
			changed, terr = s.members.Unsubscribe(ctx, id, actor.ID)
		}
		return terr
	})
	return changed, err
}

// Announce records a new issue for the newsletter and notifies subscribers.
// The ledger write is the durable fact; notification delivery is best-effort
// and its failure never surfaces here.
func (s *Service) Announce(ctx context.Context, actor domain.Actor, id int64, pageRef, summary string) (*AnnounceResult, error) {
	if !actor.Authenticated {
		return nil, ErrLoginRequired
	}
	if err := s.checkBlocked(ctx, actor); err != nil {
		return nil, err
	}

	n, err := s.registry.Get(ctx, id)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, ledger.ErrUnknownNewsletter
		}
		return nil, err
	}

	isPub, err := s.members.IsPublisher(ctx, id, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if !isPub {
		return nil, ErrNotPublisher
	}

	if strings.TrimSpace(pageRef) == "" {
		return nil, &ValidationError{Field: "page", Reason: "required"}
	}
	exists, err := s.content.Exists(ctx, pageRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if !exists {
		return nil, ErrPageNotFound
	}
	ok, err := s.content.Announceable(ctx, pageRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if !ok {
		return nil, ErrInvalidPage
	}

	summary = strings.TrimSpace(summary)
	if !domain.ValidSummary(summary) {
		return nil, &ValidationError{Field: "summary", Reason: fmt.Sprintf("at most %d characters", domain.MaxSummaryLength)}
	}

	if err := s.pingLimiter(ctx, limiterKeyAnnounce, actor); err != nil {
		return nil, err
	}

	var issueID int64
	err = s.storageRetry(func() error {
		var aerr error
		issueID, aerr = s.issues.Announce(ctx, id, pageRef, actor.ID, summary)
		return aerr
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, domain.AuditIssueAdded, actor, n.ID, n.Name, map[string]string{
		"issue_id": fmt.Sprintf("%d", issueID),
	})

	if s.notify != nil {
		s.notify.DispatchIssueAnnounced(ctx, IssueAnnouncement{
			IssueID:        issueID,
			NewsletterID:   n.ID,
			NewsletterName: n.Name,
			PageRef:        pageRef,
			Summary:        summary,
			Actor:          actor.ID,
		})
	}

	count, err := s.members.SubscriberCount(ctx, id)
	if err != nil {
		// Cosmetic for the success message; the announcement already stands.
		log.Printf("[newsletter.Service] subscriber count for %d: %v", id, err)
		count = 0
	}
	return &AnnounceResult{IssueID: issueID, SubscriberCount: count}, nil
}

// ManagePublisher grants or revokes the publisher role on behalf of a
// manager. Returns false if the membership was already in the target state.
func (s *Service) ManagePublisher(ctx context.Context, actor domain.Actor, id int64, userID string, add bool) (bool, error) {
	if !actor.Authenticated {
		return false, ErrLoginRequired
	}
	n, err := s.registry.Get(ctx, id)
	if err != nil {
		return false, err
	}
	ok, err := s.identity.CanManage(ctx, id, actor)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if !ok {
		return false, ErrUnauthorized
	}
	if strings.TrimSpace(userID) == "" {
		return false, &ValidationError{Field: "user", Reason: "required"}
	}

	var changed bool
	err = s.storageRetry(func() error {
		var merr error
		if add {
			changed, merr = s.members.AddPublisher(ctx, id, userID)
		} else {
			changed, merr = s.members.RemovePublisher(ctx, id, userID)
		}
		return merr
	})
	if err != nil {
		return false, err
	}

	if changed {
		kind := domain.AuditPublisherAdded
		if !add {
			kind = domain.AuditPublisherRemoved
		}
		s.record(ctx, kind, actor, n.ID, n.Name, map[string]string{"user": userID})
	}
	return changed, nil
}

// View returns the newsletter together with the actor's relationship to it.
// Anonymous actors get a view with all action flags false.
func (s *Service) View(ctx context.Context, actor domain.Actor, id int64) (*ViewResult, error) {
	n, err := s.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	count, err := s.members.SubscriberCount(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	recent, err := s.issues.ListRecent(ctx, id, 10)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	v := &ViewResult{
		Newsletter:      *n,
		SubscriberCount: count,
		RecentIssues:    recent,
	}
	if actor.Authenticated {
		if v.IsSubscribed, err = s.members.IsSubscribed(ctx, id, actor.ID); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
		if v.IsPublisher, err = s.members.IsPublisher(ctx, id, actor.ID); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
		if v.CanManage, err = s.identity.CanManage(ctx, id, actor); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
	}
	return v, nil
}

// Subscribers lists the newsletter's subscribers in insertion order. Only
// managers may see the list.
func (s *Service) Subscribers(ctx context.Context, actor domain.Actor, id int64, limit, offset int) ([]string, error) {
	if !actor.Authenticated {
		return nil, ErrLoginRequired
	}
	if _, err := s.registry.Get(ctx, id); err != nil {
		return nil, err
	}
	ok, err := s.identity.CanManage(ctx, id, actor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if !ok {
		return nil, ErrUnauthorized
	}
	return s.members.ListSubscribers(ctx, id, limit, offset)
}

func (s *Service) checkBlocked(ctx context.Context, actor domain.Actor) error {
	blocked, err := s.identity.IsBlocked(ctx, actor)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if blocked {
		return ErrActorBlocked
	}
	return nil
}

func (s *Service) pingLimiter(ctx context.Context, key string, actor domain.Actor) error {
	over, err := s.identity.PingLimiter(ctx, key, actor)
	if err != nil {
		// A broken limiter should not take writes down with it.
		log.Printf("[newsletter.Service] rate limiter %q for %s: %v", key, actor.ID, err)
		return nil
	}
	if over {
		return ErrRateLimited
	}
	return nil
}

// record emits an audit event. Audit failures are logged, not surfaced: the
// durable domain write has already happened (or is about to, for deletes).
func (s *Service) record(ctx context.Context, kind domain.AuditKind, actor domain.Actor, id int64, name string, params map[string]string) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, domain.AuditEvent{
		Kind:           kind,
		Actor:          actor.ID,
		NewsletterID:   id,
		NewsletterName: name,
		Params:         params,
	})
	if err != nil {
		log.Printf("[newsletter.Service] audit %s for newsletter %d: %v", kind, id, err)
	}
}

// storageRetry runs op, retrying exactly once on a transient storage error.
// Typed domain errors are permanent and returned as-is; a second transient
// failure surfaces as ErrStorage.
func (s *Service) storageRetry(op func() error) error {
	err := op()
	if err == nil || permanent(err) {
		return err
	}
	log.Printf("[newsletter.Service] retrying after storage error: %v", err)
	if err = op(); err == nil || permanent(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStorage, err)
}

func permanent(err error) bool {
	if IsValidation(err) {
		return true
	}
	for _, sentinel := range []error{
		registry.ErrNotFound,
		registry.ErrDuplicateName,
		registry.ErrMainPageInUse,
		ledger.ErrUnknownNewsletter,
		ledger.ErrIssueNotFound,
		ErrLoginRequired,
		ErrNotPublisher,
		ErrUnauthorized,
		ErrActorBlocked,
		ErrRateLimited,
		ErrPageNotFound,
		ErrInvalidPage,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// Issue returns a single issue by ID. Issues survive their newsletter's
// deletion, so this works for orphaned history too.
func (s *Service) Issue(ctx context.Context, issueID int64) (*domain.Issue, error) {
	return s.issues.Get(ctx, issueID)
}

// RecentIssues lists a newsletter's issues, most recent first.
func (s *Service) RecentIssues(ctx context.Context, id int64, limit int) ([]domain.Issue, error) {
	return s.issues.ListRecent(ctx, id, limit)
}

// Newsletters lists live newsletters for the index page.
func (s *Service) Newsletters(ctx context.Context, limit, offset int) ([]domain.Newsletter, int, error) {
	return s.registry.List(ctx, limit, offset)
}
