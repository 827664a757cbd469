package newsletter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/quillhub/quillhub/internal/domain"
	"github.com/quillhub/quillhub/internal/service/ledger"
	"github.com/quillhub/quillhub/internal/service/membership"
	"github.com/quillhub/quillhub/internal/service/registry"
)

// ---- in-memory fakes ----

type memRegistryRepo struct {
	mu        sync.Mutex
	nextID    int64
	rows      map[int64]*domain.Newsletter
	failCount int // transient errors to inject before Create succeeds
}

func newMemRegistryRepo() *memRegistryRepo {
	return &memRegistryRepo{rows: map[int64]*domain.Newsletter{}}
}

func (r *memRegistryRepo) Create(ctx context.Context, n *domain.Newsletter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCount > 0 {
		r.failCount--
		return 0, errors.New("connection reset")
	}
	for _, row := range r.rows {
		if row.Deleted {
			continue
		}
		if row.Name == n.Name {
			return 0, registry.ErrDuplicateName
		}
		if row.MainPageRef == n.MainPageRef {
			return 0, registry.ErrMainPageInUse
		}
	}
	r.nextID++
	cp := *n
	cp.ID = r.nextID
	r.rows[cp.ID] = &cp
	return cp.ID, nil
}

func (r *memRegistryRepo) Get(ctx context.Context, id int64) (*domain.Newsletter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[id]
	if !ok || n.Deleted {
		return nil, registry.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (r *memRegistryRepo) GetByMainPage(ctx context.Context, ref string) (*domain.Newsletter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.rows {
		if !n.Deleted && n.MainPageRef == ref {
			cp := *n
			return &cp, nil
		}
	}
	return nil, registry.ErrNotFound
}

func (r *memRegistryRepo) List(ctx context.Context, limit, offset int) ([]domain.Newsletter, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Newsletter
	for _, n := range r.rows {
		if !n.Deleted {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, len(out), nil
}

func (r *memRegistryRepo) MarkDeleted(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[id]
	if !ok || n.Deleted {
		return registry.ErrNotFound
	}
	n.Deleted = true
	return nil
}

type memberKey struct {
	nl   int64
	user string
	role domain.Role
}

type memMembershipRepo struct {
	mu   sync.Mutex
	seq  int
	rows map[memberKey]int
}

func newMemMembershipRepo() *memMembershipRepo {
	return &memMembershipRepo{rows: map[memberKey]int{}}
}

func (r *memMembershipRepo) Add(ctx context.Context, nl int64, user string, role domain.Role) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := memberKey{nl, user, role}
	if _, ok := r.rows[k]; ok {
		return false, nil
	}
	r.seq++
	r.rows[k] = r.seq
	return true, nil
}

func (r *memMembershipRepo) Remove(ctx context.Context, nl int64, user string, role domain.Role) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := memberKey{nl, user, role}
	if _, ok := r.rows[k]; !ok {
		return false, nil
	}
	delete(r.rows, k)
	return true, nil
}

func (r *memMembershipRepo) Has(ctx context.Context, nl int64, user string, role domain.Role) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rows[memberKey{nl, user, role}]
	return ok, nil
}

func (r *memMembershipRepo) Count(ctx context.Context, nl int64, role domain.Role) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for k := range r.rows {
		if k.nl == nl && k.role == role {
			count++
		}
	}
	return count, nil
}

func (r *memMembershipRepo) List(ctx context.Context, nl int64, role domain.Role, limit, offset int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	type entry struct {
		user string
		seq  int
	}
	var entries []entry
	for k, seq := range r.rows {
		if k.nl == nl && k.role == role {
			entries = append(entries, entry{k.user, seq})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	var out []string
	for i, e := range entries {
		if i < offset {
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, e.user)
	}
	return out, nil
}

func (r *memMembershipRepo) PurgeNewsletter(ctx context.Context, nl int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.rows {
		if k.nl == nl {
			delete(r.rows, k)
		}
	}
	return nil
}

type memLedgerRepo struct {
	mu     sync.Mutex
	nextID int64
	issues []domain.Issue
}

func (r *memLedgerRepo) Insert(ctx context.Context, issue *domain.Issue) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	cp := *issue
	cp.ID = r.nextID
	r.issues = append(r.issues, cp)
	return cp.ID, nil
}

func (r *memLedgerRepo) Get(ctx context.Context, issueID int64) (*domain.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, is := range r.issues {
		if is.ID == issueID {
			cp := is
			return &cp, nil
		}
	}
	return nil, ledger.ErrIssueNotFound
}

func (r *memLedgerRepo) ListRecent(ctx context.Context, nl int64, limit int) ([]domain.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Issue
	for i := len(r.issues) - 1; i >= 0 && len(out) < limit; i-- {
		if r.issues[i].NewsletterID == nl {
			out = append(out, r.issues[i])
		}
	}
	return out, nil
}

type fakeContent struct {
	missing         map[string]bool
	notAnnounceable map[string]bool
}

func (c *fakeContent) Exists(ctx context.Context, ref string) (bool, error) {
	return !c.missing[ref], nil
}

func (c *fakeContent) Announceable(ctx context.Context, ref string) (bool, error) {
	return !c.notAnnounceable[ref], nil
}

type fakeIdentity struct {
	mu         sync.Mutex
	blocked    map[string]bool
	denyCreate bool
	admins     map[string]bool
	pings      map[string]int
	overAfter  map[string]int // limiter key -> pings allowed before over
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		blocked: map[string]bool{},
		admins:  map[string]bool{},
		pings:   map[string]int{},
	}
}

func (f *fakeIdentity) IsBlocked(ctx context.Context, actor domain.Actor) (bool, error) {
	return f.blocked[actor.ID], nil
}

func (f *fakeIdentity) CanCreate(ctx context.Context, actor domain.Actor) (bool, error) {
	return !f.denyCreate, nil
}

func (f *fakeIdentity) CanManage(ctx context.Context, id int64, actor domain.Actor) (bool, error) {
	return f.admins[actor.ID], nil
}

func (f *fakeIdentity) PingLimiter(ctx context.Context, key string, actor domain.Actor) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key + ":" + actor.ID
	f.pings[k]++
	if f.overAfter == nil {
		return false, nil
	}
	max, ok := f.overAfter[key]
	return ok && f.pings[k] > max, nil
}

type fakeAudit struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (f *fakeAudit) Record(ctx context.Context, event domain.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeAudit) byKind(kind domain.AuditKind) []domain.AuditEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.AuditEvent
	for _, e := range f.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type fakeNotify struct {
	mu   sync.Mutex
	anns []IssueAnnouncement
}

func (f *fakeNotify) DispatchIssueAnnounced(ctx context.Context, ann IssueAnnouncement) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.anns = append(f.anns, ann)
}

type env struct {
	svc      *Service
	regRepo  *memRegistryRepo
	memRepo  *memMembershipRepo
	ledRepo  *memLedgerRepo
	content  *fakeContent
	identity *fakeIdentity
	audit    *fakeAudit
	notify   *fakeNotify
}

func newEnv() *env {
	e := &env{
		regRepo:  newMemRegistryRepo(),
		memRepo:  newMemMembershipRepo(),
		ledRepo:  &memLedgerRepo{},
		content:  &fakeContent{missing: map[string]bool{}, notAnnounceable: map[string]bool{}},
		identity: newFakeIdentity(),
		audit:    &fakeAudit{},
		notify:   &fakeNotify{},
	}
	members := membership.NewStore(e.memRepo)
	reg := registry.NewService(e.regRepo, members)
	issues := ledger.NewService(e.ledRepo, reg)
	e.svc = NewService(reg, members, issues, e.content, e.identity, e.audit, e.notify)
	return e
}

var (
	amara = domain.Actor{ID: "amara@example.org", Authenticated: true}
	bob   = domain.Actor{ID: "bob@example.org", Authenticated: true}
	eve   = domain.Actor{ID: "eve@example.org", Authenticated: true}
	anon  = domain.Actor{}
)

// ---- tests ----

func TestCreateAnnounceLifecycle(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	id, err := e.svc.Create(ctx, amara, "Tech Digest", "weekly tech roundup", "Tech_Digest_Home")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Creator starts subscribed and publishing.
	view, err := e.svc.View(ctx, amara, id)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if !view.IsSubscribed || !view.IsPublisher {
		t.Fatalf("creator should be subscriber and publisher, got %+v", view)
	}
	if view.SubscriberCount != 1 {
		t.Fatalf("expected 1 subscriber, got %d", view.SubscriberCount)
	}

	// A reader subscribes.
	changed, err := e.svc.Subscribe(ctx, bob, id)
	if err != nil || !changed {
		t.Fatalf("subscribe: changed=%v err=%v", changed, err)
	}
	// Subscribing twice changes nothing.
	changed, err = e.svc.Subscribe(ctx, bob, id)
	if err != nil || changed {
		t.Fatalf("resubscribe should be a no-op: changed=%v err=%v", changed, err)
	}

	res, err := e.svc.Announce(ctx, amara, id, "Issue_1", "Our first issue")
	if err != nil {
		t.Fatalf("announce: %v", err)
	}
	if res.IssueID != 1 {
		t.Fatalf("expected issue ID 1, got %d", res.IssueID)
	}
	if res.SubscriberCount != 2 {
		t.Fatalf("expected 2 subscribers in result, got %d", res.SubscriberCount)
	}

	// Exactly one dispatch with the announcement data.
	if len(e.notify.anns) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(e.notify.anns))
	}
	ann := e.notify.anns[0]
	if ann.NewsletterName != "Tech Digest" || ann.PageRef != "Issue_1" || ann.Actor != amara.ID {
		t.Fatalf("unexpected announcement payload: %+v", ann)
	}

	// Audit trail: one created, one issue-added.
	if got := len(e.audit.byKind(domain.AuditNewsletterCreated)); got != 1 {
		t.Fatalf("expected 1 created audit event, got %d", got)
	}
	added := e.audit.byKind(domain.AuditIssueAdded)
	if len(added) != 1 {
		t.Fatalf("expected 1 issue-added audit event, got %d", len(added))
	}
	if added[0].Params["issue_id"] != "1" {
		t.Fatalf("issue-added audit params = %v", added[0].Params)
	}

	view, err = e.svc.View(ctx, bob, id)
	if err != nil {
		t.Fatalf("view after announce: %v", err)
	}
	if len(view.RecentIssues) != 1 || view.RecentIssues[0].PageRef != "Issue_1" {
		t.Fatalf("unexpected recent issues: %+v", view.RecentIssues)
	}
	if view.IsPublisher {
		t.Fatal("reader should not be a publisher")
	}
}

func TestCreateAuthorization(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	if _, err := e.svc.Create(ctx, anon, "News", "d", "News_Home"); !errors.Is(err, ErrLoginRequired) {
		t.Fatalf("anonymous create: expected ErrLoginRequired, got %v", err)
	}

	e.identity.blocked[eve.ID] = true
	if _, err := e.svc.Create(ctx, eve, "News", "d", "News_Home"); !errors.Is(err, ErrActorBlocked) {
		t.Fatalf("blocked create: expected ErrActorBlocked, got %v", err)
	}

	e.identity.denyCreate = true
	if _, err := e.svc.Create(ctx, bob, "News", "d", "News_Home"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("denied create: expected ErrUnauthorized, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	longName := make([]byte, domain.MaxNameLength+1)
	for i := range longName {
		longName[i] = 'x'
	}
	if _, err := e.svc.Create(ctx, amara, string(longName), "d", "P"); !IsValidation(err) {
		t.Fatalf("long name: expected validation error, got %v", err)
	}
	if _, err := e.svc.Create(ctx, amara, "  ", "d", "P"); !IsValidation(err) {
		t.Fatalf("blank name: expected validation error, got %v", err)
	}
	if _, err := e.svc.Create(ctx, amara, "News", "d", ""); !IsValidation(err) {
		t.Fatalf("missing main page: expected validation error, got %v", err)
	}

	e.content.missing["Ghost_Page"] = true
	if _, err := e.svc.Create(ctx, amara, "News", "d", "Ghost_Page"); !errors.Is(err, ErrPageNotFound) {
		t.Fatalf("missing page: expected ErrPageNotFound, got %v", err)
	}
}

func TestCreateUniqueness(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	if _, err := e.svc.Create(ctx, amara, "Tech Digest", "d", "Page_A"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := e.svc.Create(ctx, bob, "Tech Digest", "d", "Page_B"); !errors.Is(err, registry.ErrDuplicateName) {
		t.Fatalf("duplicate name: expected ErrDuplicateName, got %v", err)
	}
	if _, err := e.svc.Create(ctx, bob, "Other News", "d", "Page_A"); !errors.Is(err, registry.ErrMainPageInUse) {
		t.Fatalf("duplicate main page: expected ErrMainPageInUse, got %v", err)
	}
}

func TestConcurrentCreateOneWinner(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	const workers = 10
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor := domain.Actor{ID: fmt.Sprintf("user%d@example.org", i), Authenticated: true}
			_, err := e.svc.Create(ctx, actor, "Tech Digest", "d", fmt.Sprintf("Page_%d", i))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	wins, dups := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, registry.ErrDuplicateName):
			dups++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || dups != workers-1 {
		t.Fatalf("expected exactly one winner, got %d wins and %d duplicates", wins, dups)
	}
}

func TestConcurrentSubscribeSingleRow(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	id, err := e.svc.Create(ctx, amara, "Tech Digest", "d", "Page_A")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.svc.Subscribe(ctx, bob, id); err != nil {
				t.Errorf("subscribe: %v", err)
			}
		}()
	}
	wg.Wait()

	count, err := e.memRepo.Count(ctx, id, domain.RoleSubscriber)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	// Creator plus bob, regardless of how the concurrent subscribes raced.
	if count != 2 {
		t.Fatalf("expected 2 subscriber rows, got %d", count)
	}
}

func TestAnnounceByNonPublisher(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	id, err := e.svc.Create(ctx, amara, "Tech Digest", "d", "Page_A")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := e.svc.Announce(ctx, bob, id, "Issue_1", "s"); !errors.Is(err, ErrNotPublisher) {
		t.Fatalf("expected ErrNotPublisher, got %v", err)
	}

	// No ledger row and no audit entry for the refused announcement.
	if len(e.ledRepo.issues) != 0 {
		t.Fatalf("refused announce left %d ledger rows", len(e.ledRepo.issues))
	}
	if got := len(e.audit.byKind(domain.AuditIssueAdded)); got != 0 {
		t.Fatalf("refused announce left %d audit events", got)
	}
	if len(e.notify.anns) != 0 {
		t.Fatalf("refused announce dispatched %d notifications", len(e.notify.anns))
	}
}

func TestAnnouncePageChecks(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	id, err := e.svc.Create(ctx, amara, "Tech Digest", "d", "Page_A")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	e.content.missing["Ghost"] = true
	if _, err := e.svc.Announce(ctx, amara, id, "Ghost", "s"); !errors.Is(err, ErrPageNotFound) {
		t.Fatalf("missing page: expected ErrPageNotFound, got %v", err)
	}

	e.content.notAnnounceable["Cat.jpg"] = true
	if _, err := e.svc.Announce(ctx, amara, id, "Cat.jpg", "s"); !errors.Is(err, ErrInvalidPage) {
		t.Fatalf("media page: expected ErrInvalidPage, got %v", err)
	}

	longSummary := make([]byte, domain.MaxSummaryLength+1)
	for i := range longSummary {
		longSummary[i] = 's'
	}
	if _, err := e.svc.Announce(ctx, amara, id, "Issue_1", string(longSummary)); !IsValidation(err) {
		t.Fatalf("long summary: expected validation error, got %v", err)
	}
}

func TestAnnounceRateLimited(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	id, err := e.svc.Create(ctx, amara, "Tech Digest", "d", "Page_A")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	e.identity.overAfter = map[string]int{"newsletter-announce": 2}
	for i := 0; i < 2; i++ {
		if _, err := e.svc.Announce(ctx, amara, id, fmt.Sprintf("Issue_%d", i), "s"); err != nil {
			t.Fatalf("announce %d: %v", i, err)
		}
	}
	if _, err := e.svc.Announce(ctx, amara, id, "Issue_3", "s"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if len(e.ledRepo.issues) != 2 {
		t.Fatalf("limited announce wrote a ledger row: %d rows", len(e.ledRepo.issues))
	}
}

func TestDeleteCascades(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.identity.admins[amara.ID] = true

	id, err := e.svc.Create(ctx, amara, "Tech Digest", "d", "Page_A")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.svc.Subscribe(ctx, bob, id); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	res, err := e.svc.Announce(ctx, amara, id, "Issue_1", "s")
	if err != nil {
		t.Fatalf("announce: %v", err)
	}

	// Non-manager cannot delete.
	if err := e.svc.Delete(ctx, bob, id); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-manager delete: expected ErrUnauthorized, got %v", err)
	}

	if err := e.svc.Delete(ctx, amara, id); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := e.svc.View(ctx, bob, id); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("view after delete: expected ErrNotFound, got %v", err)
	}
	if _, err := e.svc.Announce(ctx, amara, id, "Issue_2", "s"); !errors.Is(err, ledger.ErrUnknownNewsletter) {
		t.Fatalf("announce after delete: expected ErrUnknownNewsletter, got %v", err)
	}

	// Membership rows are purged.
	if count, _ := e.memRepo.Count(ctx, id, domain.RoleSubscriber); count != 0 {
		t.Fatalf("expected purged subscribers, got %d", count)
	}

	// Historical issues survive.
	issue, err := e.svc.Issue(ctx, res.IssueID)
	if err != nil {
		t.Fatalf("issue lookup after delete: %v", err)
	}
	if issue.PageRef != "Issue_1" {
		t.Fatalf("unexpected issue: %+v", issue)
	}

	if got := len(e.audit.byKind(domain.AuditNewsletterRemoved)); got != 1 {
		t.Fatalf("expected 1 removed audit event, got %d", got)
	}

	// Name and main page are free for reuse.
	if _, err := e.svc.Create(ctx, amara, "Tech Digest", "d", "Page_A"); err != nil {
		t.Fatalf("recreate after delete: %v", err)
	}
}

func TestManagePublisher(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.identity.admins[amara.ID] = true

	id, err := e.svc.Create(ctx, amara, "Tech Digest", "d", "Page_A")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := e.svc.ManagePublisher(ctx, bob, id, eve.ID, true); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-manager grant: expected ErrUnauthorized, got %v", err)
	}

	changed, err := e.svc.ManagePublisher(ctx, amara, id, eve.ID, true)
	if err != nil || !changed {
		t.Fatalf("grant: changed=%v err=%v", changed, err)
	}
	// Granting again changes nothing and records no audit event.
	changed, err = e.svc.ManagePublisher(ctx, amara, id, eve.ID, true)
	if err != nil || changed {
		t.Fatalf("regrant should be a no-op: changed=%v err=%v", changed, err)
	}
	if got := len(e.audit.byKind(domain.AuditPublisherAdded)); got != 1 {
		t.Fatalf("expected 1 publisher-added audit event, got %d", got)
	}

	// The new publisher can announce.
	if _, err := e.svc.Announce(ctx, eve, id, "Issue_1", "s"); err != nil {
		t.Fatalf("announce by granted publisher: %v", err)
	}

	changed, err = e.svc.ManagePublisher(ctx, amara, id, eve.ID, false)
	if err != nil || !changed {
		t.Fatalf("revoke: changed=%v err=%v", changed, err)
	}
	if _, err := e.svc.Announce(ctx, eve, id, "Issue_2", "s"); !errors.Is(err, ErrNotPublisher) {
		t.Fatalf("announce after revoke: expected ErrNotPublisher, got %v", err)
	}
}

func TestStorageRetry(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	// One transient failure: the retry succeeds.
	e.regRepo.failCount = 1
	if _, err := e.svc.Create(ctx, amara, "Tech Digest", "d", "Page_A"); err != nil {
		t.Fatalf("create with one transient failure: %v", err)
	}

	// Two failures in a row: surfaced as ErrStorage.
	e.regRepo.failCount = 2
	if _, err := e.svc.Create(ctx, amara, "Other News", "d", "Page_B"); !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

func TestSubscribersManagerOnly(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.identity.admins[amara.ID] = true

	id, err := e.svc.Create(ctx, amara, "Tech Digest", "d", "Page_A")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.svc.Subscribe(ctx, bob, id); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if _, err := e.svc.Subscribers(ctx, bob, id, 0, 0); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-manager list: expected ErrUnauthorized, got %v", err)
	}

	subs, err := e.svc.Subscribers(ctx, amara, id, 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 2 || subs[0] != amara.ID || subs[1] != bob.ID {
		t.Fatalf("expected insertion order [amara bob], got %v", subs)
	}
}
