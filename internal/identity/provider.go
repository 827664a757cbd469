// Package identity supplies the externally owned authorization decisions
// for the newsletter service: global blocks, the creation capability, the
// per-newsletter manage predicate, and the per-actor rate limiter.
//
// The default Provider is config-backed: blocklist and admin list come from
// the config file, manage grants can be added at runtime, and rate limiting
// delegates to the Redis limiter.
package identity

import (
	"context"
	"sync"

	"github.com/quillhub/quillhub/internal/domain"
)

// RateLimiter is satisfied by ratelimit.Limiter.
type RateLimiter interface {
	Ping(ctx context.Context, key, actorID string) (bool, error)
}

// Provider implements the façade's Identity interface. Safe for concurrent
// use.
type Provider struct {
	mu       sync.RWMutex
	blocked  map[string]bool
	admins   map[string]bool
	creators map[string]bool // empty: any authenticated actor may create
	managers map[int64]map[string]bool
	limiter  RateLimiter
}

// Config sets up a Provider.
type Config struct {
	BlockedActors []string
	Admins        []string
	Creators      []string
}

// NewProvider creates a provider. limiter may be nil, in which case no
// action is ever rate limited.
func NewProvider(cfg Config, limiter RateLimiter) *Provider {
	p := &Provider{
		blocked:  make(map[string]bool),
		admins:   make(map[string]bool),
		creators: make(map[string]bool),
		managers: make(map[int64]map[string]bool),
		limiter:  limiter,
	}
	for _, a := range cfg.BlockedActors {
		p.blocked[a] = true
	}
	for _, a := range cfg.Admins {
		p.admins[a] = true
	}
	for _, a := range cfg.Creators {
		p.creators[a] = true
	}
	return p
}

// IsBlocked reports whether the actor is globally blocked.
func (p *Provider) IsBlocked(_ context.Context, actor domain.Actor) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.blocked[actor.ID], nil
}

// CanCreate reports whether the actor may create newsletters. With an empty
// creator list, any authenticated actor qualifies.
func (p *Provider) CanCreate(_ context.Context, actor domain.Actor) (bool, error) {
	if !actor.Authenticated {
		return false, nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.creators) == 0 {
		return true, nil
	}
	return p.creators[actor.ID] || p.admins[actor.ID], nil
}

// CanManage reports whether the actor may administer the newsletter.
func (p *Provider) CanManage(_ context.Context, newsletterID int64, actor domain.Actor) (bool, error) {
	if !actor.Authenticated {
		return false, nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.admins[actor.ID] {
		return true, nil
	}
	return p.managers[newsletterID][actor.ID], nil
}

// PingLimiter counts one action and reports true when over the limit.
func (p *Provider) PingLimiter(ctx context.Context, key string, actor domain.Actor) (bool, error) {
	if p.limiter == nil {
		return false, nil
	}
	return p.limiter.Ping(ctx, key, actor.ID)
}

// GrantManage lets the actor administer the newsletter. The creation flow
// grants this to creators so they can curate their own publisher set.
func (p *Provider) GrantManage(newsletterID int64, actorID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.managers[newsletterID] == nil {
		p.managers[newsletterID] = make(map[string]bool)
	}
	p.managers[newsletterID][actorID] = true
}

// RevokeManage removes a manage grant.
func (p *Provider) RevokeManage(newsletterID int64, actorID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.managers[newsletterID], actorID)
}

// Block adds an actor to the global blocklist.
func (p *Provider) Block(actorID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blocked[actorID] = true
}
