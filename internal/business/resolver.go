// Package business resolves per-phone-number dispatch configuration.
package business

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/models"
	"gorm.io/gorm"
)

// ErrNotConfigured indicates the dialed number has no dispatch
// configuration or AI dispatch is disabled for it. Not a failure: the
// caller routes to the static fallback greeting and escalation transfer.
var ErrNotConfigured = errors.New("business: number not configured for dispatch")

// Context is the read-only business configuration a call runs under.
type Context struct {
	CompanyName        string
	AgentName          string
	BusinessType       string
	Greeting           string
	DiagnosticPrice    float64
	EmergencySurcharge float64
	ServiceTypes       []string
	EscalationNumber   string
}

// ConfigStore loads raw configuration rows. Implemented by GormStore;
// mocked in tests.
type ConfigStore interface {
	GetByNumber(ctx context.Context, dialedNumber string) (*models.BusinessConfig, error)
}

// GormStore implements ConfigStore over the business_configs table.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a GormStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// GetByNumber fetches the configuration row for a dialed number.
// Returns gorm.ErrRecordNotFound when no row exists.
func (s *GormStore) GetByNumber(ctx context.Context, dialedNumber string) (*models.BusinessConfig, error) {
	var row models.BusinessConfig
	if err := s.db.WithContext(ctx).Where("phone_number = ?", dialedNumber).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// cacheEntry pairs a resolved Context with its expiry. A nil Context
// caches a NotConfigured answer so misconfigured numbers don't hammer
// the store on carrier retries.
type cacheEntry struct {
	ctx       *Context
	expiresAt time.Time
}

// Resolver resolves dialed numbers to business Contexts with a short
// TTL cache in front of the store. Configuration changes rarely; the
// cache trades seconds of staleness for one store read per call.
type Resolver struct {
	store ConfigStore
	ttl   time.Duration
	now   func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// ResolverOpts holds parameters for NewResolver.
type ResolverOpts struct {
	Store ConfigStore
	TTL   time.Duration // defaults to 60s
	Now   func() time.Time
}

// NewResolver creates a Resolver.
func NewResolver(opts ResolverOpts) (*Resolver, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("business: resolver: store is required")
	}
	if opts.TTL <= 0 {
		opts.TTL = 60 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Resolver{
		store: opts.Store,
		ttl:   opts.TTL,
		now:   opts.Now,
		cache: make(map[string]cacheEntry),
	}, nil
}

// Resolve returns the business Context for a dialed number, or
// ErrNotConfigured when the number has no row or dispatch is disabled.
func (r *Resolver) Resolve(ctx context.Context, dialedNumber string) (*Context, error) {
	r.mu.Lock()
	if entry, ok := r.cache[dialedNumber]; ok && r.now().Before(entry.expiresAt) {
		r.mu.Unlock()
		if entry.ctx == nil {
			return nil, ErrNotConfigured
		}
		return entry.ctx, nil
	}
	r.mu.Unlock()

	row, err := r.store.GetByNumber(ctx, dialedNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.put(dialedNumber, nil)
			return nil, ErrNotConfigured
		}
		return nil, fmt.Errorf("business: resolve %s: %w", dialedNumber, err)
	}
	if !row.DispatchEnabled {
		r.put(dialedNumber, nil)
		return nil, ErrNotConfigured
	}

	bc := fromModel(row)
	r.put(dialedNumber, bc)
	return bc, nil
}

// put stores a cache entry under the resolver TTL.
func (r *Resolver) put(dialedNumber string, bc *Context) {
	r.mu.Lock()
	r.cache[dialedNumber] = cacheEntry{ctx: bc, expiresAt: r.now().Add(r.ttl)}
	r.mu.Unlock()
}

// fromModel converts a configuration row to a Context, decoding the
// service-type JSON array. Malformed JSON degrades to an empty catalog.
func fromModel(row *models.BusinessConfig) *Context {
	var services []string
	if row.ServiceTypes != "" {
		if err := json.Unmarshal([]byte(row.ServiceTypes), &services); err != nil {
			services = nil
		}
	}
	return &Context{
		CompanyName:        row.CompanyName,
		AgentName:          row.AgentName,
		BusinessType:       row.BusinessType,
		Greeting:           row.Greeting,
		DiagnosticPrice:    row.DiagnosticPrice,
		EmergencySurcharge: row.EmergencySurcharge,
		ServiceTypes:       services,
		EscalationNumber:   row.EscalationNumber,
	}
}
