package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/inventario-core/internal/application/inventory"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
)

var _ inventory.AvailabilityCache = (*InMemoryAvailabilityCache)(nil)

// DefaultTTL vigencia de una vista ATP cuando no se configura otra.
const DefaultTTL = 30 * time.Second

type groupKey struct{ tenantID, itemID string }

type entry struct {
	view      entity.AvailabilityView
	expiresAt time.Time
}

// group vistas de un (tenant, ítem) y su generación.
type group struct {
	gen     int64
	entries map[string]entry
}

// InMemoryAvailabilityCache caché ATP del proceso (una sola instancia).
type InMemoryAvailabilityCache struct {
	mu     sync.Mutex
	groups map[groupKey]*group
	ttl    time.Duration
	now    func() time.Time
}

// NewInMemoryAvailabilityCache crea la caché con el TTL dado.
func NewInMemoryAvailabilityCache(ttl time.Duration) *InMemoryAvailabilityCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &InMemoryAvailabilityCache{groups: map[groupKey]*group{}, ttl: ttl, now: time.Now}
}

func copyView(v entity.AvailabilityView) *entity.AvailabilityView {
	v.Locations = append([]entity.Availability(nil), v.Locations...)
	return &v
}

func (c *InMemoryAvailabilityCache) group(tenantID, itemID string) *group {
	k := groupKey{tenantID, itemID}
	g, ok := c.groups[k]
	if !ok {
		g = &group{entries: map[string]entry{}}
		c.groups[k] = g
	}
	return g
}

func (c *InMemoryAvailabilityCache) Get(_ context.Context, tenantID, itemID, field string) (*entity.AvailabilityView, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.groups[groupKey{tenantID, itemID}]
	if !ok {
		return nil, false, nil
	}
	e, ok := g.entries[field]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		delete(g.entries, field)
		return nil, false, nil
	}
	return copyView(e.view), true, nil
}

func (c *InMemoryAvailabilityCache) Version(_ context.Context, tenantID, itemID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if g, ok := c.groups[groupKey{tenantID, itemID}]; ok {
		return g.gen, nil
	}
	return 0, nil
}

// Set descarta la vista si la generación cambió desde version.
func (c *InMemoryAvailabilityCache) Set(_ context.Context, tenantID, itemID, field string, version int64, view *entity.AvailabilityView) error {
	if view == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	life := view.Lifetime(c.ttl, now)
	if life <= 0 {
		return nil
	}
	g := c.group(tenantID, itemID)
	if g.gen != version {
		return nil
	}
	g.entries[field] = entry{view: *copyView(*view), expiresAt: now.Add(life)}
	return nil
}

// Invalidate descarta todas las vistas del (tenant, ítem) y avanza su generación.
func (c *InMemoryAvailabilityCache) Invalidate(_ context.Context, tenantID, itemID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	g := c.group(tenantID, itemID)
	g.gen++
	g.entries = map[string]entry{}
	return nil
}

func (c *InMemoryAvailabilityCache) Close() error { return nil }
