package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/garyjia/content-workflow/internal/application/port"
	"github.com/garyjia/content-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/content-workflow/internal/domain/workflow"
)

// DefaultCacheExpiry bounds how long a cached definition is served without reloading
const DefaultCacheExpiry = 10 * time.Minute

type catalogEntry struct {
	def      domainwf.Definition
	loadedAt time.Time
}

// Catalog caches workflow definitions per workflow type.
// States and transitions are read-mostly, so every engine call reads from here.
type Catalog struct {
	states      port.StateRepository
	transitions port.TransitionRepository

	mu          sync.RWMutex
	entries     map[entity.WorkflowType]catalogEntry
	cacheExpiry time.Duration
	now         func() time.Time
}

// CatalogOption configures the catalog
type CatalogOption func(*Catalog)

// WithCacheExpiry sets the cache expiry duration for definitions
func WithCacheExpiry(expiry time.Duration) CatalogOption {
	return func(c *Catalog) {
		if expiry > 0 {
			c.cacheExpiry = expiry
		}
	}
}

// NewCatalog creates a new definition catalog
func NewCatalog(states port.StateRepository, transitions port.TransitionRepository, opts ...CatalogOption) *Catalog {
	c := &Catalog{
		states:      states,
		transitions: transitions,
		entries:     make(map[entity.WorkflowType]catalogEntry),
		cacheExpiry: DefaultCacheExpiry,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Definition returns the states and transitions of a workflow type, loading them on a miss
func (c *Catalog) Definition(ctx context.Context, workflowType entity.WorkflowType) (domainwf.Definition, error) {
	c.mu.RLock()
	entry, exists := c.entries[workflowType]
	c.mu.RUnlock()

	if exists && c.now().Sub(entry.loadedAt) < c.cacheExpiry {
		return entry.def, nil
	}

	states, err := c.states.ListAll(ctx, workflowType)
	if err != nil {
		return domainwf.Definition{}, fmt.Errorf("failed to load states: %w", err)
	}
	transitions, err := c.transitions.List(ctx, workflowType)
	if err != nil {
		return domainwf.Definition{}, fmt.Errorf("failed to load transitions: %w", err)
	}

	def := domainwf.Definition{
		Type:        workflowType,
		States:      states,
		Transitions: transitions,
	}

	c.mu.Lock()
	c.entries[workflowType] = catalogEntry{def: def, loadedAt: c.now()}
	c.mu.Unlock()

	return def, nil
}

// Invalidate drops the cached definition of a workflow type
func (c *Catalog) Invalidate(workflowType entity.WorkflowType) {
	c.mu.Lock()
	delete(c.entries, workflowType)
	c.mu.Unlock()
}

// MachineFor builds the state machine for K from the cached definition
func MachineFor[K domainwf.Kind](ctx context.Context, c *Catalog) (*domainwf.Machine[K], error) {
	def, err := c.Definition(ctx, domainwf.TypeOf[K]())
	if err != nil {
		return nil, err
	}
	return domainwf.NewMachine[K](def)
}
