package platforms

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/samvad-epaper-harvester/pkg/httpclient"
)

// Builder constructs the adapter of one variant for a platform entry.
type Builder func(p Platform, client HTTPClient, log Logger) (Adapter, error)

// SessionFactory opens the persistent session an adapter keeps for its lifetime.
type SessionFactory func(p Platform) HTTPClient

// adapterRegistry implements AdapterRegistry keyed by platform type.
type adapterRegistry struct {
	builders map[string]Builder
	session  SessionFactory
	log      Logger
	mu       sync.RWMutex
}

// NewAdapterRegistry builds a registry over the given variant builders.
func NewAdapterRegistry(builders map[string]Builder, session SessionFactory, log Logger) AdapterRegistry {
	reg := &adapterRegistry{
		builders: make(map[string]Builder, len(builders)),
		session:  session,
		log:      ensureLogger(log),
	}
	for typ, b := range builders {
		key := strings.ToLower(strings.TrimSpace(typ))
		if key == "" || b == nil {
			continue
		}
		reg.builders[key] = b
	}
	return reg
}

// AdapterFor selects the builder by p.Type and instantiates a fresh adapter with its own session.
func (r *adapterRegistry) AdapterFor(p Platform) (Adapter, error) {
	if r == nil {
		return nil, fmt.Errorf("adapter registry is nil")
	}
	if strings.TrimSpace(p.ID) == "" {
		return nil, fmt.Errorf("platform id is empty")
	}

	r.mu.RLock()
	b, ok := r.builders[strings.ToLower(strings.TrimSpace(p.Type))]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no adapter registered for platform %q (type %q)", p.ID, p.Type)
	}
	if r.session == nil {
		return nil, fmt.Errorf("no session factory configured for platform %q", p.ID)
	}
	return b(p, r.session(p), r.log)
}

// DefaultBuilders returns the known variant builders keyed by type.
func DefaultBuilders() map[string]Builder {
	return map[string]Builder{
		TypeNumberedPages: NewNumberedPagesAdapter,
		TypeIndexLinks:    NewIndexLinksAdapter,
		TypeFlatImages:    NewFlatImagesAdapter,
		TypeLinkPattern:   NewLinkPatternAdapter,
	}
}

// RestySessionFactory opens a resty session carrying the platform identity
// headers and request pacing.
func RestySessionFactory(timeout time.Duration) SessionFactory {
	return func(p Platform) HTTPClient {
		return httpclient.NewRestyClient(timeout,
			httpclient.WithHeaders(Headers(p)),
			httpclient.WithRequestInterval(p.RequestDelay()),
		)
	}
}

// DefaultAdapterRegistry wires up every known variant behind resty sessions.
func DefaultAdapterRegistry(timeout time.Duration, log Logger) AdapterRegistry {
	return NewAdapterRegistry(DefaultBuilders(), RestySessionFactory(timeout), log)
}

// Catalog joins the platform registry and the adapter registry.
type Catalog struct {
	platforms *Registry
	adapters  AdapterRegistry
}

// NewCatalog returns a Catalog over the loaded platforms.
func NewCatalog(platforms *Registry, adapters AdapterRegistry) (*Catalog, error) {
	if platforms == nil {
		return nil, fmt.Errorf("platform registry is nil")
	}
	if adapters == nil {
		return nil, fmt.Errorf("adapter registry is nil")
	}
	return &Catalog{platforms: platforms, adapters: adapters}, nil
}

// Platform returns the registry entry for id.
func (c *Catalog) Platform(id string) (Platform, bool) {
	if c == nil {
		return Platform{}, false
	}
	return c.platforms.ByID(id)
}

// Enabled lists enabled platforms in file order.
func (c *Catalog) Enabled() []Platform {
	if c == nil {
		return nil
	}
	return c.platforms.Enabled()
}

// All lists every configured platform.
func (c *Catalog) All() []Platform {
	if c == nil {
		return nil
	}
	return c.platforms.All()
}

// Adapter instantiates a new adapter for an enabled platform id.
func (c *Catalog) Adapter(id string) (Adapter, error) {
	if c == nil {
		return nil, fmt.Errorf("catalog is nil")
	}
	p, ok := c.platforms.ByID(id)
	if !ok {
		return nil, fmt.Errorf("unknown platform %q", id)
	}
	if !p.EnabledValue() {
		return nil, fmt.Errorf("platform %q is disabled", id)
	}
	return c.adapters.AdapterFor(p)
}
