package platforms

import (
	"context"
	"time"

	"github.com/samvad-hq/samvad-epaper-harvester/internal/domain"
	"github.com/samvad-hq/samvad-epaper-harvester/pkg/httpclient"
)

// Adapter discovers the page locators of a publisher's edition.
// Concrete variants live in strategy-specific files (e.g., numbered.go).
type Adapter interface {
	ID() string
	Name() string
	// ResolveEdition returns the edition for day, or the latest known edition
	// when day is zero. Any network or parse failure is reported as false.
	ResolveEdition(ctx context.Context, day time.Time) (domain.Edition, bool)
	// Session is the persistent client shared by every request of the adapter.
	Session() HTTPClient
}

// AdapterRegistry builds the adapter implementation for a given platform config.
type AdapterRegistry interface {
	AdapterFor(p Platform) (Adapter, error)
}

// HTTPClient aliases the shared httpclient.Client interface for clarity within platforms.
type HTTPClient = httpclient.Client
