package gateway

import (
	"context"
)

// Catalog is the read/write port to the gateway catalog store.
type Catalog interface {
	// ListEnabled returns enabled descriptors ordered by ascending priority.
	ListEnabled(ctx context.Context) ([]*Descriptor, error)

	// RecordFault persists an operational gateway fault for visibility.
	RecordFault(ctx context.Context, fault *Fault) error
}
