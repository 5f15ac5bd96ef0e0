package output

import (
	"context"

	"comment-extractor/internal/domain/entity"
)

// DocumentPort is the live document the engine reads from. Handles returned by
// one adapter are only meaningful to the same adapter.
type DocumentPort interface {
	Root(ctx context.Context) (entity.ElementHandle, error)
	Query(ctx context.Context, q entity.Query) ([]entity.ElementHandle, error)
	Children(ctx context.Context, h entity.ElementHandle) ([]entity.ElementHandle, error)
	// OpaqueRoot returns the root of an attached isolated subtree, if any.
	OpaqueRoot(ctx context.Context, h entity.ElementHandle) (entity.ElementHandle, bool, error)
	Parent(ctx context.Context, h entity.ElementHandle) (entity.ParentRef, bool, error)
	Describe(ctx context.Context, h entity.ElementHandle) (*entity.ElementInfo, error)
	Text(ctx context.Context, h entity.ElementHandle) (string, error)
	Attribute(ctx context.Context, h entity.ElementHandle, name string) (string, bool, error)
	Contains(ctx context.Context, ancestor, h entity.ElementHandle) (bool, error)

	// Activate performs a synthetic activation (click) on the element.
	Activate(ctx context.Context, h entity.ElementHandle) error
	// TriggerGrowth asks the host to load more content (scroll, paginate).
	TriggerGrowth(ctx context.Context) error
	Metrics(ctx context.Context, scope entity.ElementHandle) (entity.ContentMetrics, error)
}

// DocumentSource opens the document at a URL. release frees per-document
// resources once the run is over.
type DocumentSource interface {
	Open(ctx context.Context, rawURL string) (doc DocumentPort, release func(), err error)
}
