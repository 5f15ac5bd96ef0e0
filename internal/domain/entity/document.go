package entity

// ElementHandle is an opaque reference to a live element. Handles are issued
// by a DocumentPort adapter from its element arena and are never reused for a
// different element during the adapter's lifetime. Zero is the invalid handle.
type ElementHandle uint64

const NoElement ElementHandle = 0

func (h ElementHandle) Valid() bool {
	return h != NoElement
}

// ElementInfo is the attribute/text summary of a single element.
type ElementInfo struct {
	Tag        string
	ID         string
	Classes    []string
	Attributes map[string]string
	DirectText string
	ChildCount int
	// HasOpaqueRoot reports an attached isolated subtree (shadow root).
	HasOpaqueRoot bool
}

// ParentRef describes the parent of an element. ViaOpaqueRoot is set when the
// element is a top-level child of an opaque root and Handle is the host.
type ParentRef struct {
	Handle        ElementHandle
	ViaOpaqueRoot bool
}

// ContentMetrics is the size signal used to detect real document growth.
type ContentMetrics struct {
	ContentLength int
	ChildCount    int
}

func (m ContentMetrics) GrewFrom(before ContentMetrics) bool {
	return m.ContentLength > before.ContentLength || m.ChildCount > before.ChildCount
}

// Query selects elements under Scope (NoElement means the document root).
// PierceOpaque makes the match descend into opaque roots.
type Query struct {
	Scope        ElementHandle
	Rule         SelectorRule
	PierceOpaque bool
}
