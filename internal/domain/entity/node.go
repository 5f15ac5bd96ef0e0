package entity

// SimplifiedNode is the compact projection of a live element used for oracle
// payloads. Children is present only when Expanded is set and ChildCount > 0.
type SimplifiedNode struct {
	Tag          string            `json:"tag"`
	ID           string            `json:"id,omitempty"`
	Classes      []string          `json:"classes,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	TextPreview  string            `json:"textPreview,omitempty"`
	ChildCount   int               `json:"childCount"`
	Expanded     bool              `json:"expanded"`
	Children     []*SimplifiedNode `json:"children,omitempty"`
	SelectorPath string            `json:"selector"`
	Depth        int               `json:"depth"`
	OpaqueRoot   bool              `json:"opaqueRoot,omitempty"`
}

// Walk visits n and its descendants depth-first. Returning false from fn stops
// descent below the current node.
func (n *SimplifiedNode) Walk(fn func(*SimplifiedNode) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Find returns the first node whose SelectorPath equals path.
func (n *SimplifiedNode) Find(path string) *SimplifiedNode {
	var found *SimplifiedNode
	n.Walk(func(c *SimplifiedNode) bool {
		if found != nil {
			return false
		}
		if c.SelectorPath == path {
			found = c
			return false
		}
		return true
	})
	return found
}

// Count returns the number of nodes in the tree.
func (n *SimplifiedNode) Count() int {
	total := 0
	n.Walk(func(*SimplifiedNode) bool {
		total++
		return true
	})
	return total
}
