package simplifier

import (
	"fmt"
	"sort"
	"strings"

	"comment-extractor/internal/domain/entity"
)

const maxRenderedClasses = 8

// NodeToString renders the tree as an indented tag outline, one node per
// line. Collapsed nodes with children carry a childCount annotation.
func NodeToString(n *entity.SimplifiedNode) string {
	var sb strings.Builder
	render(&sb, n, 0)
	return strings.TrimSuffix(sb.String(), "\n")
}

func render(sb *strings.Builder, n *entity.SimplifiedNode, level int) {
	if n == nil {
		return
	}
	sb.WriteString(strings.Repeat("  ", level))
	sb.WriteString("<")
	sb.WriteString(n.Tag)
	if n.ID != "" {
		sb.WriteString("#")
		sb.WriteString(n.ID)
	}
	classes := n.Classes
	if len(classes) > maxRenderedClasses {
		classes = classes[:maxRenderedClasses]
	}
	for _, c := range classes {
		sb.WriteString(".")
		sb.WriteString(c)
	}

	keys := make([]string, 0, len(n.Attributes))
	for k := range n.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(sb, " %s=%q", k, n.Attributes[k])
	}
	if n.OpaqueRoot {
		sb.WriteString(" shadow")
	}
	sb.WriteString(">")

	fmt.Fprintf(sb, " path=%q", n.SelectorPath)
	if n.TextPreview != "" {
		fmt.Fprintf(sb, " text=%q", n.TextPreview)
	}
	if !n.Expanded && n.ChildCount > 0 {
		fmt.Fprintf(sb, " childCount=%d (collapsed)", n.ChildCount)
	}
	sb.WriteString("\n")

	for _, c := range n.Children {
		render(sb, c, level+1)
	}
}
