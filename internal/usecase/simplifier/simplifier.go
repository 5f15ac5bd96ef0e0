// Package simplifier projects a live document subtree into a compact
// SimplifiedNode tree sized for oracle payloads.
package simplifier

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"comment-extractor/internal/application/port/output"
	"comment-extractor/internal/domain/entity"
	"comment-extractor/internal/usecase/selectorpath"
)

const (
	defaultPreviewLength = 120
	// absoluteMaxDepth caps forced expansion on pathological trees.
	absoluteMaxDepth = 64
)

// forceExpandRe matches tag/id/class/role values of likely comment regions.
var forceExpandRe = regexp.MustCompile(`(?i)comment|reply|replies|thread|discussion|conversation|review|content`)

// identifyingAttributes is the attribute whitelist carried into nodes.
var identifyingAttributes = []string{
	"data-id", "data-testid", "data-test-id", "data-e2e", "role", "aria-label",
}

type Options struct {
	TextPreviewLength int
}

// Simplifier is scoped to one extraction run: selector paths are memoized
// per element handle for its lifetime.
type Simplifier struct {
	doc   output.DocumentPort
	opts  Options
	paths map[entity.ElementHandle]string
	infos map[entity.ElementHandle]*entity.ElementInfo
}

func New(doc output.DocumentPort, opts Options) *Simplifier {
	if opts.TextPreviewLength <= 0 {
		opts.TextPreviewLength = defaultPreviewLength
	}
	return &Simplifier{
		doc:   doc,
		opts:  opts,
		paths: make(map[entity.ElementHandle]string),
	}
}

// SimplifyDocument simplifies from the document root.
func (s *Simplifier) SimplifyDocument(ctx context.Context, maxDepth int) (*entity.SimplifiedNode, error) {
	root, err := s.doc.Root(ctx)
	if err != nil {
		return nil, fmt.Errorf("document root: %w", err)
	}
	return s.Simplify(ctx, root, maxDepth, false)
}

// Simplify visits root and its descendants up to maxDepth. Opaque roots and
// comment-like regions are expanded past the limit, and that forcing is
// inherited by every descendant.
func (s *Simplifier) Simplify(ctx context.Context, root entity.ElementHandle, maxDepth int, forceExpandParent bool) (*entity.SimplifiedNode, error) {
	s.infos = make(map[entity.ElementHandle]*entity.ElementInfo)
	defer func() { s.infos = nil }()

	return s.visit(ctx, root, 0, maxDepth, forceExpandParent)
}

func (s *Simplifier) visit(ctx context.Context, h entity.ElementHandle, depth, maxDepth int, forced bool) (*entity.SimplifiedNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := s.describe(ctx, h)
	if err != nil {
		return nil, err
	}
	path, err := s.PathOf(ctx, h)
	if err != nil {
		return nil, err
	}

	kids, err := s.children(ctx, h, info)
	if err != nil {
		return nil, err
	}

	node := &entity.SimplifiedNode{
		Tag:          info.Tag,
		ID:           info.ID,
		Classes:      info.Classes,
		Attributes:   pickAttributes(info.Attributes, s.opts.TextPreviewLength),
		TextPreview:  truncate(info.DirectText, s.opts.TextPreviewLength),
		ChildCount:   len(kids),
		SelectorPath: path,
		Depth:        depth,
		OpaqueRoot:   info.HasOpaqueRoot,
	}

	forceHere := forced || info.HasOpaqueRoot || ShouldForceExpand(info)
	node.Expanded = (depth < maxDepth || forceHere) && depth < absoluteMaxDepth
	if !node.Expanded || len(kids) == 0 {
		return node, nil
	}

	node.Children = make([]*entity.SimplifiedNode, 0, len(kids))
	for _, k := range kids {
		child, err := s.visit(ctx, k, depth+1, maxDepth, forceHere)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

// children lists opaque-root children first, then light children.
func (s *Simplifier) children(ctx context.Context, h entity.ElementHandle, info *entity.ElementInfo) ([]entity.ElementHandle, error) {
	var kids []entity.ElementHandle
	if info.HasOpaqueRoot {
		root, ok, err := s.doc.OpaqueRoot(ctx, h)
		if err != nil {
			return nil, err
		}
		if ok {
			inner, err := s.doc.Children(ctx, root)
			if err != nil {
				return nil, err
			}
			kids = append(kids, inner...)
		}
	}
	light, err := s.doc.Children(ctx, h)
	if err != nil {
		return nil, err
	}
	return append(kids, light...), nil
}

func (s *Simplifier) describe(ctx context.Context, h entity.ElementHandle) (*entity.ElementInfo, error) {
	if s.infos != nil {
		if info, ok := s.infos[h]; ok {
			return info, nil
		}
	}
	info, err := s.doc.Describe(ctx, h)
	if err != nil {
		return nil, err
	}
	if s.infos != nil {
		s.infos[h] = info
	}
	return info, nil
}

// ShouldForceExpand reports whether an element looks like a comment, reply,
// thread or content region.
func ShouldForceExpand(info *entity.ElementInfo) bool {
	if forceExpandRe.MatchString(info.Tag) || forceExpandRe.MatchString(info.ID) {
		return true
	}
	for _, c := range info.Classes {
		if forceExpandRe.MatchString(c) {
			return true
		}
	}
	return forceExpandRe.MatchString(info.Attributes["role"])
}

// ExpandNode locates the element addressed by selector and returns a fresh
// subtree of the given depth rooted at it.
func (s *Simplifier) ExpandNode(ctx context.Context, selector string, depth int) (*entity.SimplifiedNode, error) {
	h, err := s.locate(ctx, selector)
	if err != nil {
		return nil, err
	}
	return s.Simplify(ctx, h, depth, false)
}

func (s *Simplifier) locate(ctx context.Context, selector string) (entity.ElementHandle, error) {
	for h, p := range s.paths {
		if p == selector {
			return h, nil
		}
	}
	h, err := selectorpath.Resolve(ctx, s.doc, selector)
	if err == nil {
		return h, nil
	}
	if selectorpath.IsDerived(selector) {
		return entity.NoElement, err
	}
	found, qerr := s.doc.Query(ctx, entity.Query{Rule: entity.PathRule(selector), PierceOpaque: true})
	if qerr != nil {
		return entity.NoElement, qerr
	}
	if len(found) == 0 {
		return entity.NoElement, fmt.Errorf("%w: %s", entity.ErrNotFound, selector)
	}
	return found[0], nil
}

// UpdateTreeWithExpanded returns a new tree in which the node sharing
// expanded's selector path is replaced by expanded. Untouched subtrees are
// shared with the input; the input is never mutated.
func UpdateTreeWithExpanded(tree, expanded *entity.SimplifiedNode) *entity.SimplifiedNode {
	if tree == nil || expanded == nil {
		return tree
	}
	if tree.SelectorPath == expanded.SelectorPath {
		return rebase(expanded, tree.Depth)
	}
	if len(tree.Children) == 0 {
		return tree
	}

	changed := false
	kids := make([]*entity.SimplifiedNode, len(tree.Children))
	for i, c := range tree.Children {
		kids[i] = UpdateTreeWithExpanded(c, expanded)
		if kids[i] != c {
			changed = true
		}
	}
	if !changed {
		return tree
	}
	cp := *tree
	cp.Children = kids
	return &cp
}

func rebase(n *entity.SimplifiedNode, depth int) *entity.SimplifiedNode {
	cp := *n
	offset := depth - n.Depth
	cp.Depth = n.Depth + offset
	if len(n.Children) > 0 {
		cp.Children = make([]*entity.SimplifiedNode, len(n.Children))
		for i, c := range n.Children {
			cp.Children[i] = rebase(c, c.Depth+offset)
		}
	}
	return &cp
}

func pickAttributes(attrs map[string]string, maxLen int) map[string]string {
	var out map[string]string
	for _, k := range identifyingAttributes {
		v, ok := attrs[k]
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[k] = truncate(v, maxLen)
	}
	return out
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + "…"
}
