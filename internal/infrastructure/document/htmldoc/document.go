// Package htmldoc is an in-memory DocumentPort over a parsed HTML tree.
// Declarative shadow roots (<template shadowrootmode>) act as opaque roots:
// ordinary traversal and queries do not enter them. Growth and activation
// are scripted through options so static snapshots and tests behave like a
// lazily loading page.
package htmldoc

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"comment-extractor/internal/application/port/output"
	"comment-extractor/internal/domain/entity"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

var _ output.DocumentPort = (*Document)(nil)

const (
	// FragmentAttr names a fragment inserted when the element is activated.
	FragmentAttr = "data-fragment"
	// FragmentTargetAttr is a CSS selector for where the fragment goes;
	// defaults to the activated element's parent.
	FragmentTargetAttr = "data-fragment-target"
)

type Document struct {
	mu    sync.Mutex
	doc   *html.Node
	root  *html.Node
	arena []*html.Node
	index map[*html.Node]entity.ElementHandle

	growthTarget string
	pages        []string
	nextPage     int
	growthCalls  int

	fragments   map[string]string
	activations int
}

type Option func(*Document)

// WithGrowthPages appends one page of HTML into the first element matching
// target on each TriggerGrowth call.
func WithGrowthPages(target string, pages ...string) Option {
	return func(d *Document) {
		d.growthTarget = target
		d.pages = append(d.pages, pages...)
	}
}

// WithFragments registers named fragments referenced by data-fragment.
func WithFragments(fragments map[string]string) Option {
	return func(d *Document) {
		for k, v := range fragments {
			d.fragments[k] = v
		}
	}
}

func New(rawHTML string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(rawHTML), opts...)
}

func Parse(r io.Reader, opts ...Option) (*Document, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	cleanNode(doc, &DefaultCleanConfig)

	root := firstElement(doc)
	if root == nil {
		return nil, fmt.Errorf("parse html: no root element")
	}

	d := &Document{
		doc:       doc,
		root:      root,
		index:     make(map[*html.Node]entity.ElementHandle),
		fragments: make(map[string]string),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func firstElement(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

func (d *Document) handle(n *html.Node) entity.ElementHandle {
	if h, ok := d.index[n]; ok {
		return h
	}
	d.arena = append(d.arena, n)
	h := entity.ElementHandle(len(d.arena))
	d.index[n] = h
	return h
}

func (d *Document) node(h entity.ElementHandle) (*html.Node, error) {
	if h == entity.NoElement {
		return d.root, nil
	}
	i := int(h) - 1
	if i < 0 || i >= len(d.arena) {
		return nil, fmt.Errorf("%w: handle %d", entity.ErrElementGone, h)
	}
	n := d.arena[i]
	if !d.attached(n) {
		return nil, fmt.Errorf("%w: handle %d", entity.ErrElementGone, h)
	}
	return n, nil
}

func (d *Document) attached(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == d.doc {
			return true
		}
	}
	return false
}

func (d *Document) Root(ctx context.Context) (entity.ElementHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handle(d.root), nil
}

// elementChildren lists element children, leaving out shadow templates.
func elementChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && !isShadowTemplate(c) {
			out = append(out, c)
		}
	}
	return out
}

func shadowTemplate(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if isShadowTemplate(c) {
			return c
		}
	}
	return nil
}

func (d *Document) Children(ctx context.Context, h entity.ElementHandle) ([]entity.ElementHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.node(h)
	if err != nil {
		return nil, err
	}
	kids := elementChildren(n)
	out := make([]entity.ElementHandle, 0, len(kids))
	for _, c := range kids {
		out = append(out, d.handle(c))
	}
	return out, nil
}

func (d *Document) OpaqueRoot(ctx context.Context, h entity.ElementHandle) (entity.ElementHandle, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.node(h)
	if err != nil {
		return entity.NoElement, false, err
	}
	tpl := shadowTemplate(n)
	if tpl == nil {
		return entity.NoElement, false, nil
	}
	return d.handle(tpl), true, nil
}

func (d *Document) Parent(ctx context.Context, h entity.ElementHandle) (entity.ParentRef, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.node(h)
	if err != nil {
		return entity.ParentRef{}, false, err
	}
	p := n.Parent
	if p == nil || p.Type != html.ElementNode {
		return entity.ParentRef{}, false, nil
	}
	if isShadowTemplate(p) && p.Parent != nil && p.Parent.Type == html.ElementNode {
		return entity.ParentRef{Handle: d.handle(p.Parent), ViaOpaqueRoot: true}, true, nil
	}
	return entity.ParentRef{Handle: d.handle(p)}, true, nil
}

func (d *Document) Describe(ctx context.Context, h entity.ElementHandle) (*entity.ElementInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.node(h)
	if err != nil {
		return nil, err
	}

	info := &entity.ElementInfo{
		Tag:           strings.ToLower(n.Data),
		Attributes:    make(map[string]string, len(n.Attr)),
		DirectText:    directText(n),
		ChildCount:    len(elementChildren(n)),
		HasOpaqueRoot: shadowTemplate(n) != nil,
	}
	for _, a := range n.Attr {
		info.Attributes[a.Key] = a.Val
		switch a.Key {
		case "id":
			info.ID = a.Val
		case "class":
			info.Classes = strings.Fields(a.Val)
		}
	}
	return info, nil
}

func directText(n *html.Node) string {
	var parts []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			if t := strings.TrimSpace(c.Data); t != "" {
				parts = append(parts, t)
			}
		}
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func (d *Document) Text(ctx context.Context, h entity.ElementHandle) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.node(h)
	if err != nil {
		return "", err
	}
	text := goquery.NewDocumentFromNode(n).Text()
	return strings.Join(strings.Fields(text), " "), nil
}

func (d *Document) Attribute(ctx context.Context, h entity.ElementHandle, name string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.node(h)
	if err != nil {
		return "", false, err
	}
	v, ok := attr(n, name)
	return v, ok, nil
}

func (d *Document) Contains(ctx context.Context, ancestor, h entity.ElementHandle) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	a, err := d.node(ancestor)
	if err != nil {
		return false, err
	}
	n, err := d.node(h)
	if err != nil {
		return false, err
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if p == a {
			return true, nil
		}
	}
	return false, nil
}

func (d *Document) Query(ctx context.Context, q entity.Query) ([]entity.ElementHandle, error) {
	match, err := compileRule(q.Rule)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	scope, err := d.node(q.Scope)
	if err != nil {
		return nil, err
	}

	var out []entity.ElementHandle
	if q.Scope == entity.NoElement && match(scope) {
		out = append(out, d.handle(scope))
	}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if isShadowTemplate(c) {
				if q.PierceOpaque {
					walk(c)
				}
				continue
			}
			if match(c) {
				out = append(out, d.handle(c))
			}
			walk(c)
		}
	}
	walk(scope)
	return out, nil
}

func compileRule(rule entity.SelectorRule) (func(*html.Node) bool, error) {
	sel := strings.TrimSpace(rule.Selector)
	if sel == "" {
		return nil, fmt.Errorf("%w: empty selector", entity.ErrInvalidSelector)
	}
	if rule.Kind == entity.RuleTextPattern {
		re, err := regexp.Compile(sel)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", entity.ErrInvalidSelector, err)
		}
		return func(n *html.Node) bool {
			t := directText(n)
			return t != "" && re.MatchString(t)
		}, nil
	}
	compiled, err := cascadia.Compile(sel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidSelector, err)
	}
	return compiled.Match, nil
}

func (d *Document) Activate(ctx context.Context, h entity.ElementHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.node(h)
	if err != nil {
		return err
	}
	d.activations++

	name, ok := attr(n, FragmentAttr)
	if !ok {
		return nil
	}
	fragment, ok := d.fragments[name]
	if !ok {
		return nil
	}

	target := n.Parent
	if sel, ok := attr(n, FragmentTargetAttr); ok {
		if t := d.first(sel); t != nil {
			target = t
		}
	}
	removeAttr(n, FragmentAttr)
	return appendFragment(target, fragment)
}

func (d *Document) TriggerGrowth(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.growthCalls++
	if d.nextPage >= len(d.pages) {
		return nil
	}
	target := d.first(d.growthTarget)
	if target == nil {
		target = d.body()
	}
	page := d.pages[d.nextPage]
	d.nextPage++
	return appendFragment(target, page)
}

func (d *Document) Metrics(ctx context.Context, scope entity.ElementHandle) (entity.ContentMetrics, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var n *html.Node
	if scope == entity.NoElement {
		n = d.body()
	} else {
		var err error
		if n, err = d.node(scope); err != nil {
			return entity.ContentMetrics{}, err
		}
	}

	outer, err := goquery.OuterHtml(goquery.NewDocumentFromNode(n).Selection)
	if err != nil {
		return entity.ContentMetrics{}, fmt.Errorf("render scope: %w", err)
	}
	return entity.ContentMetrics{
		ContentLength: len(outer),
		ChildCount:    len(elementChildren(n)),
	}, nil
}

// GrowthCalls reports how many times TriggerGrowth was called.
func (d *Document) GrowthCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.growthCalls
}

// Activations reports how many times Activate was called.
func (d *Document) Activations() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.activations
}

// HTML renders the current tree.
func (d *Document) HTML() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var sb strings.Builder
	_ = html.Render(&sb, d.doc)
	return sb.String()
}

func (d *Document) body() *html.Node {
	for _, c := range elementChildren(d.root) {
		if c.Data == "body" {
			return c
		}
	}
	return d.root
}

func (d *Document) first(selector string) *html.Node {
	if strings.TrimSpace(selector) == "" {
		return nil
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil
	}
	return sel.MatchFirst(d.doc)
}

func appendFragment(target *html.Node, fragment string) error {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), target)
	if err != nil {
		return fmt.Errorf("parse fragment: %w", err)
	}
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		target.AppendChild(n)
	}
	cleanNode(target, &DefaultCleanConfig)
	return nil
}
