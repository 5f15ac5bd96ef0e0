// Package selectorpath implements the derived selector paths that address
// individual elements for the duration of one extraction run.
//
// A path is one or more segments joined by " >>> ". Each hop enters the opaque
// root of the element addressed by the previous segment. A segment is a chain
// of steps joined by " > "; a step is "#id", "tag" or "tag:nth-of-type(k)".
package selectorpath

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"comment-extractor/internal/application/port/output"
	"comment-extractor/internal/domain/entity"
)

const (
	Child    = " > "
	Boundary = " >>> "
)

var (
	identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)
	stepRe  = regexp.MustCompile(`^([a-z][a-z0-9-]*)(?::nth-of-type\((\d+)\))?$`)
)

// Step is one parsed path step.
type Step struct {
	ID  string
	Tag string
	Nth int // 1-based; 0 means the first element with Tag
}

func (s Step) String() string {
	switch {
	case s.ID != "":
		return "#" + s.ID
	case s.Nth > 0:
		return fmt.Sprintf("%s:nth-of-type(%d)", s.Tag, s.Nth)
	default:
		return s.Tag
	}
}

// UsableID reports whether id can short-circuit a path as "#id".
func UsableID(id string) bool {
	return identRe.MatchString(id)
}

// IsDerived reports whether selector has the shape of a derived path that
// needs structural resolution rather than a CSS engine.
func IsDerived(selector string) bool {
	return strings.Contains(selector, strings.TrimSpace(Boundary))
}

// Parse splits a path into segments of steps.
func Parse(path string) ([][]Step, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", entity.ErrInvalidSelector)
	}

	var segments [][]Step
	for _, rawSeg := range strings.Split(path, strings.TrimSpace(Boundary)) {
		var steps []Step
		for _, rawStep := range strings.Split(rawSeg, strings.TrimSpace(Child)) {
			rawStep = strings.TrimSpace(rawStep)
			step, err := parseStep(rawStep)
			if err != nil {
				return nil, err
			}
			steps = append(steps, step)
		}
		segments = append(segments, steps)
	}
	return segments, nil
}

func parseStep(raw string) (Step, error) {
	if strings.HasPrefix(raw, "#") {
		id := strings.TrimPrefix(raw, "#")
		if !UsableID(id) {
			return Step{}, fmt.Errorf("%w: bad id step %q", entity.ErrInvalidSelector, raw)
		}
		return Step{ID: id}, nil
	}
	m := stepRe.FindStringSubmatch(strings.ToLower(raw))
	if m == nil {
		return Step{}, fmt.Errorf("%w: bad step %q", entity.ErrInvalidSelector, raw)
	}
	step := Step{Tag: m[1]}
	if m[2] != "" {
		n, err := strconv.Atoi(m[2])
		if err != nil || n < 1 {
			return Step{}, fmt.Errorf("%w: bad index in %q", entity.ErrInvalidSelector, raw)
		}
		step.Nth = n
	}
	return step, nil
}

// Resolve locates the element addressed by path, hopping into opaque roots
// at each boundary.
func Resolve(ctx context.Context, doc output.DocumentPort, path string) (entity.ElementHandle, error) {
	segments, err := Parse(path)
	if err != nil {
		return entity.NoElement, err
	}

	root, err := doc.Root(ctx)
	if err != nil {
		return entity.NoElement, fmt.Errorf("document root: %w", err)
	}

	// scope is the subtree the segment is resolved in; candidates are the
	// elements the first non-id step is matched against.
	scope := root
	candidates := []entity.ElementHandle{root}
	var current entity.ElementHandle

	for i, steps := range segments {
		if i > 0 {
			opaque, ok, err := doc.OpaqueRoot(ctx, current)
			if err != nil {
				return entity.NoElement, err
			}
			if !ok {
				return entity.NoElement, fmt.Errorf("%w: %s has no opaque root", entity.ErrNotFound, path)
			}
			scope = opaque
			candidates, err = doc.Children(ctx, opaque)
			if err != nil {
				return entity.NoElement, err
			}
		}

		for j, step := range steps {
			var next entity.ElementHandle
			if step.ID != "" {
				next, err = findByID(ctx, doc, scope, step.ID)
			} else {
				next, err = pick(ctx, doc, candidates, step)
			}
			if err != nil {
				return entity.NoElement, fmt.Errorf("resolve %q step %d: %w", path, j, err)
			}
			current = next
			candidates, err = doc.Children(ctx, current)
			if err != nil {
				return entity.NoElement, err
			}
		}
	}
	return current, nil
}

func findByID(ctx context.Context, doc output.DocumentPort, scope entity.ElementHandle, id string) (entity.ElementHandle, error) {
	found, err := doc.Query(ctx, entity.Query{Scope: scope, Rule: entity.PathRule("#" + id)})
	if err != nil {
		return entity.NoElement, err
	}
	if len(found) == 0 {
		return entity.NoElement, fmt.Errorf("%w: #%s", entity.ErrNotFound, id)
	}
	return found[0], nil
}

func pick(ctx context.Context, doc output.DocumentPort, candidates []entity.ElementHandle, step Step) (entity.ElementHandle, error) {
	want := step.Nth
	if want == 0 {
		want = 1
	}
	seen := 0
	for _, c := range candidates {
		info, err := doc.Describe(ctx, c)
		if err != nil {
			return entity.NoElement, err
		}
		if info.Tag != step.Tag {
			continue
		}
		seen++
		if seen == want {
			return c, nil
		}
	}
	return entity.NoElement, fmt.Errorf("%w: %s", entity.ErrNotFound, step)
}
