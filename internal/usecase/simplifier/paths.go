package simplifier

import (
	"context"
	"fmt"

	"comment-extractor/internal/domain/entity"
	"comment-extractor/internal/usecase/selectorpath"
)

// PathOf derives the selector path of h by walking ancestors until an id
// unique within its root is found or the root is reached, disambiguating same-tag siblings with
// nth-of-type. Results are memoized per handle.
func (s *Simplifier) PathOf(ctx context.Context, h entity.ElementHandle) (string, error) {
	if p, ok := s.paths[h]; ok {
		return p, nil
	}

	info, err := s.describe(ctx, h)
	if err != nil {
		return "", err
	}

	if selectorpath.UsableID(info.ID) {
		host, inOpaque, err := s.opaqueHost(ctx, h)
		if err != nil {
			return "", err
		}
		unique, err := s.uniqueID(ctx, info.ID, host, inOpaque)
		if err != nil {
			return "", err
		}
		if unique {
			step := selectorpath.Step{ID: info.ID}.String()
			p := step
			if inOpaque {
				hostPath, err := s.PathOf(ctx, host)
				if err != nil {
					return "", err
				}
				p = hostPath + selectorpath.Boundary + step
			}
			s.paths[h] = p
			return p, nil
		}
	}

	parent, ok, err := s.doc.Parent(ctx, h)
	if err != nil {
		return "", err
	}
	if !ok {
		s.paths[h] = info.Tag
		return info.Tag, nil
	}

	siblings, err := s.siblings(ctx, parent)
	if err != nil {
		return "", err
	}
	step, err := s.step(ctx, h, info.Tag, siblings)
	if err != nil {
		return "", err
	}

	parentPath, err := s.PathOf(ctx, parent.Handle)
	if err != nil {
		return "", err
	}
	sep := selectorpath.Child
	if parent.ViaOpaqueRoot {
		sep = selectorpath.Boundary
	}
	p := parentPath + sep + step.String()
	s.paths[h] = p
	return p, nil
}

func (s *Simplifier) siblings(ctx context.Context, parent entity.ParentRef) ([]entity.ElementHandle, error) {
	if !parent.ViaOpaqueRoot {
		return s.doc.Children(ctx, parent.Handle)
	}
	root, ok, err := s.doc.OpaqueRoot(ctx, parent.Handle)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: opaque root vanished", entity.ErrElementGone)
	}
	return s.doc.Children(ctx, root)
}

func (s *Simplifier) step(ctx context.Context, h entity.ElementHandle, tag string, siblings []entity.ElementHandle) (selectorpath.Step, error) {
	index, same := 0, 0
	for _, sib := range siblings {
		info, err := s.describe(ctx, sib)
		if err != nil {
			return selectorpath.Step{}, err
		}
		if info.Tag != tag {
			continue
		}
		same++
		if sib == h {
			index = same
		}
	}
	step := selectorpath.Step{Tag: tag}
	if same > 1 {
		step.Nth = index
	}
	return step, nil
}

// uniqueID reports whether exactly one element carries id in the root that
// encloses it, the document or the opaque root of host.
func (s *Simplifier) uniqueID(ctx context.Context, id string, host entity.ElementHandle, inOpaque bool) (bool, error) {
	scope := entity.NoElement
	if inOpaque {
		root, ok, err := s.doc.OpaqueRoot(ctx, host)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, fmt.Errorf("%w: opaque root vanished", entity.ErrElementGone)
		}
		scope = root
	}
	found, err := s.doc.Query(ctx, entity.Query{Scope: scope, Rule: entity.PathRule("#" + id)})
	if err != nil {
		return false, err
	}
	return len(found) == 1, nil
}

// opaqueHost returns the host of the nearest opaque root enclosing h.
func (s *Simplifier) opaqueHost(ctx context.Context, h entity.ElementHandle) (entity.ElementHandle, bool, error) {
	cur := h
	for {
		parent, ok, err := s.doc.Parent(ctx, cur)
		if err != nil {
			return entity.NoElement, false, err
		}
		if !ok {
			return entity.NoElement, false, nil
		}
		if parent.ViaOpaqueRoot {
			return parent.Handle, true, nil
		}
		cur = parent.Handle
	}
}
