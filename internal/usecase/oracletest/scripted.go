// Package oracletest provides a scripted OraclePort for tests.
package oracletest

import (
	"context"
	"sync"

	"comment-extractor/internal/application/port/output"
	"comment-extractor/internal/domain/entity"
)

var _ output.OraclePort = (*Scripted)(nil)

// Handler answers one request. Returning an error simulates a transport
// failure.
type Handler func(req entity.OracleRequest) (string, error)

// Scripted dispatches requests to handlers by kind. Kinds without a handler
// get an empty reply.
type Scripted struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    []entity.OracleRequest
}

func New() *Scripted {
	return &Scripted{handlers: make(map[string]Handler)}
}

func (s *Scripted) On(kind string, h Handler) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[kind] = h
	return s
}

// Reply answers every request of kind with the given replies in order,
// repeating the last one.
func (s *Scripted) Reply(kind string, replies ...string) *Scripted {
	var mu sync.Mutex
	i := 0
	return s.On(kind, func(entity.OracleRequest) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(replies) == 0 {
			return "", nil
		}
		r := replies[min(i, len(replies)-1)]
		i++
		return r, nil
	})
}

func (s *Scripted) Request(ctx context.Context, req entity.OracleRequest) (*entity.OracleResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.calls = append(s.calls, req)
	h := s.handlers[req.Kind]
	s.mu.Unlock()

	content := ""
	if h != nil {
		var err error
		if content, err = h(req); err != nil {
			return nil, err
		}
	}
	return &entity.OracleResponse{ID: req.ID, Content: content, TokensUsed: len(req.Prompt) / 4}, nil
}

// Calls returns the requests received so far, optionally filtered by kind.
func (s *Scripted) Calls(kind string) []entity.OracleRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.OracleRequest
	for _, c := range s.calls {
		if kind == "" || c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}
