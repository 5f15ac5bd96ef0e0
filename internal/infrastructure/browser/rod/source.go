package rod

import (
	"context"
	"sync"

	"comment-extractor/internal/application/port/output"
)

// Source hands out one shared browser page, launched on first use and
// relaunched if it was closed. Callers must not open concurrently; the
// extraction run state already serializes runs.
type Source struct {
	cfg BrowserConfig

	mu      sync.Mutex
	adapter *BrowserAdapter
}

func NewSource(cfg BrowserConfig) *Source {
	return &Source{cfg: cfg}
}

// Open navigates the shared page to rawURL. The returned release func is a
// no-op; the browser lives until Close.
func (s *Source) Open(ctx context.Context, rawURL string) (output.DocumentPort, func(), error) {
	adapter, err := s.ensure(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := adapter.Navigate(ctx, rawURL); err != nil {
		return nil, nil, err
	}
	return adapter, func() {}, nil
}

func (s *Source) ensure(ctx context.Context) (*BrowserAdapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.adapter != nil && s.adapter.IsReady() {
		return s.adapter, nil
	}
	// The launcher dies with its context, so detach it from the request.
	adapter, err := NewBrowserAdapter(context.WithoutCancel(ctx), s.cfg)
	if err != nil {
		return nil, err
	}
	s.adapter = adapter
	return adapter, nil
}

func (s *Source) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.adapter != nil {
		s.adapter.Close()
		s.adapter = nil
	}
}
