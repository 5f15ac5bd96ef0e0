// Package channel multiplexes logical oracle requests over one long-lived
// duplex connection to a transport.
package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"comment-extractor/internal/application/port/output"
	"comment-extractor/internal/domain/entity"

	"github.com/google/uuid"
)

var _ output.OraclePort = (*Channel)(nil)

// ErrDuplicateID is returned when a request reuses the id of one still in
// flight.
var ErrDuplicateID = errors.New("duplicate oracle request id")

type envelope struct {
	ctx context.Context
	req entity.OracleRequest
}

type result struct {
	id   string
	resp *entity.OracleResponse
	err  error
}

type Options struct {
	SystemPrompt string
	Model        entity.ModelConfig
	Logger       output.LoggerPort
	Metrics      output.MetricsPort
	// Buffer is the outbound queue length.
	Buffer int
}

// Channel is opened on the first request and stays open until Close.
type Channel struct {
	transport output.OracleTransport
	opts      Options

	mu       sync.Mutex
	open     bool
	closed   bool
	outbound chan envelope
	inbound  chan result
	done     chan struct{}
	base     context.Context
	stopBase context.CancelFunc
	pending  map[string]chan result
	wg       sync.WaitGroup
}

func New(transport output.OracleTransport, opts Options) *Channel {
	if opts.Metrics == nil {
		opts.Metrics = output.NopMetrics{}
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 8
	}
	return &Channel{
		transport: transport,
		opts:      opts,
		pending:   make(map[string]chan result),
	}
}

func (c *Channel) ensureOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return entity.ErrOracleClosed
	}
	if c.open {
		return nil
	}
	c.outbound = make(chan envelope, c.opts.Buffer)
	c.inbound = make(chan result, c.opts.Buffer)
	c.done = make(chan struct{})
	c.base, c.stopBase = context.WithCancel(context.Background())
	c.open = true

	c.wg.Add(2)
	go c.writeLoop()
	go c.readLoop()
	if c.opts.Logger != nil {
		c.opts.Logger.Debug("oracle channel opened")
	}
	return nil
}

// writeLoop hands each outbound request to the transport.
func (c *Channel) writeLoop() {
	defer c.wg.Done()
	var calls sync.WaitGroup
	defer calls.Wait()
	for {
		select {
		case <-c.done:
			return
		case env := <-c.outbound:
			calls.Add(1)
			go func() {
				defer calls.Done()
				ctx, cancel := context.WithCancel(env.ctx)
				defer cancel()
				stop := context.AfterFunc(c.base, cancel)
				defer stop()
				resp, err := c.transport.Complete(ctx, env.req)
				select {
				case c.inbound <- result{id: env.req.ID, resp: resp, err: err}:
				case <-c.done:
				}
			}()
		}
	}
}

// readLoop routes responses back to their waiters by request id.
func (c *Channel) readLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case res := <-c.inbound:
			c.mu.Lock()
			waiter, ok := c.pending[res.id]
			delete(c.pending, res.id)
			c.mu.Unlock()
			if !ok {
				if c.opts.Logger != nil {
					c.opts.Logger.Debug("dropping response for abandoned request", "id", res.id)
				}
				continue
			}
			waiter <- res
		}
	}
}

// Request sends req and waits for its response. Missing ids, system prompt
// and model settings are filled from the channel defaults. An id already in
// flight is rejected with ErrDuplicateID.
func (c *Channel) Request(ctx context.Context, req entity.OracleRequest) (*entity.OracleResponse, error) {
	if err := c.ensureOpen(); err != nil {
		return nil, err
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.SystemPrompt == "" {
		req.SystemPrompt = c.opts.SystemPrompt
	}
	if req.Model.Name == "" {
		req.Model.Name = c.opts.Model.Name
	}
	if req.Model.MaxTokens == 0 {
		req.Model.MaxTokens = c.opts.Model.MaxTokens
	}

	waiter := make(chan result, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, entity.ErrOracleClosed
	}
	if _, busy := c.pending[req.ID]; busy {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, req.ID)
	}
	c.pending[req.ID] = waiter
	done := c.done
	c.mu.Unlock()

	start := time.Now()
	select {
	case c.outbound <- envelope{ctx: ctx, req: req}:
	case <-ctx.Done():
		c.forget(req.ID)
		return nil, ctx.Err()
	case <-done:
		return nil, entity.ErrOracleClosed
	}

	select {
	case res := <-waiter:
		tokens := 0
		if res.resp != nil {
			tokens = res.resp.TokensUsed
		}
		c.opts.Metrics.OracleCall(req.Kind, tokens, res.err)
		if c.opts.Logger != nil {
			c.opts.Logger.Debug("oracle round trip",
				"id", req.ID,
				"kind", req.Kind,
				"tokens", tokens,
				"duration_ms", time.Since(start).Milliseconds(),
				"error", res.err,
			)
		}
		if res.err != nil {
			return nil, fmt.Errorf("oracle %s: %w", req.Kind, res.err)
		}
		return res.resp, nil
	case <-ctx.Done():
		c.forget(req.ID)
		return nil, ctx.Err()
	case <-done:
		return nil, entity.ErrOracleClosed
	}
}

func (c *Channel) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Pending reports requests still awaiting a response.
func (c *Channel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close shuts the channel down. Waiting requests fail with ErrOracleClosed.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	wasOpen := c.open
	if wasOpen {
		close(c.done)
		c.stopBase()
	}
	c.pending = make(map[string]chan result)
	c.mu.Unlock()

	if wasOpen {
		c.wg.Wait()
		if c.opts.Logger != nil {
			c.opts.Logger.Debug("oracle channel closed")
		}
	}
	return nil
}
