package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"comment-extractor/internal/application/port/input"
	"comment-extractor/internal/application/port/output"
	"comment-extractor/internal/application/service"
	"comment-extractor/internal/domain/entity"
	"comment-extractor/internal/infrastructure/logger"
	"comment-extractor/internal/infrastructure/store/memstore"
	"comment-extractor/internal/usecase/orchestrator"
	"comment-extractor/internal/usecase/runstate"
	"comment-extractor/internal/usecase/strategy/configdriven"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<html><body><div id="comments">
<div class="comment"><span class="author">alice</span><p class="text">first</p></div>
<div class="comment"><span class="author">bob</span><p class="text">second</p></div>
</div></body></html>`

const configJSON = `{
	"container": {"selector": "#comments"},
	"item": {"selector": ".comment"},
	"fields": [
		{"name": "username", "rule": {"selector": ".author"}},
		{"name": "content", "rule": {"selector": ".text"}}
	]
}`

func newServer(t *testing.T) (*httptest.Server, output.SettingsStore) {
	t.Helper()
	settings := entity.DefaultSettings()
	settings.ScrollSettleDelay = 0
	settings.UnchangedScrollThreshold = 1
	store := memstore.New()
	log := logger.NewNop()

	uc := orchestrator.New(
		service.NewStrategyRegistry(configdriven.New(store, settings, log)),
		runstate.New(time.Minute), nil, log,
	)
	srv := httptest.NewServer(New(Deps{Extractor: uc, Store: store, Logger: log}).Handler())
	t.Cleanup(srv.Close)
	return srv, store
}

func do(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestConfigs_PutGetList(t *testing.T) {
	srv, store := newServer(t)

	resp, _ := do(t, http.MethodGet, srv.URL+"/v1/configs/example.com", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := do(t, http.MethodPut, srv.URL+"/v1/configs/WWW.Example.com", configJSON)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "example.com", body["domain"])

	cfg, err := store.GetConfig(context.Background(), "example.com")
	require.NoError(t, err)
	assert.False(t, cfg.UpdatedAt.IsZero())

	resp, body = do(t, http.MethodGet, srv.URL+"/v1/configs/example.com", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "example.com", body["domain"])

	resp, body = do(t, http.MethodGet, srv.URL+"/v1/configs", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["configs"], 1)
}

func TestConfigs_PutInvalid(t *testing.T) {
	srv, _ := newServer(t)

	resp, body := do(t, http.MethodPut, srv.URL+"/v1/configs/example.com", `{"container": {"selector": "#c"}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "invalid extraction config")

	resp, _ = do(t, http.MethodPut, srv.URL+"/v1/configs/example.com", `{`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExtract_InlineHTMLWithStoredConfig(t *testing.T) {
	srv, _ := newServer(t)

	resp, _ := do(t, http.MethodPut, srv.URL+"/v1/configs/example.com", configJSON)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload, err := json.Marshal(map[string]any{"url": "https://example.com/post/1", "html": page})
	require.NoError(t, err)

	resp, body := do(t, http.MethodPost, srv.URL+"/v1/extract", string(payload))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(entity.StrategyConfigDriven), body["strategy"])
	comments, ok := body["comments"].([]any)
	require.True(t, ok)
	require.Len(t, comments, 2)
	assert.Equal(t, "alice", comments[0].(map[string]any)["username"])
}

func TestExtract_Errors(t *testing.T) {
	srv, _ := newServer(t)

	resp, _ := do(t, http.MethodPost, srv.URL+"/v1/extract", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := do(t, http.MethodPost, srv.URL+"/v1/extract", `{"url": "https://example.com/x"}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body["error"], "inline html")

	resp, body = do(t, http.MethodPost, srv.URL+"/v1/extract", `{"url": "https://nowhere.com/x", "html": "<p>x</p>"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Len(t, body["attempts"], 1)

	resp, _ = do(t, http.MethodPost, srv.URL+"/v1/extract", `{"url": "https://example.com/x", "html": "<p>x</p>", "strategy": "bogus"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

type blockingExtractor struct {
	started  chan struct{}
	release  chan struct{}
	canceled atomic.Bool
}

func (b *blockingExtractor) Execute(ctx context.Context, _ output.DocumentPort, _ input.ExtractRequest) (*input.ExtractResult, error) {
	close(b.started)
	<-b.release
	return &input.ExtractResult{Comments: []entity.Comment{}}, nil
}

func (b *blockingExtractor) Cancel() bool {
	b.canceled.Store(true)
	return true
}

func (b *blockingExtractor) Active() bool { return true }

type fixedSource struct{ opened atomic.Int32 }

func (f *fixedSource) Open(ctx context.Context, rawURL string) (output.DocumentPort, func(), error) {
	f.opened.Add(1)
	return nil, func() {}, nil
}

func TestExtract_BusyCancelAndStatus(t *testing.T) {
	ex := &blockingExtractor{started: make(chan struct{}), release: make(chan struct{})}
	src := &fixedSource{}
	srv := httptest.NewServer(New(Deps{Extractor: ex, Documents: src, Store: memstore.New(), Logger: logger.NewNop()}).Handler())
	defer srv.Close()

	done := make(chan int, 1)
	go func() {
		resp, err := http.Post(srv.URL+"/v1/extract", "application/json", bytes.NewBufferString(`{"url": "https://example.com/"}`))
		if err != nil {
			done <- 0
			return
		}
		resp.Body.Close()
		done <- resp.StatusCode
	}()
	<-ex.started

	resp, _ := do(t, http.MethodPost, srv.URL+"/v1/extract", `{"url": "https://example.com/"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body := do(t, http.MethodGet, srv.URL+"/v1/status", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["active"])

	resp, body = do(t, http.MethodPost, srv.URL+"/v1/cancel", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["cancelled"])

	close(ex.release)
	assert.Equal(t, http.StatusOK, <-done)
	assert.Equal(t, int32(1), src.opened.Load())
	assert.True(t, ex.canceled.Load())
}

func TestMetricsAndHealth(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"metrics": true})
	})
	srv := httptest.NewServer(New(Deps{Extractor: &blockingExtractor{}, Store: memstore.New(), Logger: logger.NewNop(), Metrics: metrics, AccessLog: true}).Handler())
	defer srv.Close()

	resp, body := do(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	resp, body = do(t, http.MethodGet, srv.URL+"/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["metrics"])
}
