package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"comment-extractor/internal/adapter/httpapi"
	"comment-extractor/internal/application/port/input"
	"comment-extractor/internal/application/service"
	"comment-extractor/internal/domain/entity"
	"comment-extractor/internal/infrastructure/browser/rod"
	"comment-extractor/internal/infrastructure/logger"
	"comment-extractor/internal/infrastructure/store/memstore"
	"comment-extractor/internal/usecase/oracletest"
	"comment-extractor/internal/usecase/orchestrator"
	"comment-extractor/internal/usecase/runstate"
	"comment-extractor/internal/usecase/strategy/aidiscovery"
	"comment-extractor/internal/usecase/strategy/configdriven"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scrollPage appends one tall comment per scroll until six exist.
const scrollPage = `<!DOCTYPE html>
<html>
<body>
	<div id="comments">
		<div class="comment" style="height:600px"><span class="author">user0</span><p class="text">comment 0</p></div>
		<div class="comment" style="height:600px"><span class="author">user1</span><p class="text">comment 1</p></div>
	</div>
	<script>
		let n = 2;
		window.addEventListener("scroll", () => {
			if (n >= 6) return;
			const c = document.createElement("div");
			c.className = "comment";
			c.style.height = "600px";
			c.innerHTML = '<span class="author">user' + n + '</span><p class="text">comment ' + n + '</p>';
			document.getElementById("comments").appendChild(c);
			n++;
		});
	</script>
</body>
</html>`

const shadowPage = `<!DOCTYPE html>
<html>
<body>
	<article><h1>Post</h1><p>Body text of the article.</p></article>
	<section id="discussion"></section>
	<script>
		const root = document.getElementById("discussion").attachShadow({mode: "open"});
		root.innerHTML = '<div class="c"><b class="who">alice</b><p class="body">inside shadow</p></div>';
	</script>
</body>
</html>`

func serve(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func browserSource(t *testing.T) *rod.Source {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	cfg := rod.DefaultConfig()
	cfg.NoSandbox = true
	src := rod.NewSource(cfg)
	t.Cleanup(src.Close)
	return src
}

func settings() entity.Settings {
	s := entity.DefaultSettings()
	s.ScrollSettleDelay = 300 * time.Millisecond
	s.UnchangedScrollThreshold = 2
	s.BackgroundConfigGeneration = false
	return s
}

func TestConfigDriven_ScrollsUntilNoGrowth(t *testing.T) {
	src := browserSource(t)
	srv := serve(t, map[string]string{"/post": scrollPage})
	ctx := context.Background()

	store := memstore.New()
	require.NoError(t, store.SaveConfig(ctx, &entity.ExtractionConfig{
		Domain:    "127.0.0.1",
		Container: entity.PathRule("#comments"),
		Item:      entity.PathRule(".comment"),
		Fields: []entity.FieldSelector{
			{Name: entity.FieldUsername, Rule: entity.PathRule(".author")},
			{Name: entity.FieldContent, Rule: entity.PathRule(".text")},
		},
	}))
	log := logger.NewNop()
	uc := orchestrator.New(
		service.NewStrategyRegistry(configdriven.New(store, settings(), log)),
		runstate.New(time.Minute), nil, log,
	)

	doc, release, err := src.Open(ctx, srv.URL+"/post")
	require.NoError(t, err)
	defer release()

	res, err := uc.Execute(ctx, doc, input.ExtractRequest{URL: srv.URL + "/post"})
	require.NoError(t, err)
	assert.Equal(t, entity.StrategyConfigDriven, res.Strategy)
	assert.Len(t, res.Comments, 6)
	assert.Equal(t, "user5", res.Comments[5].Username)
}

func TestDiscovery_FindsShadowContainer(t *testing.T) {
	src := browserSource(t)
	srv := serve(t, map[string]string{"/post": shadowPage})
	ctx := context.Background()

	oracle := oracletest.New().
		Reply(entity.OracleKindDetect, `{"selector": "#discussion", "confidence": 0.95}`).
		Reply(entity.OracleKindExtract, `{"comments": [{"username": "alice", "content": "inside shadow"}]}`)
	log := logger.NewNop()
	store := memstore.New()
	uc := orchestrator.New(
		service.NewStrategyRegistry(
			configdriven.New(store, settings(), log),
			aidiscovery.New(oracle, store, settings(), log),
		),
		runstate.New(time.Minute), nil, log,
	)

	doc, release, err := src.Open(ctx, srv.URL+"/post")
	require.NoError(t, err)
	defer release()

	res, err := uc.Execute(ctx, doc, input.ExtractRequest{URL: srv.URL + "/post"})
	require.NoError(t, err)
	assert.Equal(t, entity.StrategyAIDiscovery, res.Strategy)
	require.Len(t, res.Comments, 1)
	assert.Equal(t, "alice", res.Comments[0].Username)

	calls := oracle.Calls(entity.OracleKindExtract)
	require.NotEmpty(t, calls)
	assert.Contains(t, calls[0].Prompt, "inside shadow")
}

func TestHTTPAPI_ExtractThroughBrowser(t *testing.T) {
	src := browserSource(t)
	srv := serve(t, map[string]string{"/post": scrollPage})

	store := memstore.New()
	log := logger.NewNop()
	uc := orchestrator.New(
		service.NewStrategyRegistry(configdriven.New(store, settings(), log)),
		runstate.New(time.Minute), nil, log,
	)
	api := httptest.NewServer(httpapi.New(httpapi.Deps{Extractor: uc, Documents: src, Store: store, Logger: log}).Handler())
	defer api.Close()

	extract := func() *http.Response {
		resp, err := http.Post(api.URL+"/v1/extract", "application/json",
			strings.NewReader(fmt.Sprintf(`{"url": %q, "maxComments": 3}`, srv.URL+"/post")))
		require.NoError(t, err)
		return resp
	}

	resp := extract()
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPut, api.URL+"/v1/configs/127.0.0.1", strings.NewReader(`{
		"container": {"selector": "#comments"},
		"item": {"selector": ".comment"},
		"fields": [
			{"name": "username", "rule": {"selector": ".author"}},
			{"name": "content", "rule": {"selector": ".text"}}
		]
	}`))
	require.NoError(t, err)
	put, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	put.Body.Close()
	require.Equal(t, http.StatusOK, put.StatusCode)

	resp = extract()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res input.ExtractResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Len(t, res.Comments, 3)
}
