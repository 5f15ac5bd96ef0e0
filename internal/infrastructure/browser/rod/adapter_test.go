package rod

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"comment-extractor/internal/domain/entity"
	"comment-extractor/internal/usecase/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const commentsPage = `<!DOCTYPE html>
<html>
<body>
	<div id="comments">
		<div class="comment"><span class="author">alice</span><p class="text">first</p></div>
		<div class="comment"><span class="author">bob</span><p class="text">second</p></div>
	</div>
	<button id="more" onclick="add()">more</button>
	<div id="host"></div>
	<script>
		function add() {
			const c = document.createElement("div");
			c.className = "comment";
			c.innerHTML = '<span class="author">carol</span><p class="text">third</p>';
			document.getElementById("comments").appendChild(c);
		}
		const root = document.getElementById("host").attachShadow({mode: "open"});
		root.innerHTML = '<div class="comment"><span class="author">dave</span><p class="text">shadowed</p></div>';
	</script>
</body>
</html>`

func newAdapter(t *testing.T) *BrowserAdapter {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, commentsPage)
	}))
	t.Cleanup(server.Close)

	cfg := DefaultConfig()
	cfg.NoSandbox = true
	adapter, err := NewBrowserAdapter(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(adapter.Close)

	require.NoError(t, adapter.Navigate(context.Background(), server.URL))
	return adapter
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.Headless)
	assert.Equal(t, defaultTimeout, cfg.Timeout)
	assert.False(t, cfg.NoSandbox)
	assert.Empty(t, cfg.ControlURL)
}

func TestBrowserAdapter_Navigate_InvalidURL(t *testing.T) {
	adapter := &BrowserAdapter{}

	tests := []struct {
		name string
		url  string
	}{
		{"Empty URL", ""},
		{"Invalid scheme", "ftp://example.com"},
		{"JavaScript URL", "javascript:alert(1)"},
		{"No host", "https://"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := adapter.Navigate(context.Background(), tt.url)
			assert.ErrorIs(t, err, ErrInvalidURL)
		})
	}
}

func TestBrowserAdapter_QueryAndPierce(t *testing.T) {
	adapter := newAdapter(t)
	ctx := context.Background()

	light, err := adapter.Query(ctx, entity.Query{Rule: entity.PathRule(".comment")})
	require.NoError(t, err)
	assert.Len(t, light, 2)

	all, err := adapter.Query(ctx, entity.Query{Rule: entity.PathRule(".comment"), PierceOpaque: true})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	again, err := adapter.Query(ctx, entity.Query{Rule: entity.PathRule(".comment")})
	require.NoError(t, err)
	assert.Equal(t, light, again, "same nodes must map to the same handles")
}

func TestBrowserAdapter_InvalidSelector(t *testing.T) {
	adapter := newAdapter(t)

	_, err := adapter.Query(context.Background(), entity.Query{Rule: entity.PathRule("div[")})
	assert.ErrorIs(t, err, entity.ErrInvalidSelector)

	counts, err := validator.TestSelectors(context.Background(), adapter, entity.SelectorMap{
		entity.FieldItem:    ".comment",
		entity.FieldContent: "((",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, counts[entity.FieldItem])
	assert.Equal(t, validator.InvalidRule, counts[entity.FieldContent])
}

func TestBrowserAdapter_TextPatternRule(t *testing.T) {
	adapter := newAdapter(t)

	found, err := adapter.Query(context.Background(), entity.Query{Rule: entity.ParseRule("re:^bo")})
	require.NoError(t, err)
	require.Len(t, found, 1)

	text, err := adapter.Text(context.Background(), found[0])
	require.NoError(t, err)
	assert.Equal(t, "bob", text)
}

func TestBrowserAdapter_TreeNavigation(t *testing.T) {
	adapter := newAdapter(t)
	ctx := context.Background()

	hosts, err := adapter.Query(ctx, entity.Query{Rule: entity.PathRule("#host")})
	require.NoError(t, err)
	require.Len(t, hosts, 1)

	info, err := adapter.Describe(ctx, hosts[0])
	require.NoError(t, err)
	assert.Equal(t, "div", info.Tag)
	assert.Equal(t, "host", info.ID)
	assert.True(t, info.HasOpaqueRoot)

	root, ok, err := adapter.OpaqueRoot(ctx, hosts[0])
	require.NoError(t, err)
	require.True(t, ok)

	kids, err := adapter.Children(ctx, root)
	require.NoError(t, err)
	require.Len(t, kids, 1)

	parent, ok, err := adapter.Parent(ctx, kids[0])
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, hosts[0], parent.Handle)
	assert.True(t, parent.ViaOpaqueRoot)

	inside, err := adapter.Contains(ctx, hosts[0], kids[0])
	require.NoError(t, err)
	assert.True(t, inside)
}

func TestBrowserAdapter_ActivateAndMetrics(t *testing.T) {
	adapter := newAdapter(t)
	ctx := context.Background()

	containers, err := adapter.Query(ctx, entity.Query{Rule: entity.PathRule("#comments")})
	require.NoError(t, err)
	before, err := adapter.Metrics(ctx, containers[0])
	require.NoError(t, err)

	buttons, err := adapter.Query(ctx, entity.Query{Rule: entity.PathRule("#more")})
	require.NoError(t, err)
	require.NoError(t, adapter.Activate(ctx, buttons[0]))

	after, err := adapter.Metrics(ctx, containers[0])
	require.NoError(t, err)
	assert.True(t, after.GrewFrom(before))
	assert.Equal(t, before.ChildCount+1, after.ChildCount)

	assert.NoError(t, adapter.TriggerGrowth(ctx))
}

func TestBrowserAdapter_Screenshot(t *testing.T) {
	adapter := newAdapter(t)

	shot, err := adapter.Screenshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "jpeg", shot.Format)
	assert.NotEmpty(t, shot.Data)
	assert.LessOrEqual(t, shot.Width, screenshotWidth)
}

func TestBrowserAdapter_Close(t *testing.T) {
	adapter := newAdapter(t)

	assert.True(t, adapter.IsReady())
	adapter.Close()
	assert.False(t, adapter.IsReady())
	adapter.Close()

	_, err := adapter.Root(context.Background())
	assert.ErrorIs(t, err, ErrBrowserClosed)
}
