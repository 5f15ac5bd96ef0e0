package htmldoc

import (
	"context"
	"strings"
	"testing"

	"comment-extractor/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shadowHTML = `<!DOCTYPE html>
<html>
<head><title>x</title><script>var a = 1;</script></head>
<body>
	<!-- banner -->
	<div id="app" class="page main">Hello <b>there</b> world
		<comment-widget>
			<template shadowrootmode="open">
				<div class="inner">Inside shadow</div>
			</template>
			<span>light child</span>
		</comment-widget>
	</div>
	<ul class="list"><li>one</li><li>two</li></ul>
</body>
</html>`

func mustDoc(t *testing.T, raw string, opts ...Option) *Document {
	t.Helper()
	d, err := New(raw, opts...)
	require.NoError(t, err)
	return d
}

func query(t *testing.T, d *Document, sel string, pierce bool) []entity.ElementHandle {
	t.Helper()
	hs, err := d.Query(context.Background(), entity.Query{Rule: entity.PathRule(sel), PierceOpaque: pierce})
	require.NoError(t, err)
	return hs
}

func TestParse_CleansScriptsAndComments(t *testing.T) {
	d := mustDoc(t, shadowHTML)
	out := d.HTML()

	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "banner")
	assert.Contains(t, out, "shadowrootmode")
}

func TestQuery_DoesNotEnterOpaqueRootUnlessPierced(t *testing.T) {
	d := mustDoc(t, shadowHTML)

	assert.Len(t, query(t, d, ".inner", false), 0)
	assert.Len(t, query(t, d, ".inner", true), 1)
	assert.Len(t, query(t, d, "li", false), 2)
}

func TestQuery_InvalidSelector(t *testing.T) {
	d := mustDoc(t, shadowHTML)

	_, err := d.Query(context.Background(), entity.Query{Rule: entity.PathRule("div[[")})
	assert.ErrorIs(t, err, entity.ErrInvalidSelector)

	_, err = d.Query(context.Background(), entity.Query{Rule: entity.SelectorRule{Selector: "(", Kind: entity.RuleTextPattern}})
	assert.ErrorIs(t, err, entity.ErrInvalidSelector)
}

func TestQuery_TextPattern(t *testing.T) {
	d := mustDoc(t, shadowHTML)

	hs, err := d.Query(context.Background(), entity.Query{Rule: entity.ParseRule("re:^t(w)o$")})
	require.NoError(t, err)
	assert.Len(t, hs, 1)
}

func TestDescribe_DirectTextOnly(t *testing.T) {
	ctx := context.Background()
	d := mustDoc(t, shadowHTML)
	app := query(t, d, "#app", false)[0]

	info, err := d.Describe(ctx, app)
	require.NoError(t, err)

	assert.Equal(t, "div", info.Tag)
	assert.Equal(t, "app", info.ID)
	assert.Equal(t, []string{"page", "main"}, info.Classes)
	assert.Equal(t, "Hello world", info.DirectText)
	assert.Equal(t, 2, info.ChildCount)
}

func TestOpaqueRoot_AndParent(t *testing.T) {
	ctx := context.Background()
	d := mustDoc(t, shadowHTML)
	host := query(t, d, "comment-widget", false)[0]

	info, err := d.Describe(ctx, host)
	require.NoError(t, err)
	assert.True(t, info.HasOpaqueRoot)

	kids, err := d.Children(ctx, host)
	require.NoError(t, err)
	require.Len(t, kids, 1, "shadow template must not be an ordinary child")

	root, ok, err := d.OpaqueRoot(ctx, host)
	require.NoError(t, err)
	require.True(t, ok)

	inner, err := d.Children(ctx, root)
	require.NoError(t, err)
	require.Len(t, inner, 1)

	parent, ok, err := d.Parent(ctx, inner[0])
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, host, parent.Handle)
	assert.True(t, parent.ViaOpaqueRoot)
}

func TestHandles_StablePerElement(t *testing.T) {
	d := mustDoc(t, shadowHTML)

	a := query(t, d, "li", false)
	b := query(t, d, "li", false)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a[0], a[1])
}

func TestTriggerGrowth_AppendsPages(t *testing.T) {
	ctx := context.Background()
	d := mustDoc(t, shadowHTML, WithGrowthPages("ul.list", "<li>three</li>", "<li>four</li>"))
	list := query(t, d, "ul.list", false)[0]

	before, err := d.Metrics(ctx, list)
	require.NoError(t, err)

	require.NoError(t, d.TriggerGrowth(ctx))
	after, err := d.Metrics(ctx, list)
	require.NoError(t, err)
	assert.True(t, after.GrewFrom(before))
	assert.Equal(t, 3, after.ChildCount)

	require.NoError(t, d.TriggerGrowth(ctx))
	require.NoError(t, d.TriggerGrowth(ctx))
	final, err := d.Metrics(ctx, list)
	require.NoError(t, err)
	assert.Equal(t, 4, final.ChildCount)
	assert.Equal(t, 3, d.GrowthCalls())
}

func TestActivate_InsertsFragmentOnce(t *testing.T) {
	ctx := context.Background()
	raw := `<html><body><div class="thread">
		<button class="more" data-fragment="r1" data-fragment-target=".replies">more</button>
		<div class="replies"></div>
	</div></body></html>`
	d := mustDoc(t, raw, WithFragments(map[string]string{
		"r1": `<p class="reply">a</p><p class="reply">b</p>`,
	}))
	btn := query(t, d, "button.more", false)[0]

	require.NoError(t, d.Activate(ctx, btn))
	require.NoError(t, d.Activate(ctx, btn))

	assert.Len(t, query(t, d, ".replies > .reply", false), 2)
	assert.Equal(t, 2, d.Activations())
}

func TestText_CollapsesWhitespace(t *testing.T) {
	d := mustDoc(t, `<html><body><p id="p">  a
		<b>b</b>   c </p></body></html>`)
	p := query(t, d, "#p", false)[0]

	text, err := d.Text(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "a b c", text)
}

func TestContains(t *testing.T) {
	ctx := context.Background()
	d := mustDoc(t, shadowHTML)
	app := query(t, d, "#app", false)[0]
	span := query(t, d, "comment-widget > span", false)[0]
	li := query(t, d, "li", false)[0]

	ok, err := d.Contains(ctx, app, span)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.Contains(ctx, app, li)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, strings.Contains(d.HTML(), "light child"))
}
