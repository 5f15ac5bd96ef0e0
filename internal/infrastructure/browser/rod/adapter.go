// Package rod is the live-browser DocumentPort. Element handles map to
// DOM backend node ids, so the same node always yields the same handle for
// the lifetime of the page.
package rod

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"comment-extractor/internal/application/port/output"
	"comment-extractor/internal/domain/entity"

	"github.com/andybalholm/cascadia"
	"github.com/disintegration/imaging"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

var _ output.DocumentPort = (*BrowserAdapter)(nil)

var (
	ErrInvalidURL    = errors.New("invalid url")
	ErrBrowserClosed = errors.New("browser closed")
)

const (
	defaultSlowMotion = 0
	defaultTimeout    = 10 * time.Second
	idleAfterGrowth   = 800 * time.Millisecond
	screenshotWidth   = 1024
)

type BrowserConfig struct {
	Headless   bool
	SlowMotion time.Duration
	Timeout    time.Duration
	NoSandbox  bool
	DevTools   bool
	// ControlURL connects to a running browser instead of launching one.
	ControlURL string
}

func DefaultConfig() BrowserConfig {
	return BrowserConfig{
		Headless:   true,
		SlowMotion: defaultSlowMotion,
		Timeout:    defaultTimeout,
	}
}

type BrowserAdapter struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page
	timeout  time.Duration

	mu     sync.Mutex
	arena  []*rod.Element
	index  map[proto.DOMBackendNodeID]entity.ElementHandle
	closed bool
}

func NewBrowserAdapter(ctx context.Context, cfg BrowserConfig) (*BrowserAdapter, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	var l *launcher.Launcher
	controlURL := cfg.ControlURL
	if controlURL == "" {
		l = launcher.New().
			Context(ctx).
			Headless(cfg.Headless).
			Devtools(cfg.DevTools).
			NoSandbox(cfg.NoSandbox).
			Delete("use-mock-keychain")

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL).SlowMotion(cfg.SlowMotion)
	if err := browser.Connect(); err != nil {
		if l != nil {
			l.Kill()
		}
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		if l != nil {
			l.Kill()
		}
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	return &BrowserAdapter{
		browser:  browser,
		launcher: l,
		page:     page,
		timeout:  cfg.Timeout,
		index:    make(map[proto.DOMBackendNodeID]entity.ElementHandle),
	}, nil
}

func (b *BrowserAdapter) IsReady() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.closed && b.page != nil
}

// Navigate loads rawURL and waits for the page to settle. Handles from the
// previous page are dropped.
func (b *BrowserAdapter) Navigate(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "file") || (u.Scheme != "file" && u.Host == "") {
		return fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	page, err := b.pageFor(ctx)
	if err != nil {
		return err
	}

	if err := page.Timeout(b.timeout * 3).Navigate(rawURL); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	if err := page.Timeout(b.timeout * 3).WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	_ = page.WaitIdle(5 * time.Second)

	b.mu.Lock()
	b.arena = nil
	b.index = make(map[proto.DOMBackendNodeID]entity.ElementHandle)
	b.mu.Unlock()
	return nil
}

func (b *BrowserAdapter) CurrentURL() string {
	info, err := b.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (b *BrowserAdapter) pageFor(ctx context.Context) (*rod.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBrowserClosed
	}
	return b.page.Context(ctx), nil
}

// register returns the handle for el, allocating one for unseen nodes.
func (b *BrowserAdapter) register(el *rod.Element) (entity.ElementHandle, error) {
	node, err := el.Describe(0, false)
	if err != nil {
		return entity.NoElement, fmt.Errorf("describe node: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if h, ok := b.index[node.BackendNodeID]; ok {
		return h, nil
	}
	b.arena = append(b.arena, el)
	h := entity.ElementHandle(len(b.arena))
	b.index[node.BackendNodeID] = h
	return h, nil
}

func (b *BrowserAdapter) registerAll(els rod.Elements) ([]entity.ElementHandle, error) {
	out := make([]entity.ElementHandle, 0, len(els))
	for _, el := range els {
		h, err := b.register(el)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

func (b *BrowserAdapter) element(ctx context.Context, h entity.ElementHandle) (*rod.Element, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBrowserClosed
	}
	i := int(h) - 1
	if i < 0 || i >= len(b.arena) {
		return nil, fmt.Errorf("%w: handle %d", entity.ErrElementGone, h)
	}
	return b.arena[i].Context(ctx), nil
}

// resolve returns the element behind h. NoElement stands for the document
// element.
func (b *BrowserAdapter) resolve(ctx context.Context, h entity.ElementHandle) (*rod.Element, error) {
	if h == entity.NoElement {
		root, err := b.Root(ctx)
		if err != nil {
			return nil, err
		}
		h = root
	}
	return b.element(ctx, h)
}

func (b *BrowserAdapter) evalOn(ctx context.Context, h entity.ElementHandle, js string, args ...any) (gson.JSON, error) {
	el, err := b.resolve(ctx, h)
	if err != nil {
		return gson.JSON{}, err
	}
	res, err := el.Eval(js, args...)
	if err != nil {
		return gson.JSON{}, gone(err)
	}
	return res.Value, nil
}

// elementsOn is evalOn for scripts returning node arrays.
func (b *BrowserAdapter) elementsOn(ctx context.Context, h entity.ElementHandle, js string, args ...any) ([]entity.ElementHandle, error) {
	el, err := b.resolve(ctx, h)
	if err != nil {
		return nil, err
	}
	els, err := el.ElementsByJS(rod.Eval(js, args...))
	if err != nil {
		return nil, gone(err)
	}
	return b.registerAll(els)
}

func gone(err error) error {
	var notFound *rod.ObjectNotFoundError
	if errors.As(err, &notFound) || strings.Contains(err.Error(), "Cannot find context") {
		return fmt.Errorf("%w: %v", entity.ErrElementGone, err)
	}
	return err
}

func (b *BrowserAdapter) Root(ctx context.Context) (entity.ElementHandle, error) {
	page, err := b.pageFor(ctx)
	if err != nil {
		return entity.NoElement, err
	}
	els, err := page.ElementsByJS(rod.Eval(`() => [document.documentElement]`))
	if err != nil {
		return entity.NoElement, fmt.Errorf("document root: %w", err)
	}
	hs, err := b.registerAll(els)
	if err != nil || len(hs) == 0 {
		return entity.NoElement, fmt.Errorf("document root: %w", err)
	}
	return hs[0], nil
}

func (b *BrowserAdapter) Children(ctx context.Context, h entity.ElementHandle) ([]entity.ElementHandle, error) {
	return b.elementsOn(ctx, h, jsChildren)
}

func (b *BrowserAdapter) OpaqueRoot(ctx context.Context, h entity.ElementHandle) (entity.ElementHandle, bool, error) {
	hs, err := b.elementsOn(ctx, h, jsShadowRoot)
	if err != nil || len(hs) == 0 {
		return entity.NoElement, false, err
	}
	return hs[0], true, nil
}

func (b *BrowserAdapter) Parent(ctx context.Context, h entity.ElementHandle) (entity.ParentRef, bool, error) {
	hs, err := b.elementsOn(ctx, h, jsParent)
	if err != nil || len(hs) == 0 {
		return entity.ParentRef{}, false, err
	}
	via, err := b.evalOn(ctx, h, jsParentIsShadow)
	if err != nil {
		return entity.ParentRef{}, false, err
	}
	return entity.ParentRef{Handle: hs[0], ViaOpaqueRoot: via.Bool()}, true, nil
}

type describeResult struct {
	Connected  bool              `json:"connected"`
	Tag        string            `json:"tag"`
	Attributes map[string]string `json:"attributes"`
	DirectText string            `json:"directText"`
	ChildCount int               `json:"childCount"`
	HasShadow  bool              `json:"hasShadow"`
}

func (b *BrowserAdapter) Describe(ctx context.Context, h entity.ElementHandle) (*entity.ElementInfo, error) {
	v, err := b.evalOn(ctx, h, jsDescribe)
	if err != nil {
		return nil, err
	}
	var d describeResult
	if err := v.Unmarshal(&d); err != nil {
		return nil, fmt.Errorf("decode element info: %w", err)
	}
	if !d.Connected {
		return nil, fmt.Errorf("%w: handle %d", entity.ErrElementGone, h)
	}

	info := &entity.ElementInfo{
		Tag:           d.Tag,
		Attributes:    d.Attributes,
		DirectText:    d.DirectText,
		ChildCount:    d.ChildCount,
		HasOpaqueRoot: d.HasShadow,
	}
	if info.Attributes == nil {
		info.Attributes = map[string]string{}
	}
	info.ID = info.Attributes["id"]
	info.Classes = strings.Fields(info.Attributes["class"])
	return info, nil
}

func (b *BrowserAdapter) Text(ctx context.Context, h entity.ElementHandle) (string, error) {
	v, err := b.evalOn(ctx, h, jsText)
	if err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(v.Str()), " "), nil
}

func (b *BrowserAdapter) Attribute(ctx context.Context, h entity.ElementHandle, name string) (string, bool, error) {
	v, err := b.evalOn(ctx, h, jsAttribute, name)
	if err != nil {
		return "", false, err
	}
	if v.Nil() {
		return "", false, nil
	}
	return v.Str(), true, nil
}

func (b *BrowserAdapter) Contains(ctx context.Context, ancestor, h entity.ElementHandle) (bool, error) {
	el, err := b.element(ctx, h)
	if err != nil {
		return false, err
	}
	v, err := b.evalOn(ctx, ancestor, jsContains, el.Object)
	if err != nil {
		return false, err
	}
	return v.Bool(), nil
}

// Query validates the rule on the Go side first so that syntax errors map
// to entity.ErrInvalidSelector instead of a script exception.
func (b *BrowserAdapter) Query(ctx context.Context, q entity.Query) ([]entity.ElementHandle, error) {
	sel := strings.TrimSpace(q.Rule.Selector)
	if sel == "" {
		return nil, fmt.Errorf("%w: empty selector", entity.ErrInvalidSelector)
	}
	pattern := q.Rule.Kind == entity.RuleTextPattern
	if pattern {
		if _, err := regexp.Compile(sel); err != nil {
			return nil, fmt.Errorf("%w: %v", entity.ErrInvalidSelector, err)
		}
	} else if _, err := cascadia.Compile(sel); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidSelector, err)
	}

	hs, err := b.elementsOn(ctx, q.Scope, jsQuery, sel, q.PierceOpaque, pattern, q.Scope == entity.NoElement)
	if err != nil && strings.Contains(err.Error(), "SyntaxError") {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidSelector, err)
	}
	return hs, err
}

func (b *BrowserAdapter) Activate(ctx context.Context, h entity.ElementHandle) error {
	el, err := b.element(ctx, h)
	if err != nil {
		return err
	}
	_ = el.ScrollIntoView()
	if err := el.Timeout(b.timeout).Click(proto.InputMouseButtonLeft, 1); err != nil {
		if _, jsErr := el.Eval(`() => this.click()`); jsErr != nil {
			return fmt.Errorf("click failed: %w", gone(err))
		}
	}
	return nil
}

func (b *BrowserAdapter) TriggerGrowth(ctx context.Context) error {
	page, err := b.pageFor(ctx)
	if err != nil {
		return err
	}
	if _, err := page.Eval(`() => window.scrollTo(0, document.documentElement.scrollHeight)`); err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	_ = page.WaitIdle(idleAfterGrowth)
	return nil
}

func (b *BrowserAdapter) Metrics(ctx context.Context, scope entity.ElementHandle) (entity.ContentMetrics, error) {
	v, err := b.evalOn(ctx, scope, jsMetrics, scope == entity.NoElement)
	if err != nil {
		return entity.ContentMetrics{}, err
	}
	return entity.ContentMetrics{
		ContentLength: v.Get("length").Int(),
		ChildCount:    v.Get("children").Int(),
	}, nil
}

type Screenshot struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// Screenshot captures the viewport as JPEG, downscaled to screenshotWidth.
func (b *BrowserAdapter) Screenshot(ctx context.Context) (*Screenshot, error) {
	page, err := b.pageFor(ctx)
	if err != nil {
		return nil, err
	}
	imgBytes, err := page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: gson.Int(80),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %w", err)
	}
	if img.Bounds().Dx() > screenshotWidth {
		img = imaging.Resize(img, screenshotWidth, 0, imaging.Lanczos)
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 75}); err != nil {
		return nil, fmt.Errorf("jpeg encode failed: %w", err)
	}
	return &Screenshot{
		Data:   buf.Bytes(),
		Format: "jpeg",
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}, nil
}

func (b *BrowserAdapter) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.arena = nil
	b.mu.Unlock()

	if b.browser != nil {
		_ = b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher.Cleanup()
	}
}
