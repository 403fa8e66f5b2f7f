package viewer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"card-studio/internal/card/assets"
	"card-studio/internal/card/mapper"
	"card-studio/internal/card/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingNavigator struct {
	mu      sync.Mutex
	actions []Action
	err     error
}

func (n *recordingNavigator) Navigate(_ context.Context, a Action) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.actions = append(n.actions, a)
	return n.err
}

func tapScene(meta models.Metadata) *models.Scene {
	s := models.NewScene("#49c088")
	mapper.InsertHelpers(s, mapper.HelperStyle{BackgroundColor: "#49c088"})
	s.Add(models.NewRect(models.Base{Left: 100, Top: 100, Evented: true}, 50, 50, 0, meta))
	return s
}

func TestFit(t *testing.T) {
	tr := Fit(models.Viewport{Width: 500, Height: 600}, 0.7)
	assert.InDelta(t, 1.4, tr.Scale, 1e-9)
	assert.InDelta(t, 75.0, tr.PanX, 1e-9)
	assert.Equal(t, 0.0, tr.PanY)

	tall := Fit(models.Viewport{Width: 250, Height: 1200}, 1)
	assert.InDelta(t, 2.0, tall.Scale, 1e-9)
	assert.InDelta(t, -125.0, tall.PanX, 1e-9)

	assert.Equal(t, models.IdentityTransform(), Fit(models.Viewport{}, 1))
}

func TestFullBleedCoversViewport(t *testing.T) {
	s := tapScene(models.Metadata{})
	vp := models.Viewport{Width: 400, Height: 800}
	tr := Fit(vp, 0.7)
	fullBleed(s, tr, vp)

	bg := s.Objects[0]
	require.True(t, bg.IsBackground)
	topLeft := tr.ToDesign(models.Point{})
	bottomRight := tr.ToDesign(models.Point{X: vp.Width, Y: vp.Height})
	b := bg.Bounds()
	assert.Less(t, b.X, topLeft.X)
	assert.Less(t, b.Y, topLeft.Y)
	assert.Greater(t, b.X+b.Width, bottomRight.X)
	assert.Greater(t, b.Bottom(), bottomRight.Y)
	assert.Len(t, s.AllByRole(models.RoleBackground), 1)
}

func TestResolveAction_Priority(t *testing.T) {
	tests := []struct {
		name string
		meta models.Metadata
		kind ActionKind
		want string
	}{
		{"vcard wins", models.Metadata{VCard: "BEGIN:VCARD", URL: "x.mn", Phone: "1"}, ActionVCard, ""},
		{"url over phone", models.Metadata{URL: "fb.com/x", Phone: "1"}, ActionURL, "https://fb.com/x"},
		{"url over website", models.Metadata{URL: "http://a.mn", Website: "b.mn"}, ActionURL, "http://a.mn"},
		{"website", models.Metadata{Website: "bat.mn", Email: "a@b.mn"}, ActionURL, "https://bat.mn"},
		{"phone over email", models.Metadata{Phone: "99119911", Email: "a@b.mn"}, ActionPhone, "tel:99119911"},
		{"email", models.Metadata{Email: "a@b.mn"}, ActionEmail, "mailto:a@b.mn"},
		{"address only", models.Metadata{Address: "UB"}, ActionNone, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := ResolveAction(tt.meta)
			assert.Equal(t, tt.kind, a.Kind)
			assert.Equal(t, tt.want, a.Target)
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://fb.com/x", NormalizeURL("fb.com/x"))
	assert.Equal(t, "https://fb.com/x", NormalizeURL("https://fb.com/x"))
	assert.Equal(t, "HTTP://A.MN", NormalizeURL(" HTTP://A.MN "))
	assert.Equal(t, "", NormalizeURL("  "))
}

func TestHitTest_FallsThroughNonEvented(t *testing.T) {
	s := tapScene(models.Metadata{VCard: "BEGIN:VCARD"})
	label := models.NewText(models.Base{Left: 100, Top: 100}, "label", models.TextStyle{FontSize: 16})
	label.Width, label.Height = 50, 20
	s.Add(label)

	hit := HitTest(s, models.Point{X: 110, Y: 110})
	require.NotNil(t, hit)
	assert.Equal(t, "BEGIN:VCARD", hit.VCard)
	assert.Nil(t, HitTest(s, models.Point{X: 10, Y: 10}))
}

func TestHitTest_SkipsHidden(t *testing.T) {
	s := tapScene(models.Metadata{Email: "a@b.mn"})
	cleared := models.NewTextbox(models.Base{Left: 100, Top: 100, Evented: true, Hidden: true}, "",
		models.TextStyle{FontSize: 16, Width: 50}, models.Metadata{Phone: "99119911"})
	cleared.Height = 20
	s.Add(cleared)

	hit := HitTest(s, models.Point{X: 110, Y: 110})
	require.NotNil(t, hit)
	assert.Equal(t, "a@b.mn", hit.Email)
}

func TestDispatcher_Debounce(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	nav := &recordingNavigator{}
	d := NewDispatcher(nav, zap.NewNop(), WithClock(clock.Now))
	s := tapScene(models.Metadata{URL: "fb.com/x"})
	tr := models.IdentityTransform()
	pt := models.Point{X: 120, Y: 120}

	first := d.PointerDown(context.Background(), s, tr, pt)
	clock.Advance(50 * time.Millisecond)
	second := d.PointerDown(context.Background(), s, tr, pt)

	assert.Equal(t, ActionURL, first.Action.Kind)
	assert.Equal(t, "https://fb.com/x", first.Action.Target)
	assert.True(t, second.Debounced)
	assert.Len(t, nav.actions, 1)

	clock.Advance(300 * time.Millisecond)
	third := d.PointerDown(context.Background(), s, tr, pt)
	assert.False(t, third.Debounced)
	assert.Len(t, nav.actions, 2)
}

func TestDispatcher_MissDoesNotDebounce(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	nav := &recordingNavigator{}
	d := NewDispatcher(nav, nil, WithClock(clock.Now))
	s := tapScene(models.Metadata{Phone: "99119911"})
	tr := models.IdentityTransform()

	miss := d.PointerDown(context.Background(), s, tr, models.Point{X: 5, Y: 5})
	assert.Equal(t, ActionNone, miss.Action.Kind)

	hit := d.PointerDown(context.Background(), s, tr, models.Point{X: 110, Y: 110})
	assert.Equal(t, "tel:99119911", hit.Action.Target)
	assert.Len(t, nav.actions, 1)
}

func TestDispatcher_TransformsDevicePoint(t *testing.T) {
	nav := &recordingNavigator{}
	d := NewDispatcher(nav, nil)
	s := tapScene(models.Metadata{Email: "a@b.mn"})
	tr := models.Transform{Scale: 2, PanX: 40}

	res := d.PointerDown(context.Background(), s, tr, models.Point{X: 40 + 2*120, Y: 2 * 120})
	assert.Equal(t, ActionEmail, res.Action.Kind)
}

func TestDispatcher_FailureProducesNotice(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	nav := &recordingNavigator{err: errors.New("blocked")}
	d := NewDispatcher(nav, zap.New(core))
	s := tapScene(models.Metadata{URL: "fb.com/x"})

	res := d.PointerDown(context.Background(), s, models.IdentityTransform(), models.Point{X: 110, Y: 110})
	require.NotNil(t, res.Notice)
	assert.Equal(t, NoticeActionFailed, res.Notice.Message)
	assert.Equal(t, 1, logs.FilterMessage("dispatch failed").Len())
}

func TestCheckingNavigator(t *testing.T) {
	nav := CheckingNavigator{}
	ctx := context.Background()
	assert.NoError(t, nav.Navigate(ctx, Action{Kind: ActionURL, Target: "https://fb.com/x"}))
	assert.Error(t, nav.Navigate(ctx, Action{Kind: ActionURL, Target: "https://"}))
	assert.Error(t, nav.Navigate(ctx, Action{Kind: ActionVCard, VCard: "nope"}))
	assert.NoError(t, nav.Navigate(ctx, Action{Kind: ActionPhone, Target: "tel:1"}))
}

// ============================================================
// View
// ============================================================

type gatedSource struct {
	gate  chan struct{}
	mu    sync.Mutex
	calls int
}

func (g *gatedSource) Load(ctx context.Context, ref string) (*assets.Asset, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.gate != nil {
		select {
		case <-g.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &assets.Asset{MIME: "image/png", Width: 64, Height: 32}, nil
}

func viewDocument(t *testing.T) *models.CardDocument {
	t.Helper()
	s := models.NewScene("#49c088")
	s.Add(
		models.NewImage(models.Base{Left: 10, Top: 10}, "https://icons.example/a.png", 0, 0, nil),
		models.NewRect(models.Base{Left: 45, Top: 500, Evented: true}, 160, 40, 20, models.Metadata{VCard: "BEGIN:VCARD\r\nEND:VCARD"}),
	)
	data, err := mapper.Serialize(s)
	require.NoError(t, err)
	return &models.CardDocument{ID: "doc-1", CanvasData: data, BackgroundColorHex: "#112233"}
}

func TestNewView_AwaitsImages(t *testing.T) {
	src := &gatedSource{}
	v, err := NewView(context.Background(), viewDocument(t), models.Viewport{Width: 250, Height: 600}, Options{
		Damping: 1,
		Images:  src,
	})
	require.NoError(t, err)
	defer v.Close()

	assert.True(t, v.Interactive())
	assert.Equal(t, 1, src.calls)

	s := v.Scene()
	img := s.AllByRole(models.RoleNone)[0]
	assert.Equal(t, 64.0, img.Width)
	assert.Equal(t, "#112233", s.Objects[0].Fill)

	res, err := v.Tap(context.Background(), models.Point{X: 125, Y: 520})
	require.NoError(t, err)
	assert.Equal(t, ActionVCard, res.Action.Kind)
	assert.Equal(t, "contact.vcf", res.Action.FileName)
}

func TestNewView_CancelledWhileLoading(t *testing.T) {
	src := &gatedSource{gate: make(chan struct{})}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	v, err := NewView(ctx, viewDocument(t), models.Viewport{Width: 250, Height: 600}, Options{Images: src})
	assert.Nil(t, v)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewView_MalformedDocument(t *testing.T) {
	_, err := NewView(context.Background(), &models.CardDocument{CanvasData: "garbage"}, models.Viewport{Width: 1, Height: 1}, Options{})
	assert.ErrorIs(t, err, mapper.ErrMalformedScene)
}

func TestView_Resize(t *testing.T) {
	v, err := NewView(context.Background(), viewDocument(t), models.Viewport{Width: 250, Height: 600}, Options{Damping: 1})
	require.NoError(t, err)

	tr := v.Resize(models.Viewport{Width: 500, Height: 1200})
	assert.InDelta(t, 2.0, tr.Scale, 1e-9)
	assert.Equal(t, tr, v.Transform())

	bg := v.Scene().Objects[0]
	assert.Greater(t, bg.Width, 250.0)

	v.Close()
	assert.False(t, v.Interactive())
	_, err = v.Tap(context.Background(), models.Point{})
	assert.ErrorIs(t, err, ErrNotReady)
}
