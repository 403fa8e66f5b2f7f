package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"card-studio/internal/card/assets"
	"card-studio/internal/card/builder"
	"card-studio/internal/card/layout"
	"card-studio/internal/card/mapper"
	"card-studio/internal/card/models"
	"card-studio/internal/card/repository"
	"card-studio/internal/card/viewer"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type iconSource struct {
	data *assets.Loader
}

func (s iconSource) Load(ctx context.Context, ref string) (*assets.Asset, error) {
	if strings.HasPrefix(ref, "data:") {
		return s.data.Load(ctx, ref)
	}
	return &assets.Asset{MIME: "image/png", Width: 100, Height: 100}, nil
}

type stubPreview struct{ err error }

func (p stubPreview) Render(ctx context.Context, _ *models.Scene) ([]byte, error) {
	if p.err != nil {
		return nil, p.err
	}
	return []byte("\x89PNG-stub"), ctx.Err()
}

type fixture struct {
	svc   *CardService
	repo  *repository.Repository
	files *FileStorage
	b     *builder.Builder
	root  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	db, err := repository.OpenSQLite(filepath.Join(dir, "db", "cards.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repository.New(db)
	require.NoError(t, repo.Init(context.Background()))

	m, err := layout.NewFontMeasurer("")
	require.NoError(t, err)
	src := iconSource{data: assets.NewLoader(nil, nil)}
	b := builder.New(layout.NewEngine(layout.DefaultConfig(), m), src, zap.NewNop())

	root := filepath.Join(dir, "storage")
	files := NewFileStorage(root)
	svc := NewCardService(Deps{
		Store:   repo,
		Builder: b,
		Preview: stubPreview{},
		Files:   files,
		Images:  src,
		Origin:  "https://cards.example.mn/",
		Logger:  zap.NewNop(),
	})
	return &fixture{svc: svc, repo: repo, files: files, b: b, root: root}
}

func profile() models.CardProfile {
	return models.CardProfile{
		UserInfo: models.UserInfo{
			Name:       "Б. Эрдэнэ",
			Profession: "Инженер",
			Phone:      "99119911",
			Email:      "a@b.mn",
		},
		SocialLinks: []models.SocialLink{{Platform: "Facebook", URL: "fb.com/x", Handle: "erdene"}},
	}
}

func TestSaveWebCard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.SaveWebCard(ctx, "u1", profile())
	require.NoError(t, err)
	assert.Equal(t, "https://cards.example.mn/card-view/"+res.PublicID, res.ShareURL)
	assert.True(t, strings.HasPrefix(res.PreviewImage, "data:image/png;base64,"))

	var web models.CardDocument
	require.NoError(t, f.repo.Get(ctx, repository.UserCollection("u1", repository.CollectionCardWeb), res.DocumentID, &web))
	assert.Equal(t, "u1", web.UserID)
	assert.Equal(t, models.DefaultBackgroundColor, web.BackgroundColorHex)
	assert.Equal(t, []models.SocialLinkRef{{Platform: "Facebook", URL: "fb.com/x"}}, web.SocialLinks)

	pub, err := f.svc.GetPublic(ctx, res.PublicID)
	require.NoError(t, err)
	assert.Equal(t, res.PublicID, pub.ID)
	assert.Equal(t, web.CanvasData, pub.CanvasData)
	assert.Contains(t, pub.CanvasData, `"phone":"99119911"`)

	path, err := f.svc.PreviewFile("u1", res.DocumentID)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG-stub", string(data))
}

func TestSaveWebCard_AlwaysCreatesNewDocuments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.SaveWebCard(ctx, "u1", profile())
	require.NoError(t, err)
	second, err := f.svc.SaveWebCard(ctx, "u1", profile())
	require.NoError(t, err)

	assert.NotEqual(t, first.DocumentID, second.DocumentID)
	assert.NotEqual(t, first.PublicID, second.PublicID)

	designs, err := f.svc.ListDesigns(ctx, "u1", DesignWeb)
	require.NoError(t, err)
	assert.Len(t, designs, 2)
}

func TestSaveWebCard_PreviewFailureIsSurfaced(t *testing.T) {
	f := newFixture(t)
	f.svc.preview = stubPreview{err: errors.New("gpu on fire")}

	_, err := f.svc.SaveWebCard(context.Background(), "u1", profile())
	require.Error(t, err)

	designs, err := f.svc.ListDesigns(context.Background(), "u1", DesignWeb)
	require.NoError(t, err)
	assert.Empty(t, designs)
}

func TestSaveScene_FromEditor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e := builder.NewEditor(f.b)
	require.NoError(t, e.Rebuild(ctx, profile()))
	s, _ := e.Snapshot()
	_, err := e.EditText(s.ByRole(models.RoleProfession).ID, "Ахлах инженер")
	require.NoError(t, err)

	res, err := f.svc.SaveScene(ctx, "u1", e)
	require.NoError(t, err)

	pub, err := f.svc.GetPublic(ctx, res.PublicID)
	require.NoError(t, err)
	assert.Equal(t, "Ахлах инженер", pub.UserInfo.Profession)
	assert.Contains(t, pub.CanvasData, "Ахлах инженер")
}

func TestGetPublic_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetPublic(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveCardView_AndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := models.NewScene(mapper.CardBaseColor)
	s.Add(models.NewRect(models.Base{Fill: "#000000"}, 10, 10, 0))
	canvas, err := mapper.Serialize(s)
	require.NoError(t, err)

	id, err := f.svc.SaveCardView(ctx, "u1", canvas)
	require.NoError(t, err)

	designs, err := f.svc.ListDesigns(ctx, "u1", DesignView)
	require.NoError(t, err)
	require.Len(t, designs, 1)
	assert.Equal(t, id, designs[0].ID)
	assert.Equal(t, DesignView, designs[0].Kind)

	require.NoError(t, f.svc.DeleteDesign(ctx, "u1", DesignView, id))
	path, err := f.svc.PreviewFile("u1", id)
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, f.svc.DeleteDesign(ctx, "u1", DesignView, id), ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteDesign(ctx, "u1", "poster", id), ErrUnknownKind)

	_, err = f.svc.SaveCardView(ctx, "u1", "{broken")
	assert.ErrorIs(t, err, mapper.ErrMalformedScene)
}

func TestTemplates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	canvas, err := mapper.Serialize(models.NewScene("#ffffff"))
	require.NoError(t, err)

	id, err := f.svc.CreateTemplate(ctx, models.Template{Name: "Classic", Section: "web", CanvasData: canvas})
	require.NoError(t, err)

	list, err := f.svc.ListTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.NotEmpty(t, list[0].PreviewImage)
	assert.False(t, list[0].CreatedAt.IsZero())

	_, err = f.svc.CreateTemplate(ctx, models.Template{CanvasData: canvas})
	assert.Error(t, err)
}

func TestPlaceOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	web, err := f.svc.SaveWebCard(ctx, "u1", profile())
	require.NoError(t, err)
	canvas, err := mapper.Serialize(models.NewScene("#ffffff"))
	require.NoError(t, err)
	viewID, err := f.svc.SaveCardView(ctx, "u1", canvas)
	require.NoError(t, err)

	contact := models.OrderContact{FullName: "Б. Эрдэнэ", Phone: "99119911", Address: "УБ", Email: "a@b.mn"}
	res, err := f.svc.PlaceOrder(ctx, "u1", OrderRequest{OrderContact: contact, CardViewID: viewID, CardWebID: web.DocumentID})
	require.NoError(t, err)
	assert.NotEqual(t, web.PublicID, res.PublicID)

	var order models.Order
	require.NoError(t, f.repo.Get(ctx, repository.CollectionOrders, res.OrderID, &order))
	assert.False(t, order.OrderStatus)
	assert.Equal(t, canvas, order.CardViewData)
	assert.Equal(t, res.ShareURL, order.IPhoneURL)
	assert.Equal(t, "УБ", order.Address)

	raw, err := f.repo.ListAll(ctx, repository.CollectionOrders)
	require.NoError(t, err)
	require.Len(t, raw, 1)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw[0].Body, &body))
	assert.Equal(t, false, body["order_status"])

	_, err = f.svc.PlaceOrder(ctx, "u1", OrderRequest{OrderContact: contact, CardViewID: "nope", CardWebID: web.DocumentID})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.PlaceOrder(ctx, "u1", OrderRequest{CardViewID: viewID, CardWebID: web.DocumentID})
	assert.Error(t, err)
}

// ============================================================
// Sessions, storage, registries
// ============================================================

func TestSessionManager(t *testing.T) {
	m := NewSessionManager(time.Hour)
	now := time.Unix(0, 0)
	m.now = func() time.Time { return now }

	token := m.Issue("u1")
	uid, ok := m.Resolve(token)
	require.True(t, ok)
	assert.Equal(t, "u1", uid)

	now = now.Add(2 * time.Hour)
	_, ok = m.Resolve(token)
	assert.False(t, ok)

	forever := NewSessionManager(0)
	tok := forever.Issue("u2")
	forever.Revoke(tok)
	_, ok = forever.Resolve(tok)
	assert.False(t, ok)
}

func TestFileStorage_RejectsTraversal(t *testing.T) {
	s := NewFileStorage(t.TempDir())
	_, err := s.PreviewPath("../u1", "doc")
	assert.ErrorIs(t, err, ErrInvalidPath)
	_, err = s.SavePreview("u1", "..", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidPath)
	assert.NoError(t, s.RemovePreview("u1", "never-written"))
}

func TestDrafts(t *testing.T) {
	d := NewDrafts(time.Hour, nil)
	e := builder.NewEditor(nil)
	id := d.Open("u1", e)

	got, err := d.Get("u1", id)
	require.NoError(t, err)
	assert.Same(t, e, got)

	_, err = d.Get("u2", id)
	assert.ErrorIs(t, err, ErrDraftNotFound)

	require.NoError(t, d.Close("u1", id))
	assert.ErrorIs(t, d.Close("u1", id), ErrDraftNotFound)
}

func TestDrafts_Sweep(t *testing.T) {
	d := NewDrafts(time.Minute, nil)
	now := time.Unix(0, 0)
	d.now = func() time.Time { return now }

	idle := d.Open("u1", builder.NewEditor(nil))
	active := d.Open("u1", builder.NewEditor(nil))

	now = now.Add(50 * time.Second)
	_, err := d.Get("u1", active)
	require.NoError(t, err)

	now = now.Add(20 * time.Second)
	assert.Equal(t, 1, d.Sweep())
	assert.Equal(t, 1, d.Len())

	_, err = d.Get("u1", idle)
	assert.ErrorIs(t, err, ErrDraftNotFound)
	_, err = d.Get("u1", active)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, d.Sweep())
	assert.Equal(t, 0, d.Len())
}

func TestDrafts_RunStopsWithContext(t *testing.T) {
	d := NewDrafts(time.Nanosecond, nil)
	d.Open("u1", builder.NewEditor(nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx, time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return d.Len() == 0 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestViews_Sweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.SaveWebCard(ctx, "u1", profile())
	require.NoError(t, err)
	doc, err := f.svc.GetPublic(ctx, res.PublicID)
	require.NoError(t, err)

	v, err := viewer.NewView(ctx, doc, models.Viewport{Width: 390, Height: 844}, viewer.Options{})
	require.NoError(t, err)

	views := NewViews(time.Minute, nil)
	now := time.Unix(0, 0)
	views.now = func() time.Time { return now }

	id := views.Put(v)
	now = now.Add(30 * time.Second)
	_, err = views.Get(id)
	require.NoError(t, err)

	now = now.Add(45 * time.Second)
	assert.Equal(t, 0, views.Sweep())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, views.Sweep())
	assert.Equal(t, 0, views.Len())
	assert.False(t, v.Interactive())

	_, err = views.Get(id)
	assert.ErrorIs(t, err, ErrViewNotFound)
	assert.ErrorIs(t, views.Close(id), ErrViewNotFound)
}
