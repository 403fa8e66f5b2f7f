package viewer

import (
	"context"
	"errors"
	"io"
	"sync"

	"card-studio/internal/card/assets"
	"card-studio/internal/card/mapper"
	"card-studio/internal/card/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNotReady = errors.New("view is not interactive yet")
	ErrClosed   = errors.New("view is closed")
)

// Options: зависимости публичного просмотра.
type Options struct {
	Damping    float64
	Images     assets.Source
	Dispatcher *Dispatcher
	LegacySize mapper.LegacyImageSize
	Logger     *zap.Logger
}

// ============================================================
// View
// ============================================================

// View: восстановленная карта, вписанная в экран устройства.
type View struct {
	mu        sync.Mutex
	scene     *models.Scene
	viewport  models.Viewport
	transform models.Transform
	damping   float64

	dispatcher *Dispatcher
	images     assets.Source
	logger     *zap.Logger

	cancel context.CancelFunc
	ready  chan struct{}
	closed bool
}

// NewView восстанавливает сцену документа и ждёт загрузки всех картинок.
// Только после этого вид принимает нажатия. Отмена ctx закрывает вид.
func NewView(ctx context.Context, doc *models.CardDocument, vp models.Viewport, opts Options) (*View, error) {
	style := mapper.HelperStyle{BackgroundColor: doc.BackgroundColorHex}
	if style.BackgroundColor == "" {
		style.BackgroundColor = models.DefaultBackgroundColor
	}
	scene, err := mapper.Deserialize(doc.CanvasData, style, opts.LegacySize)
	if err != nil {
		return nil, err
	}

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = NewDispatcher(nil, opts.Logger)
	}

	loadCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	v := &View{
		scene:      scene,
		damping:    opts.Damping,
		dispatcher: opts.Dispatcher,
		images:     opts.Images,
		logger:     opts.Logger.With(zap.String("component", "view"), zap.String("document", doc.ID)),
		cancel:     cancel,
		ready:      make(chan struct{}),
	}
	v.resize(vp)

	go v.awaitImages(loadCtx)

	select {
	case <-v.ready:
		if loadCtx.Err() != nil {
			return nil, ErrClosed
		}
		return v, nil
	case <-ctx.Done():
		v.Close()
		return nil, ctx.Err()
	}
}

// awaitImages грузит все картинки сцены. Неудачная загрузка не мешает показу.
func (v *View) awaitImages(ctx context.Context) {
	defer close(v.ready)
	if v.images == nil {
		return
	}

	v.mu.Lock()
	var images []*models.Primitive
	for _, p := range v.scene.Objects {
		if p.Type == models.KindImage && p.Src != "" {
			images = append(images, p)
		}
	}
	refs := make([]string, len(images))
	for i, p := range images {
		refs[i] = p.Src
	}
	v.mu.Unlock()

	loaded := make([]*assets.Asset, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		g.Go(func() error {
			a, err := v.images.Load(gctx, ref)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				v.logger.Warn("image load failed", zap.Error(err))
				return nil
			}
			loaded[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	for i, p := range images {
		if a := loaded[i]; a != nil && (p.Width == 0 || p.Height == 0) {
			p.Width, p.Height = a.Width, a.Height
		}
	}
}

// Interactive сообщает, что все картинки загружены.
func (v *View) Interactive() bool {
	select {
	case <-v.ready:
		v.mu.Lock()
		defer v.mu.Unlock()
		return !v.closed
	default:
		return false
	}
}

// Resize пересчитывает масштаб и фон без повторного разбора документа.
func (v *View) Resize(vp models.Viewport) models.Transform {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.resize(vp)
	return v.transform
}

func (v *View) resize(vp models.Viewport) {
	v.viewport = vp
	v.transform = Fit(vp, v.damping)
	fullBleed(v.scene, v.transform, vp)
}

func (v *View) Transform() models.Transform {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.transform
}

func (v *View) Viewport() models.Viewport {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.viewport
}

// Scene возвращает копию сцены.
func (v *View) Scene() *models.Scene {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.scene.Clone()
}

// Tap передаёт нажатие в координатах устройства диспетчеру.
func (v *View) Tap(ctx context.Context, pt models.Point) (Result, error) {
	if !v.Interactive() {
		return Result{}, ErrNotReady
	}
	v.mu.Lock()
	scene, t := v.scene.Clone(), v.transform
	v.mu.Unlock()
	return v.dispatcher.PointerDown(ctx, scene, t, pt), nil
}

// RenderSVG рисует вид в текущем масштабе.
func (v *View) RenderSVG(w io.Writer, r *mapper.SVGRenderer) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	return r.Render(w, v.scene, v.transform, v.viewport)
}

// Close отменяет незавершённые загрузки. Повторный вызов безопасен.
func (v *View) Close() {
	v.cancel()
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
}
