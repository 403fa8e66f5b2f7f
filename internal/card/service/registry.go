package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"card-studio/internal/card/builder"
	"card-studio/internal/card/viewer"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrDraftNotFound = errors.New("draft not found")
	ErrViewNotFound  = errors.New("view not found")
)

// ============================================================
// Drafts
// ============================================================

// Drafts хранит открытые редакторы, по одному на сессию редактирования.
// Черновики, которых не трогали дольше ttl, удаляются при подметании.
type Drafts struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	drafts map[string]*draft
	logger *zap.Logger
}

type draft struct {
	userID   string
	editor   *builder.Editor
	lastSeen time.Time
}

func NewDrafts(ttl time.Duration, logger *zap.Logger) *Drafts {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Drafts{
		ttl:    ttl,
		now:    time.Now,
		drafts: make(map[string]*draft),
		logger: logger.With(zap.String("component", "drafts")),
	}
}

func (d *Drafts) Open(userID string, e *builder.Editor) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := uuid.NewString()
	d.drafts[id] = &draft{userID: userID, editor: e, lastSeen: d.now()}
	return id
}

// Get отдаёт редактор только владельцу черновика и продлевает ему жизнь.
func (d *Drafts) Get(userID, id string) (*builder.Editor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dr, ok := d.drafts[id]
	if !ok || dr.userID != userID {
		return nil, ErrDraftNotFound
	}
	dr.lastSeen = d.now()
	return dr.editor, nil
}

func (d *Drafts) Close(userID, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	dr, ok := d.drafts[id]
	if !ok || dr.userID != userID {
		return ErrDraftNotFound
	}
	delete(d.drafts, id)
	return nil
}

func (d *Drafts) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.drafts)
}

// Sweep удаляет просроченные черновики и возвращает их число.
func (d *Drafts) Sweep() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	cutoff := d.now().Add(-d.ttl)
	n := 0
	for id, dr := range d.drafts {
		if dr.lastSeen.Before(cutoff) {
			delete(d.drafts, id)
			n++
		}
	}
	if n > 0 {
		d.logger.Debug("drafts swept", zap.Int("count", n))
	}
	return n
}

// Run подметает черновики раз в interval до отмены ctx.
func (d *Drafts) Run(ctx context.Context, interval time.Duration) {
	sweepEvery(ctx, interval, d.Sweep)
}

// ============================================================
// Views
// ============================================================

// Views хранит сессии публичного просмотра. Неиспользуемые дольше ttl закрываются.
type Views struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	views  map[string]*viewEntry
	logger *zap.Logger
}

type viewEntry struct {
	view     *viewer.View
	lastSeen time.Time
}

func NewViews(ttl time.Duration, logger *zap.Logger) *Views {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Views{
		ttl:    ttl,
		now:    time.Now,
		views:  make(map[string]*viewEntry),
		logger: logger.With(zap.String("component", "views")),
	}
}

func (v *Views) Put(view *viewer.View) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	id := uuid.NewString()
	v.views[id] = &viewEntry{view: view, lastSeen: v.now()}
	return id
}

// Get продлевает жизнь сессии.
func (v *Views) Get(id string) (*viewer.View, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.views[id]
	if !ok {
		return nil, ErrViewNotFound
	}
	e.lastSeen = v.now()
	return e.view, nil
}

func (v *Views) Close(id string) error {
	v.mu.Lock()
	e, ok := v.views[id]
	delete(v.views, id)
	v.mu.Unlock()
	if !ok {
		return ErrViewNotFound
	}
	e.view.Close()
	return nil
}

func (v *Views) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.views)
}

// Sweep закрывает просроченные сессии и возвращает их число.
func (v *Views) Sweep() int {
	v.mu.Lock()
	cutoff := v.now().Add(-v.ttl)
	var expired []*viewer.View
	for id, e := range v.views {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, e.view)
			delete(v.views, id)
		}
	}
	v.mu.Unlock()

	for _, view := range expired {
		view.Close()
	}
	if len(expired) > 0 {
		v.logger.Debug("views swept", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Run подметает сессии раз в interval до отмены ctx.
func (v *Views) Run(ctx context.Context, interval time.Duration) {
	sweepEvery(ctx, interval, v.Sweep)
}

func sweepEvery(ctx context.Context, interval time.Duration, sweep func() int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
