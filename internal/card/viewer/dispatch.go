package viewer

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"card-studio/internal/card/models"
	"card-studio/internal/card/vcard"

	"go.uber.org/zap"
)

// DefaultDebounce: окно, в котором повторные нажатия игнорируются.
const DefaultDebounce = 300 * time.Millisecond

// NoticeActionFailed показывается, если действие не удалось выполнить.
const NoticeActionFailed = "Үйлдлийг гүйцэтгэж чадсангүй"

// ============================================================
// Actions
// ============================================================

type ActionKind string

const (
	ActionNone  ActionKind = "none"
	ActionVCard ActionKind = "vcard"
	ActionURL   ActionKind = "url"
	ActionPhone ActionKind = "phone"
	ActionEmail ActionKind = "email"
)

// Action: что должен сделать клиент после нажатия.
type Action struct {
	Kind     ActionKind `json:"kind"`
	Target   string     `json:"target,omitempty"`
	VCard    string     `json:"vcard,omitempty"`
	FileName string     `json:"fileName,omitempty"`
	MIME     string     `json:"mime,omitempty"`
}

// ResolveAction выбирает действие по приоритету: vcard, url, website, phone, email.
func ResolveAction(m models.Metadata) Action {
	switch {
	case m.VCard != "":
		return Action{Kind: ActionVCard, VCard: m.VCard, FileName: vcard.FileName, MIME: vcard.MIMEType}
	case m.URL != "":
		return Action{Kind: ActionURL, Target: NormalizeURL(m.URL)}
	case m.Website != "":
		return Action{Kind: ActionURL, Target: NormalizeURL(m.Website)}
	case m.Phone != "":
		return Action{Kind: ActionPhone, Target: "tel:" + m.Phone}
	case m.Email != "":
		return Action{Kind: ActionEmail, Target: "mailto:" + m.Email}
	}
	return Action{Kind: ActionNone}
}

// NormalizeURL добавляет https:// ссылкам без схемы.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(strings.ToLower(raw), "http") {
		return raw
	}
	return "https://" + raw
}

// HitTest возвращает верхний примитив с evented под точкой (координаты дизайна).
func HitTest(s *models.Scene, pt models.Point) *models.Primitive {
	for i := len(s.Objects) - 1; i >= 0; i-- {
		p := s.Objects[i]
		if p.Evented && !p.Hidden && p.Contains(pt) {
			return p
		}
	}
	return nil
}

// ============================================================
// Navigator
// ============================================================

// Navigator выполняет действие (открывает ссылку, отдаёт vCard).
type Navigator interface {
	Navigate(ctx context.Context, a Action) error
}

// CheckingNavigator только проверяет, что цель действия разбирается.
type CheckingNavigator struct{}

func (CheckingNavigator) Navigate(ctx context.Context, a Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch a.Kind {
	case ActionVCard:
		if !strings.HasPrefix(a.VCard, "BEGIN:VCARD") {
			return fmt.Errorf("malformed vcard")
		}
	case ActionURL:
		u, err := url.Parse(a.Target)
		if err != nil {
			return fmt.Errorf("parse url: %w", err)
		}
		if u.Host == "" {
			return fmt.Errorf("url %q has no host", a.Target)
		}
	}
	return nil
}

// ============================================================
// Dispatcher
// ============================================================

// Notice: некритичное сообщение для пользователя.
type Notice struct {
	Message string `json:"message"`
}

// Result: итог нажатия.
type Result struct {
	Action    Action  `json:"action"`
	Notice    *Notice `json:"notice,omitempty"`
	Debounced bool    `json:"debounced,omitempty"`
}

// Dispatcher превращает нажатия в действия. После действия следующие нажатия
// игнорируются до истечения debounce, даже если действие ещё выполняется.
type Dispatcher struct {
	mu        sync.Mutex
	now       func() time.Time
	debounce  time.Duration
	busyUntil time.Time

	nav    Navigator
	logger *zap.Logger
}

type DispatcherOption func(*Dispatcher)

// WithClock подменяет часы (для тестов).
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

func WithDebounce(window time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.debounce = window }
}

func NewDispatcher(nav Navigator, logger *zap.Logger, opts ...DispatcherOption) *Dispatcher {
	if nav == nil {
		nav = CheckingNavigator{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		now:      time.Now,
		debounce: DefaultDebounce,
		nav:      nav,
		logger:   logger.With(zap.String("component", "dispatcher")),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// PointerDown обрабатывает нажатие в координатах устройства.
func (d *Dispatcher) PointerDown(ctx context.Context, s *models.Scene, t models.Transform, pt models.Point) Result {
	d.mu.Lock()
	now := d.now()
	if now.Before(d.busyUntil) {
		d.mu.Unlock()
		return Result{Action: Action{Kind: ActionNone}, Debounced: true}
	}

	hit := HitTest(s, t.ToDesign(pt))
	if hit == nil {
		d.mu.Unlock()
		return Result{Action: Action{Kind: ActionNone}}
	}
	action := ResolveAction(hit.Meta())
	if action.Kind == ActionNone {
		d.mu.Unlock()
		return Result{Action: action}
	}
	d.busyUntil = now.Add(d.debounce)
	d.mu.Unlock()

	res := Result{Action: action}
	if err := d.nav.Navigate(ctx, action); err != nil {
		d.logger.Warn("dispatch failed",
			zap.String("kind", string(action.Kind)),
			zap.String("object", hit.ID),
			zap.Error(err),
		)
		res.Notice = &Notice{Message: NoticeActionFailed}
	}
	return res
}
