package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"card-studio/internal/card/assets"
	"card-studio/internal/card/builder"
	"card-studio/internal/card/mapper"
	"card-studio/internal/card/service"
	"card-studio/internal/card/viewer"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// ============================================================
// Card Handler
// ============================================================

type CardHandler struct {
	svc      *service.CardService
	sessions *service.SessionManager
	drafts   *service.Drafts
	views    *service.Views
	builder  *builder.Builder
	svg      *mapper.SVGRenderer
	images   assets.Source

	damping      float64
	debounce     time.Duration
	assetTimeout time.Duration
	devSessions  bool
	logger       *zap.Logger
}

type Options struct {
	Service      *service.CardService
	Sessions     *service.SessionManager
	Drafts       *service.Drafts
	Views        *service.Views
	Builder      *builder.Builder
	SVG          *mapper.SVGRenderer
	Images       assets.Source
	Damping      float64
	Debounce     time.Duration
	AssetTimeout time.Duration
	// DevSessions открывает POST /sessions для выдачи токенов без логина.
	DevSessions bool
	Logger      *zap.Logger
}

func NewCardHandler(o Options) *CardHandler {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.AssetTimeout <= 0 {
		o.AssetTimeout = 5 * time.Second
	}
	if o.Damping <= 0 {
		o.Damping = viewer.DefaultDamping
	}
	return &CardHandler{
		svc:          o.Service,
		sessions:     o.Sessions,
		drafts:       o.Drafts,
		views:        o.Views,
		builder:      o.Builder,
		svg:          o.SVG,
		images:       o.Images,
		damping:      o.Damping,
		debounce:     o.Debounce,
		assetTimeout: o.AssetTimeout,
		devSessions:  o.DevSessions,
		logger:       o.Logger.With(zap.String("component", "handlers")),
	}
}

// ============================================================
// Errors
// ============================================================

type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func badRequest(msg string) error { return &httpError{status: http.StatusBadRequest, msg: msg} }

// fail переводит ошибку в JSON-ответ {"error": "..."}.
func (h *CardHandler) fail(c fiber.Ctx, err error) error {
	var he *httpError
	status, msg := http.StatusInternalServerError, "internal error"

	switch {
	case errors.As(err, &he):
		status, msg = he.status, he.msg
	case errors.Is(err, service.ErrNotFound):
		status, msg = http.StatusNotFound, "card not found"
	case errors.Is(err, service.ErrDraftNotFound),
		errors.Is(err, service.ErrViewNotFound),
		errors.Is(err, builder.ErrUnknownObject):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, mapper.ErrMalformedScene),
		errors.Is(err, builder.ErrNotText),
		errors.Is(err, service.ErrUnknownKind),
		errors.Is(err, service.ErrInvalidPath),
		errors.Is(err, assets.ErrUnsupportedFormat),
		errors.Is(err, assets.ErrUnsupportedRef):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, builder.ErrSuperseded),
		errors.Is(err, viewer.ErrNotReady):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		status, msg = http.StatusBadGateway, "asset loading timed out"
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// ============================================================
// Helpers
// ============================================================

func decode(c fiber.Ctx, dst any) error {
	if len(c.Body()) == 0 {
		return badRequest("empty body")
	}
	if err := json.Unmarshal(c.Body(), dst); err != nil {
		return badRequest("invalid json")
	}
	return nil
}

// authorize достаёт пользователя по bearer-токену.
func (h *CardHandler) authorize(c fiber.Ctx) (string, bool) {
	header := c.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return h.sessions.Resolve(strings.TrimSpace(token))
}

// owner требует, чтобы :id совпадал с пользователем токена.
func (h *CardHandler) owner(c fiber.Ctx) (string, error) {
	userID, ok := h.authorize(c)
	if !ok {
		return "", &httpError{status: http.StatusUnauthorized, msg: "unauthorized"}
	}
	targetID := c.Params("id")
	if targetID == "" || targetID != userID {
		return "", &httpError{status: http.StatusForbidden, msg: "forbidden"}
	}
	return userID, nil
}

// assetContext ограничивает загрузку картинок и иконок.
func (h *CardHandler) assetContext(c fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context(), h.assetTimeout)
}

// ============================================================
// Sessions
// ============================================================

type sessionRequest struct {
	UserID string `json:"userId"`
}

// IssueSession выдаёт токен для userId. Заменяет внешний логин в разработке.
func (h *CardHandler) IssueSession(c fiber.Ctx) error {
	if !h.devSessions {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	}
	var req sessionRequest
	if err := decode(c, &req); err != nil {
		return h.fail(c, err)
	}
	if strings.TrimSpace(req.UserID) == "" {
		return h.fail(c, badRequest("userId required"))
	}
	if err := checkUserID(req.UserID); err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"token": h.sessions.Issue(req.UserID)})
}

func checkUserID(id string) error {
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return badRequest("invalid userId")
	}
	return nil
}
