package handlers

import (
	"bytes"
	"net/http"

	"card-studio/internal/card/models"
	"card-studio/internal/card/viewer"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Public view sessions
// ============================================================

type viewPayload struct {
	ViewID    string           `json:"viewId"`
	Viewport  models.Viewport  `json:"viewport"`
	Transform models.Transform `json:"transform"`
}

func decodeViewport(c fiber.Ctx) (models.Viewport, error) {
	var vp models.Viewport
	if err := decode(c, &vp); err != nil {
		return vp, err
	}
	if vp.Width <= 0 || vp.Height <= 0 {
		return vp, badRequest("viewport width and height must be positive")
	}
	return vp, nil
}

// OpenView восстанавливает карту под экран устройства и ждёт загрузки картинок.
func (h *CardHandler) OpenView(c fiber.Ctx) error {
	vp, err := decodeViewport(c)
	if err != nil {
		return h.fail(c, err)
	}
	doc, err := h.svc.GetPublic(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}

	opts := []viewer.DispatcherOption{}
	if h.debounce > 0 {
		opts = append(opts, viewer.WithDebounce(h.debounce))
	}

	ctx, cancel := h.assetContext(c)
	defer cancel()
	view, err := viewer.NewView(ctx, doc, vp, viewer.Options{
		Damping:    h.damping,
		Images:     h.images,
		Dispatcher: viewer.NewDispatcher(viewer.CheckingNavigator{}, h.logger, opts...),
		LegacySize: h.svc.LegacySize(),
		Logger:     h.logger,
	})
	if err != nil {
		return h.fail(c, err)
	}

	id := h.views.Put(view)
	return c.Status(http.StatusCreated).JSON(viewPayload{
		ViewID:    id,
		Viewport:  vp,
		Transform: view.Transform(),
	})
}

func (h *CardHandler) ResizeView(c fiber.Ctx) error {
	view, err := h.views.Get(c.Params("viewId"))
	if err != nil {
		return h.fail(c, err)
	}
	vp, err := decodeViewport(c)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(viewPayload{
		ViewID:    c.Params("viewId"),
		Viewport:  vp,
		Transform: view.Resize(vp),
	})
}

func (h *CardHandler) RenderView(c fiber.Ctx) error {
	view, err := h.views.Get(c.Params("viewId"))
	if err != nil {
		return h.fail(c, err)
	}
	var buf bytes.Buffer
	if err := view.RenderSVG(&buf, h.svg); err != nil {
		return h.fail(c, err)
	}
	c.Set("Content-Type", "image/svg+xml")
	return c.Send(buf.Bytes())
}

// Tap обрабатывает нажатие. Для кнопки сохранения отдаётся contact.vcf.
func (h *CardHandler) Tap(c fiber.Ctx) error {
	view, err := h.views.Get(c.Params("viewId"))
	if err != nil {
		return h.fail(c, err)
	}
	var pt models.Point
	if err := decode(c, &pt); err != nil {
		return h.fail(c, err)
	}

	res, err := view.Tap(c.Context(), pt)
	if err != nil {
		return h.fail(c, err)
	}
	if res.Action.Kind == viewer.ActionVCard && res.Notice == nil {
		return sendVCard(c, res.Action.VCard)
	}
	return c.JSON(res)
}

func (h *CardHandler) CloseView(c fiber.Ctx) error {
	if err := h.views.Close(c.Params("viewId")); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}
