package handlers

import (
	"net/http"

	"card-studio/internal/card/builder"
	"card-studio/internal/card/layout"
	"card-studio/internal/card/mapper"
	"card-studio/internal/card/models"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Editor drafts
// ============================================================

type draftPayload struct {
	DraftID  string                 `json:"draftId"`
	Document mapper.Document        `json:"document"`
	Profile  models.CardProfile     `json:"profile"`
	Cursor   *layout.PositionCursor `json:"cursor,omitempty"`
}

func draftView(id string, e *builder.Editor, cur *layout.PositionCursor) draftPayload {
	scene, profile := e.Snapshot()
	return draftPayload{
		DraftID:  id,
		Document: mapper.Export(scene),
		Profile:  profile,
		Cursor:   cur,
	}
}

// editor достаёт черновик владельца из пути.
func (h *CardHandler) editor(c fiber.Ctx) (string, *builder.Editor, error) {
	userID, err := h.owner(c)
	if err != nil {
		return "", nil, err
	}
	e, err := h.drafts.Get(userID, c.Params("draftId"))
	if err != nil {
		return "", nil, err
	}
	return userID, e, nil
}

func decodeProfile(c fiber.Ctx) (models.CardProfile, error) {
	var p models.CardProfile
	if err := decode(c, &p); err != nil {
		return p, err
	}
	if err := p.Validate(); err != nil {
		return p, badRequest(err.Error())
	}
	return p, nil
}

// CreateDraft собирает сцену по профилю и открывает черновик.
func (h *CardHandler) CreateDraft(c fiber.Ctx) error {
	userID, err := h.owner(c)
	if err != nil {
		return h.fail(c, err)
	}
	profile, err := decodeProfile(c)
	if err != nil {
		return h.fail(c, err)
	}

	ctx, cancel := h.assetContext(c)
	defer cancel()

	e := builder.NewEditor(h.builder)
	if err := e.Rebuild(ctx, profile); err != nil {
		return h.fail(c, err)
	}
	id := h.drafts.Open(userID, e)
	return c.Status(http.StatusCreated).JSON(draftView(id, e, nil))
}

func (h *CardHandler) GetDraft(c fiber.Ctx) error {
	_, e, err := h.editor(c)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(draftView(c.Params("draftId"), e, nil))
}

// RebuildDraft пересобирает черновик по новому профилю.
func (h *CardHandler) RebuildDraft(c fiber.Ctx) error {
	_, e, err := h.editor(c)
	if err != nil {
		return h.fail(c, err)
	}
	profile, err := decodeProfile(c)
	if err != nil {
		return h.fail(c, err)
	}

	ctx, cancel := h.assetContext(c)
	defer cancel()
	if err := e.Rebuild(ctx, profile); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(draftView(c.Params("draftId"), e, nil))
}

func (h *CardHandler) CloseDraft(c fiber.Ctx) error {
	userID, err := h.owner(c)
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.drafts.Close(userID, c.Params("draftId")); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

type editTextRequest struct {
	Text *string `json:"text"`
}

// EditObject меняет текст объекта и перекладывает карту ниже него.
func (h *CardHandler) EditObject(c fiber.Ctx) error {
	_, e, err := h.editor(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req editTextRequest
	if err := decode(c, &req); err != nil {
		return h.fail(c, err)
	}
	if req.Text == nil {
		return h.fail(c, badRequest("text required"))
	}

	cur, err := e.EditText(c.Params("objectId"), *req.Text)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(draftView(c.Params("draftId"), e, &cur))
}

type photoRequest struct {
	DataURI string `json:"dataUri"`
}

func (h *CardHandler) SetPhoto(c fiber.Ctx) error {
	_, e, err := h.editor(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req photoRequest
	if err := decode(c, &req); err != nil {
		return h.fail(c, err)
	}
	if _, err := models.ParseDataURI(req.DataURI); err != nil {
		return h.fail(c, badRequest("dataUri must be a base64 image data uri"))
	}

	ctx, cancel := h.assetContext(c)
	defer cancel()
	if err := e.SetPhoto(ctx, req.DataURI); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(draftView(c.Params("draftId"), e, nil))
}

func (h *CardHandler) RemovePhoto(c fiber.Ctx) error {
	_, e, err := h.editor(c)
	if err != nil {
		return h.fail(c, err)
	}
	if !e.RemovePhoto() {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "no photo"})
	}
	return c.JSON(draftView(c.Params("draftId"), e, nil))
}

type backgroundRequest struct {
	Color string `json:"color"`
}

func (h *CardHandler) SetBackground(c fiber.Ctx) error {
	_, e, err := h.editor(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req backgroundRequest
	if err := decode(c, &req); err != nil {
		return h.fail(c, err)
	}
	if err := e.SetBackground(req.Color); err != nil {
		return h.fail(c, badRequest(err.Error()))
	}
	return c.JSON(draftView(c.Params("draftId"), e, nil))
}

// SaveDraft сохраняет черновик как новую карту.
func (h *CardHandler) SaveDraft(c fiber.Ctx) error {
	userID, e, err := h.editor(c)
	if err != nil {
		return h.fail(c, err)
	}
	res, err := h.svc.SaveScene(c.Context(), userID, e)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusCreated).JSON(res)
}
