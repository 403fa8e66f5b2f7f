package handlers

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"card-studio/internal/card/mapper"
	"card-studio/internal/card/models"
	"card-studio/internal/card/service"
	"card-studio/internal/card/vcard"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Designs
// ============================================================

// SaveWebCard собирает и сохраняет карту за один запрос.
func (h *CardHandler) SaveWebCard(c fiber.Ctx) error {
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
	res, err := h.svc.SaveWebCard(ctx, userID, profile)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusCreated).JSON(res)
}

type cardViewRequest struct {
	CardBase string `json:"cardBase"`
}

func (h *CardHandler) SaveCardView(c fiber.Ctx) error {
	userID, err := h.owner(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req cardViewRequest
	if err := decode(c, &req); err != nil {
		return h.fail(c, err)
	}
	if strings.TrimSpace(req.CardBase) == "" {
		return h.fail(c, badRequest("cardBase required"))
	}

	id, err := h.svc.SaveCardView(c.Context(), userID, req.CardBase)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"id": id})
}

func (h *CardHandler) ListDesigns(c fiber.Ctx) error {
	userID, err := h.owner(c)
	if err != nil {
		return h.fail(c, err)
	}
	list, err := h.svc.ListDesigns(c.Context(), userID, service.DesignKind(c.Params("kind")))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(list)
}

func (h *CardHandler) DeleteDesign(c fiber.Ctx) error {
	userID, err := h.owner(c)
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.svc.DeleteDesign(c.Context(), userID, service.DesignKind(c.Params("kind")), c.Params("docId")); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// GetPreview отдаёт PNG-превью дизайна.
func (h *CardHandler) GetPreview(c fiber.Ctx) error {
	userID, err := h.owner(c)
	if err != nil {
		return h.fail(c, err)
	}
	path, err := h.svc.PreviewFile(userID, c.Params("docId"))
	if err != nil {
		return h.fail(c, err)
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "preview not found"})
		}
		return h.fail(c, err)
	}
	c.Set("Content-Type", "image/png")
	return c.SendFile(path)
}

// ============================================================
// Public card
// ============================================================

func (h *CardHandler) GetPublicCard(c fiber.Ctx) error {
	doc, err := h.svc.GetPublic(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(doc)
}

// GetContactCard отдаёт vCard карты как вложение contact.vcf.
func (h *CardHandler) GetContactCard(c fiber.Ctx) error {
	doc, err := h.svc.GetPublic(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return sendVCard(c, contactOf(doc, h.svc.LegacySize()))
}

// contactOf берёт vCard с кнопки сохранения, а если её нет, собирает из полей документа.
func contactOf(doc *models.CardDocument, legacy mapper.LegacyImageSize) string {
	scene, err := mapper.Deserialize(doc.CanvasData, mapper.HelperStyle{BackgroundColor: doc.BackgroundColorHex}, legacy)
	if err == nil {
		if button := scene.ByRole(models.RoleSaveButton); button != nil && button.VCard != "" {
			return button.VCard
		}
	}

	links := make([]models.SocialLink, 0, len(doc.SocialLinks))
	for _, l := range doc.SocialLinks {
		links = append(links, models.SocialLink{Platform: l.Platform, URL: l.URL})
	}
	return vcard.Generate(vcard.FromProfile(models.CardProfile{
		UserInfo:     doc.UserInfo,
		SocialLinks:  links,
		ProfileImage: doc.ProfileImage,
	}))
}

func sendVCard(c fiber.Ctx, card string) error {
	c.Set("Content-Type", vcard.MIMEType)
	c.Attachment(vcard.FileName)
	return c.SendString(card)
}

// ============================================================
// Templates & orders
// ============================================================

func (h *CardHandler) ListTemplates(c fiber.Ctx) error {
	list, err := h.svc.ListTemplates(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(list)
}

func (h *CardHandler) CreateTemplate(c fiber.Ctx) error {
	if _, ok := h.authorize(c); !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	var t models.Template
	if err := decode(c, &t); err != nil {
		return h.fail(c, err)
	}
	if strings.TrimSpace(t.Name) == "" || strings.TrimSpace(t.CanvasData) == "" {
		return h.fail(c, badRequest("name and canvasData required"))
	}

	id, err := h.svc.CreateTemplate(c.Context(), t)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"id": id})
}

func (h *CardHandler) PlaceOrder(c fiber.Ctx) error {
	userID, err := h.owner(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req service.OrderRequest
	if err := decode(c, &req); err != nil {
		return h.fail(c, err)
	}
	if err := req.OrderContact.Validate(); err != nil {
		return h.fail(c, badRequest(err.Error()))
	}
	if req.CardViewID == "" || req.CardWebID == "" {
		return h.fail(c, badRequest("select both card view and web view designs"))
	}

	res, err := h.svc.PlaceOrder(c.Context(), userID, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusCreated).JSON(res)
}
