package handlers

import (
	"github.com/gofiber/fiber/v3"
)

// Register вешает все маршруты сервиса карт.
func Register(app *fiber.App, h *CardHandler, health *Health) {
	// ============================================================
	// Health Check Routes
	// ============================================================

	app.Get("/health/live", health.Live)
	app.Get("/health/ready", health.Ready)

	app.Post("/sessions", h.IssueSession)

	// ============================================================
	// Editor
	// ============================================================

	app.Post("/users/:id/drafts", h.CreateDraft)
	app.Get("/users/:id/drafts/:draftId", h.GetDraft)
	app.Put("/users/:id/drafts/:draftId", h.RebuildDraft)
	app.Delete("/users/:id/drafts/:draftId", h.CloseDraft)
	app.Patch("/users/:id/drafts/:draftId/objects/:objectId", h.EditObject)
	app.Put("/users/:id/drafts/:draftId/photo", h.SetPhoto)
	app.Delete("/users/:id/drafts/:draftId/photo", h.RemovePhoto)
	app.Put("/users/:id/drafts/:draftId/background", h.SetBackground)
	app.Post("/users/:id/drafts/:draftId/save", h.SaveDraft)

	// ============================================================
	// Designs
	// ============================================================

	app.Post("/users/:id/card-web", h.SaveWebCard)
	app.Post("/users/:id/card-view", h.SaveCardView)
	app.Get("/users/:id/designs/:kind", h.ListDesigns)
	app.Delete("/users/:id/designs/:kind/:docId", h.DeleteDesign)
	app.Get("/users/:id/previews/:docId", h.GetPreview)
	app.Post("/users/:id/orders", h.PlaceOrder)

	app.Get("/templates", h.ListTemplates)
	app.Post("/templates", h.CreateTemplate)

	// ============================================================
	// Public view
	// ============================================================

	app.Get("/card-view/:id", h.GetPublicCard)
	app.Get("/card-view/:id/contact.vcf", h.GetContactCard)
	app.Post("/card-view/:id/views", h.OpenView)
	app.Put("/views/:viewId/viewport", h.ResizeView)
	app.Get("/views/:viewId/svg", h.RenderView)
	app.Post("/views/:viewId/tap", h.Tap)
	app.Delete("/views/:viewId", h.CloseView)
}
