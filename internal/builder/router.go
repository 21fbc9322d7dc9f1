package builder

import "github.com/gofiber/fiber/v2"

func RegisterBuilderRoutes(app *fiber.App, h *Handler, middleware ...fiber.Handler) {
	app.Get("/api/palette", h.Palette)

	sessions := app.Group("/api/sessions", middleware...)
	sessions.Post("/", h.CreateSession)
	sessions.Get("/:sid", h.GetSession)
	sessions.Delete("/:sid", h.CloseSession)
	sessions.Put("/:sid/title", h.SetTitle)
	sessions.Put("/:sid/rules", h.SetRules)

	sessions.Post("/:sid/fields", h.DropField)
	sessions.Patch("/:sid/fields/:fid", h.UpdateField)
	sessions.Post("/:sid/fields/:fid/move", h.MoveField)
	sessions.Delete("/:sid/fields/:fid", h.DeleteField)

	sessions.Post("/:sid/fields/:fid/options", h.AddOption)
	sessions.Put("/:sid/fields/:fid/options/:index", h.UpdateOption)
	sessions.Delete("/:sid/fields/:fid/options/:index", h.RemoveOption)

	sessions.Get("/:sid/fields/:fid/eligible", h.EligibleFields)
	sessions.Put("/:sid/fields/:fid/logic", h.SaveLogic)

	sessions.Get("/:sid/preview", h.Preview)
	sessions.Put("/:sid/preview/values/:fid", h.SetPreviewValue)
	sessions.Post("/:sid/preview/submit", h.SubmitPreview)

	sessions.Post("/:sid/publish", h.Publish)
}
