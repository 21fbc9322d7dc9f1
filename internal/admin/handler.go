package admin

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"formcraft/internal/engine"
	"formcraft/internal/form"
	"formcraft/internal/store"
)

// Handler exposes the saved forms over HTTP.
type Handler struct {
	store  store.FormStore
	logger *zap.Logger
}

func NewHandler(s store.FormStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: s, logger: logger.Named("forms")}
}

func RegisterFormRoutes(app *fiber.App, h *Handler, middleware ...fiber.Handler) {
	forms := app.Group("/api/forms", middleware...)

	forms.Get("/", h.ListForms)
	forms.Get("/:id", h.GetForm)
	forms.Post("/", h.CreateForm)
	forms.Put("/:id", h.UpdateForm)
	forms.Delete("/:id", h.DeleteForm)
}

func formID(c *fiber.Ctx) (int64, error) {
	raw := c.Params("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, engine.InvalidPayloadError(fmt.Sprintf("Invalid form id: %s", raw))
	}
	return id, nil
}

func storeError(err error, id int64) error {
	if errors.Is(err, store.ErrNotFound) {
		return engine.NotFoundError("Form", strconv.FormatInt(id, 10))
	}
	return err
}

func (h *Handler) ListForms(c *fiber.Ctx) error {
	forms, err := h.store.List(c.UserContext())
	if err != nil {
		return fmt.Errorf("list forms: %w", err)
	}
	return c.JSON(fiber.Map{"data": forms})
}

func (h *Handler) GetForm(c *fiber.Ctx) error {
	id, err := formID(c)
	if err != nil {
		return err
	}
	f, err := h.store.Get(c.UserContext(), id)
	if err != nil {
		return storeError(err, id)
	}
	return c.JSON(fiber.Map{"data": f})
}

func (h *Handler) CreateForm(c *fiber.Ctx) error {
	var f form.Form
	if err := c.BodyParser(&f); err != nil {
		return engine.InvalidPayloadError("")
	}
	if f.Title == "" {
		f.Title = form.DefaultTitle
	}
	if details := validateFields(f.Fields); len(details) > 0 {
		return engine.ValidationError(details)
	}
	f.Normalize()

	created, err := h.store.Create(c.UserContext(), &f)
	if err != nil {
		return fmt.Errorf("create form: %w", err)
	}
	h.logger.Info("Form created", zap.Int64("id", created.ID), zap.String("title", created.Title))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": created})
}

func (h *Handler) UpdateForm(c *fiber.Ctx) error {
	id, err := formID(c)
	if err != nil {
		return err
	}
	var patch store.FormPatch
	if err := c.BodyParser(&patch); err != nil {
		return engine.InvalidPayloadError("")
	}
	if patch.Fields != nil {
		if details := validateFields(patch.Fields); len(details) > 0 {
			return engine.ValidationError(details)
		}
		tmp := form.Form{Fields: patch.Fields}
		tmp.Normalize()
		patch.Fields = tmp.Fields
	}

	updated, err := h.store.Update(c.UserContext(), id, patch)
	if err != nil {
		return storeError(err, id)
	}
	return c.JSON(fiber.Map{"data": updated})
}

func (h *Handler) DeleteForm(c *fiber.Ctx) error {
	id, err := formID(c)
	if err != nil {
		return err
	}
	removed, err := h.store.Delete(c.UserContext(), id)
	if err != nil {
		return storeError(err, id)
	}
	h.logger.Info("Form deleted", zap.Int64("id", id))
	return c.JSON(fiber.Map{"data": removed})
}

// validateFields checks what a stored form must satisfy even as a draft:
// known types and unique, non-empty ids.
func validateFields(fields []form.Field) []engine.ErrorDetail {
	var details []engine.ErrorDetail
	seen := make(map[string]bool, len(fields))
	for i, fld := range fields {
		if fld.ID == "" {
			details = append(details, engine.ErrorDetail{
				Field:   fmt.Sprintf("fields[%d].id", i),
				Rule:    "required",
				Message: "field id is required",
			})
		} else if seen[fld.ID] {
			details = append(details, engine.ErrorDetail{
				Field:   fld.ID,
				Rule:    "unique_id",
				Message: fmt.Sprintf("duplicate field id %s", fld.ID),
			})
		}
		seen[fld.ID] = true
		if !fld.Type.Valid() {
			details = append(details, engine.ErrorDetail{
				Field:   fmt.Sprintf("fields[%d].type", i),
				Rule:    "type",
				Message: fmt.Sprintf("unknown field type %q", fld.Type),
			})
		}
	}
	return details
}
