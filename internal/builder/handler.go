package builder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"formcraft/internal/auth"
	"formcraft/internal/engine"
	"formcraft/internal/form"
	"formcraft/internal/notify"
	"formcraft/internal/store"
)

// Handler exposes builder sessions over HTTP.
type Handler struct {
	sessions *Manager
	forms    store.FormStore
	notifier notify.Notifier
	logger   *zap.Logger
}

func NewHandler(sessions *Manager, forms store.FormStore, notifier notify.Notifier, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.Multi{}
	}
	return &Handler{sessions: sessions, forms: forms, notifier: notifier, logger: logger.Named("builder")}
}

// SessionView is the JSON shape of a session.
type SessionView struct {
	ID       string                   `json:"id"`
	Form     *form.Form               `json:"form"`
	Dangling []form.DanglingCondition `json:"dangling,omitempty"`
}

func viewOf(s *Session) SessionView {
	f := s.Snapshot()
	return SessionView{ID: s.ID, Form: f, Dangling: f.DanglingConditions()}
}

func (h *Handler) session(c *fiber.Ctx) (*Session, error) {
	sid := c.Params("sid")
	s, ok := h.sessions.Get(sid)
	if !ok {
		return nil, engine.NotFoundError("Session", sid)
	}
	return s, nil
}

// field resolves the session and checks that the :fid field exists.
func (h *Handler) field(c *fiber.Ctx) (*Session, string, error) {
	s, err := h.session(c)
	if err != nil {
		return nil, "", err
	}
	fid := c.Params("fid")
	if _, ok := s.Field(fid); !ok {
		return nil, "", engine.NotFoundError("Field", fid)
	}
	return s, fid, nil
}

// editor names the caller for audit logs; "anonymous" when auth is off.
func editor(c *fiber.Ctx) string {
	if u := auth.GetUser(c); u != nil {
		return u.Subject
	}
	return "anonymous"
}

func refused(rule, msg string) error {
	return engine.ValidationError([]engine.ErrorDetail{{Rule: rule, Message: msg}})
}

func (h *Handler) Palette(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": Palette()})
}

// --- Sessions ---

func (h *Handler) CreateSession(c *fiber.Ctx) error {
	var body struct {
		FormID int64 `json:"formId"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return engine.InvalidPayloadError("")
		}
	}

	var f *form.Form
	if body.FormID != 0 {
		var err error
		f, err = h.forms.Get(c.UserContext(), body.FormID)
		if errors.Is(err, store.ErrNotFound) {
			return engine.NotFoundError("Form", strconv.FormatInt(body.FormID, 10))
		}
		if err != nil {
			return fmt.Errorf("load form %d: %w", body.FormID, err)
		}
	}
	s := h.sessions.Create(f)
	h.logger.Info("Builder session opened",
		zap.String("session", s.ID),
		zap.Int64("form_id", body.FormID),
		zap.String("editor", editor(c)),
	)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": viewOf(s)})
}

func (h *Handler) GetSession(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": viewOf(s)})
}

func (h *Handler) CloseSession(c *fiber.Ctx) error {
	sid := c.Params("sid")
	if !h.sessions.Close(sid) {
		return engine.NotFoundError("Session", sid)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) SetTitle(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var body struct {
		Title string `json:"title"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.InvalidPayloadError("")
	}
	s.SetTitle(body.Title)
	return c.JSON(fiber.Map{"data": viewOf(s)})
}

func (h *Handler) SetRules(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var body struct {
		Rules []form.Rule `json:"rules"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.InvalidPayloadError("")
	}
	var details []engine.ErrorDetail
	for i, r := range body.Rules {
		if err := s.eval.Check(r.Expression); err != nil {
			details = append(details, engine.ErrorDetail{
				Field:   fmt.Sprintf("rules[%d]", i),
				Rule:    "expression",
				Message: err.Error(),
			})
		}
	}
	if len(details) > 0 {
		return engine.ValidationError(details)
	}
	s.SetRules(body.Rules)
	return c.JSON(fiber.Map{"data": viewOf(s)})
}

// --- Fields ---

// DropField handles a palette drop. The payload is the raw drag data: either
// a JSON object or a JSON string holding one. An unusable payload is logged
// and discarded without failing the request.
func (h *Handler) DropField(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var body struct {
		Position int             `json:"position"`
		Payload  json.RawMessage `json:"payload"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.InvalidPayloadError("")
	}

	raw := bytes.TrimSpace(body.Payload)
	if len(raw) > 0 && raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err == nil {
			raw = []byte(inner)
		}
	}

	fld, ok := s.Drop(body.Position, raw)
	if !ok {
		return c.JSON(fiber.Map{"data": fiber.Map{"dropped": false, "session": viewOf(s)}})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"dropped": true, "field": fld, "session": viewOf(s)}})
}

func (h *Handler) UpdateField(c *fiber.Ctx) error {
	s, fid, err := h.field(c)
	if err != nil {
		return err
	}
	var u FieldUpdate
	if err := c.BodyParser(&u); err != nil {
		return engine.InvalidPayloadError("")
	}
	if details := validateLogicShape(u.Logic); len(details) > 0 {
		return engine.ValidationError(details)
	}
	if !s.Update(fid, u) {
		return engine.NotFoundError("Field", fid)
	}
	fld, _ := s.Field(fid)
	return c.JSON(fiber.Map{"data": fld})
}

func validateLogicShape(l *form.Logic) []engine.ErrorDetail {
	if l == nil {
		return nil
	}
	var details []engine.ErrorDetail
	if !l.Operator.Valid() {
		details = append(details, engine.ErrorDetail{Field: "logic.operator", Rule: "operator", Message: fmt.Sprintf("unknown logic operator %q", l.Operator)})
	}
	for i, cond := range l.Conditions {
		if !cond.Operator.Valid() {
			details = append(details, engine.ErrorDetail{
				Field:   fmt.Sprintf("logic.conditions[%d].operator", i),
				Rule:    "operator",
				Message: fmt.Sprintf("unknown condition operator %q", cond.Operator),
			})
		}
	}
	return details
}

func (h *Handler) MoveField(c *fiber.Ctx) error {
	s, fid, err := h.field(c)
	if err != nil {
		return err
	}
	var body struct {
		Position int `json:"position"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.InvalidPayloadError("")
	}
	moved := s.Reorder(fid, body.Position)
	return c.JSON(fiber.Map{"data": fiber.Map{"moved": moved, "session": viewOf(s)}})
}

func (h *Handler) DeleteField(c *fiber.Ctx) error {
	s, fid, err := h.field(c)
	if err != nil {
		return err
	}
	if !s.Delete(fid) {
		return engine.NotFoundError("Field", fid)
	}
	return c.JSON(fiber.Map{"data": viewOf(s)})
}

// --- Options ---

func optionIndex(c *fiber.Ctx) (int, error) {
	i, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return 0, engine.InvalidPayloadError("Invalid option index: " + c.Params("index"))
	}
	return i, nil
}

func (h *Handler) AddOption(c *fiber.Ctx) error {
	s, fid, err := h.field(c)
	if err != nil {
		return err
	}
	if !s.PropertyEditor(fid).AddOption() {
		return engine.NotFoundError("Field", fid)
	}
	fld, _ := s.Field(fid)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fld})
}

func (h *Handler) UpdateOption(c *fiber.Ctx) error {
	s, fid, err := h.field(c)
	if err != nil {
		return err
	}
	index, err := optionIndex(c)
	if err != nil {
		return err
	}
	var body struct {
		Label string `json:"label"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.InvalidPayloadError("")
	}
	if !s.PropertyEditor(fid).UpdateOptionLabel(index, body.Label) {
		return refused("option_index", fmt.Sprintf("field %s has no option %d", fid, index))
	}
	fld, _ := s.Field(fid)
	return c.JSON(fiber.Map{"data": fld})
}

func (h *Handler) RemoveOption(c *fiber.Ctx) error {
	s, fid, err := h.field(c)
	if err != nil {
		return err
	}
	index, err := optionIndex(c)
	if err != nil {
		return err
	}
	if !s.PropertyEditor(fid).RemoveOption(index) {
		return refused("options", fmt.Sprintf("option %d of field %s cannot be removed", index, fid))
	}
	fld, _ := s.Field(fid)
	return c.JSON(fiber.Map{"data": fld})
}

// --- Conditions ---

func (h *Handler) EligibleFields(c *fiber.Ctx) error {
	s, fid, err := h.field(c)
	if err != nil {
		return err
	}
	e, ok := s.ConditionEditor(fid)
	if !ok {
		return engine.NotFoundError("Field", fid)
	}
	eligible := e.Eligible()
	if eligible == nil {
		eligible = []form.Field{}
	}
	return c.JSON(fiber.Map{"data": eligible})
}

// SaveLogic replaces the field's visibility rule. Every condition is applied
// through the condition editor, so targets must be earlier fields of a type
// that can drive conditions. An empty list clears the rule.
func (h *Handler) SaveLogic(c *fiber.Ctx) error {
	s, fid, err := h.field(c)
	if err != nil {
		return err
	}
	var body struct {
		Operator   form.LogicOperator `json:"operator"`
		Conditions []form.Condition   `json:"conditions"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.InvalidPayloadError("")
	}
	if body.Operator == "" {
		body.Operator = form.LogicAnd
	}

	e, ok := s.ConditionEditor(fid)
	if !ok {
		return engine.NotFoundError("Field", fid)
	}
	e.Clear()
	if !e.SetOperator(body.Operator) {
		return refused("operator", fmt.Sprintf("unknown logic operator %q", body.Operator))
	}
	for i, cond := range body.Conditions {
		if !cond.Operator.Valid() {
			return engine.ValidationError([]engine.ErrorDetail{{
				Field:   fmt.Sprintf("conditions[%d].operator", i),
				Rule:    "operator",
				Message: fmt.Sprintf("unknown condition operator %q", cond.Operator),
			}})
		}
		if !e.AddCondition() {
			return refused("condition", "no earlier field can drive a condition")
		}
		if !e.UpdateCondition(i, ConditionUpdate{FieldID: &cond.FieldID, Operator: &cond.Operator, Value: &cond.Value}) {
			return engine.ValidationError([]engine.ErrorDetail{{
				Field:   fmt.Sprintf("conditions[%d]", i),
				Rule:    "condition",
				Message: fmt.Sprintf("field %s cannot be used by this condition", cond.FieldID),
			}})
		}
	}
	if !e.Save() {
		return engine.NotFoundError("Field", fid)
	}
	fld, _ := s.Field(fid)
	return c.JSON(fiber.Map{"data": fld})
}

// --- Preview ---

func (h *Handler) Preview(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": s.Preview()})
}

func (h *Handler) SetPreviewValue(c *fiber.Ctx) error {
	s, fid, err := h.field(c)
	if err != nil {
		return err
	}
	var body struct {
		Value any `json:"value"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.InvalidPayloadError("")
	}
	if !s.SetPreviewValue(fid, body.Value) {
		return engine.NotFoundError("Field", fid)
	}
	return c.JSON(fiber.Map{"data": s.Preview()})
}

func (h *Handler) SubmitPreview(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var body struct {
		Values engine.Values `json:"values"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return engine.InvalidPayloadError("")
		}
	}
	return c.JSON(fiber.Map{"data": s.SubmitPreview(body.Values)})
}

// --- Publish ---

func (h *Handler) Publish(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	res, err := s.Publish(c.UserContext(), h.forms)
	if err != nil {
		return err
	}
	h.logger.Info("Session published", zap.String("session", s.ID), zap.Int64("form_id", res.Form.ID), zap.String("editor", editor(c)))
	h.notifier.Notify(c.UserContext(), notify.Published(res.Form))

	status := fiber.StatusOK
	if res.Created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"data": res})
}
