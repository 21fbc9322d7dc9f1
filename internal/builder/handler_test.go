package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formcraft/internal/engine"
	"formcraft/internal/form"
	"formcraft/internal/notify"
	"formcraft/internal/store"
)

type noticeRecorder struct {
	mu      sync.Mutex
	notices []notify.Notice
}

func (r *noticeRecorder) Notify(_ context.Context, n notify.Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

type testServer struct {
	app      *fiber.App
	forms    *store.MemoryStore
	notices  *noticeRecorder
	sessions *Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		forms:    store.NewMemoryStore("https://formcraft.app/forms", 0),
		notices:  &noticeRecorder{},
		sessions: NewManager(time.Hour, nil, nil),
	}
	ts.app = fiber.New(fiber.Config{ErrorHandler: engine.ErrorHandler(nil)})
	RegisterBuilderRoutes(ts.app, NewHandler(ts.sessions, ts.forms, ts.notices, nil))
	return ts
}

// call performs a request and decodes the "data" member into out when out
// is non-nil. It returns the status and, for error responses, the error code.
func (ts *testServer) call(t *testing.T, method, path string, body any, out any) (int, string) {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = strings.NewReader(string(data))
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	if resp.StatusCode >= 400 {
		var env engine.ErrorResponse
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
		return resp.StatusCode, env.Error.Code
	}
	if out != nil && len(raw) > 0 {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
		require.NoError(t, json.Unmarshal(env.Data, out), string(raw))
	}
	return resp.StatusCode, ""
}

func (ts *testServer) newSession(t *testing.T) string {
	t.Helper()
	var view SessionView
	status, _ := ts.call(t, "POST", "/api/sessions", nil, &view)
	require.Equal(t, 201, status)
	require.NotEmpty(t, view.ID)
	return view.ID
}

type dropResult struct {
	Dropped bool        `json:"dropped"`
	Field   form.Field  `json:"field"`
	Session SessionView `json:"session"`
}

func (ts *testServer) drop(t *testing.T, sid string, position int, fieldType form.FieldType) form.Field {
	t.Helper()
	var res dropResult
	status, _ := ts.call(t, "POST", "/api/sessions/"+sid+"/fields",
		map[string]any{"position": position, "payload": map[string]any{"type": fieldType}}, &res)
	require.Equal(t, 201, status)
	require.True(t, res.Dropped)
	return res.Field
}

func TestHTTP_Palette(t *testing.T) {
	ts := newTestServer(t)
	var entries []PaletteEntry
	status, _ := ts.call(t, "GET", "/api/palette", nil, &entries)
	require.Equal(t, 200, status)
	assert.Len(t, entries, 8)
}

func TestHTTP_BuildPreviewPublish(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.newSession(t)

	status, _ := ts.call(t, "PUT", "/api/sessions/"+sid+"/title", map[string]string{"title": "Feedback"}, nil)
	require.Equal(t, 200, status)

	f1 := ts.drop(t, sid, 0, form.TypeText)
	f2 := ts.drop(t, sid, 1, form.TypeText)

	label := "Why?"
	var updated form.Field
	status, _ = ts.call(t, "PATCH", "/api/sessions/"+sid+"/fields/"+f2.ID, FieldUpdate{Label: &label}, &updated)
	require.Equal(t, 200, status)
	assert.Equal(t, "Why?", updated.Label)

	var eligible []form.Field
	status, _ = ts.call(t, "GET", "/api/sessions/"+sid+"/fields/"+f2.ID+"/eligible", nil, &eligible)
	require.Equal(t, 200, status)
	require.Len(t, eligible, 1)
	assert.Equal(t, f1.ID, eligible[0].ID)

	logic := map[string]any{
		"operator":   "AND",
		"conditions": []form.Condition{{FieldID: f1.ID, Operator: form.OpEquals, Value: "yes"}},
	}
	status, _ = ts.call(t, "PUT", "/api/sessions/"+sid+"/fields/"+f2.ID+"/logic", logic, &updated)
	require.Equal(t, 200, status)
	require.NotNil(t, updated.Logic)

	var preview PreviewResult
	status, _ = ts.call(t, "GET", "/api/sessions/"+sid+"/preview", nil, &preview)
	require.Equal(t, 200, status)
	assert.Len(t, preview.Fields, 1)

	status, _ = ts.call(t, "PUT", "/api/sessions/"+sid+"/preview/values/"+f1.ID, map[string]any{"value": "yes"}, &preview)
	require.Equal(t, 200, status)
	assert.Len(t, preview.Fields, 2)

	var submit SubmitResult
	status, _ = ts.call(t, "POST", "/api/sessions/"+sid+"/preview/submit", nil, &submit)
	require.Equal(t, 200, status)
	assert.True(t, submit.Accepted)

	var pub PublishResult
	status, _ = ts.call(t, "POST", "/api/sessions/"+sid+"/publish", nil, &pub)
	require.Equal(t, 201, status)
	assert.True(t, pub.Created)
	assert.Equal(t, "https://formcraft.app/forms/1", pub.URL)
	assert.Empty(t, pub.Warnings)

	stored, err := ts.forms.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Feedback", stored.Title)
	require.Len(t, stored.Fields, 2)
	assert.Equal(t, "Why?", stored.Fields[1].Label)

	// publishing again updates the same form
	status, _ = ts.call(t, "PUT", "/api/sessions/"+sid+"/title", map[string]string{"title": "Feedback v2"}, nil)
	require.Equal(t, 200, status)
	status, _ = ts.call(t, "POST", "/api/sessions/"+sid+"/publish", nil, &pub)
	require.Equal(t, 200, status)
	assert.False(t, pub.Created)
	stored, _ = ts.forms.Get(context.Background(), 1)
	assert.Equal(t, "Feedback v2", stored.Title)

	ts.notices.mu.Lock()
	defer ts.notices.mu.Unlock()
	require.Len(t, ts.notices.notices, 2)
	assert.Equal(t, notify.EventFormPublished, ts.notices.notices[0].Event)
	assert.Equal(t, int64(1), ts.notices.notices[1].FormID)
}

func TestHTTP_PublishPreconditions(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.newSession(t)

	status, code := ts.call(t, "POST", "/api/sessions/"+sid+"/publish", nil, nil)
	assert.Equal(t, 422, status)
	assert.Equal(t, "VALIDATION_FAILED", code)

	ts.drop(t, sid, 0, form.TypeEmail)
	status, _ = ts.call(t, "PUT", "/api/sessions/"+sid+"/title", map[string]string{"title": "  "}, nil)
	require.Equal(t, 200, status)
	status, _ = ts.call(t, "POST", "/api/sessions/"+sid+"/publish", nil, nil)
	assert.Equal(t, 422, status)

	forms, _ := ts.forms.List(context.Background())
	assert.Empty(t, forms)
	assert.Empty(t, ts.notices.notices)
}

func TestHTTP_PublishWarnsAboutDanglingConditions(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.newSession(t)
	f1 := ts.drop(t, sid, 0, form.TypeText)
	f2 := ts.drop(t, sid, 1, form.TypeText)
	logic := map[string]any{"conditions": []form.Condition{{FieldID: f1.ID, Operator: form.OpNotEmpty}}}
	status, _ := ts.call(t, "PUT", "/api/sessions/"+sid+"/fields/"+f2.ID+"/logic", logic, nil)
	require.Equal(t, 200, status)

	var moved struct {
		Moved   bool        `json:"moved"`
		Session SessionView `json:"session"`
	}
	status, _ = ts.call(t, "POST", "/api/sessions/"+sid+"/fields/"+f2.ID+"/move", map[string]int{"position": 0}, &moved)
	require.Equal(t, 200, status)
	assert.True(t, moved.Moved)
	require.Len(t, moved.Session.Dangling, 1)
	assert.Equal(t, f2.ID, moved.Session.Dangling[0].FieldID)

	var pub PublishResult
	status, _ = ts.call(t, "POST", "/api/sessions/"+sid+"/publish", nil, &pub)
	require.Equal(t, 201, status)
	require.Len(t, pub.Warnings, 1)
	assert.Equal(t, "condition", pub.Warnings[0].Rule)
}

func TestHTTP_EditSessionForStoredForm(t *testing.T) {
	ts := newTestServer(t)
	saved, err := ts.forms.Create(context.Background(), &form.Form{Title: "Stored", Fields: []form.Field{
		{ID: "10", Type: form.TypeSelect, Label: "Pick", Options: form.DefaultOptions()},
	}})
	require.NoError(t, err)

	var view SessionView
	status, _ := ts.call(t, "POST", "/api/sessions", map[string]int64{"formId": saved.ID}, &view)
	require.Equal(t, 201, status)
	assert.Equal(t, "Stored", view.Form.Title)
	assert.Equal(t, saved.ID, view.Form.ID)

	status, code := ts.call(t, "POST", "/api/sessions", map[string]int64{"formId": 99}, nil)
	assert.Equal(t, 404, status)
	assert.Equal(t, "NOT_FOUND", code)

	// new drops do not collide with the stored ids
	fld := ts.drop(t, view.ID, 1, form.TypeText)
	assert.NotEqual(t, "10", fld.ID)

	// deleting the stored form makes the next publish create a new one
	_, err = ts.forms.Delete(context.Background(), saved.ID)
	require.NoError(t, err)
	var pub PublishResult
	status, _ = ts.call(t, "POST", "/api/sessions/"+view.ID+"/publish", nil, &pub)
	require.Equal(t, 201, status)
	assert.True(t, pub.Created)
}

func TestHTTP_DropPayloadShapes(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.newSession(t)
	path := "/api/sessions/" + sid + "/fields"

	var res dropResult
	status, _ := ts.call(t, "POST", path, `{"position":0,"payload":"{\"type\":\"radio\"}"}`, &res)
	require.Equal(t, 201, status)
	assert.Equal(t, form.TypeRadio, res.Field.Type)
	assert.Len(t, res.Field.Options, 3)

	for _, body := range []string{
		`{"position":0,"payload":"not json"}`,
		`{"position":0,"payload":{"type":"slider"}}`,
		`{"position":0}`,
	} {
		res = dropResult{}
		status, _ = ts.call(t, "POST", path, body, &res)
		assert.Equal(t, 200, status, body)
		assert.False(t, res.Dropped, body)
		assert.Len(t, res.Session.Form.Fields, 1, body)
	}

	status, code := ts.call(t, "POST", path, `{"position":`, nil)
	assert.Equal(t, 400, status)
	assert.Equal(t, "INVALID_PAYLOAD", code)
}

func TestHTTP_Options(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.newSession(t)
	sel := ts.drop(t, sid, 0, form.TypeSelect)
	base := "/api/sessions/" + sid + "/fields/" + sel.ID + "/options"

	var fld form.Field
	status, _ := ts.call(t, "POST", base, nil, &fld)
	require.Equal(t, 201, status)
	assert.Len(t, fld.Options, 4)

	status, _ = ts.call(t, "PUT", base+"/0", map[string]string{"label": "Red"}, &fld)
	require.Equal(t, 200, status)
	assert.Equal(t, form.Option{Label: "Red", Value: "option1"}, fld.Options[0])

	for i := 0; i < 3; i++ {
		status, _ = ts.call(t, "DELETE", base+"/0", nil, &fld)
		require.Equal(t, 200, status)
	}
	require.Len(t, fld.Options, 1)
	status, code := ts.call(t, "DELETE", base+"/0", nil, nil)
	assert.Equal(t, 422, status)
	assert.Equal(t, "VALIDATION_FAILED", code)

	status, _ = ts.call(t, "PUT", base+"/7", map[string]string{"label": "x"}, nil)
	assert.Equal(t, 422, status)
	status, _ = ts.call(t, "PUT", base+"/x", map[string]string{"label": "x"}, nil)
	assert.Equal(t, 400, status)
}

func TestHTTP_LogicRefusals(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.newSession(t)
	num := ts.drop(t, sid, 0, form.TypeNumber)
	txt := ts.drop(t, sid, 1, form.TypeText)
	last := ts.drop(t, sid, 2, form.TypeTextarea)
	logicPath := func(fid string) string { return "/api/sessions/" + sid + "/fields/" + fid + "/logic" }

	cases := []struct {
		name  string
		owner string
		body  map[string]any
	}{
		{"number target", last.ID, map[string]any{"conditions": []form.Condition{{FieldID: num.ID, Operator: form.OpEquals}}}},
		{"later target", txt.ID, map[string]any{"conditions": []form.Condition{{FieldID: last.ID, Operator: form.OpEquals}}}},
		{"bad operator", last.ID, map[string]any{"conditions": []form.Condition{{FieldID: txt.ID, Operator: "like"}}}},
		{"bad combinator", last.ID, map[string]any{"operator": "XOR", "conditions": []form.Condition{}}},
		{"no eligible", num.ID, map[string]any{"conditions": []form.Condition{{FieldID: txt.ID, Operator: form.OpEquals}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, code := ts.call(t, "PUT", logicPath(tc.owner), tc.body, nil)
			assert.Equal(t, 422, status)
			assert.Equal(t, "VALIDATION_FAILED", code)
		})
	}

	// the owner's rule is untouched by refused saves
	var fld form.Field
	status, _ := ts.call(t, "PUT", logicPath(last.ID), map[string]any{"operator": "OR", "conditions": []form.Condition{{FieldID: txt.ID, Operator: form.OpContains, Value: "x"}}}, &fld)
	require.Equal(t, 200, status)
	require.NotNil(t, fld.Logic)
	assert.Equal(t, form.LogicOr, fld.Logic.Operator)

	status, _ = ts.call(t, "PUT", logicPath(last.ID), map[string]any{"conditions": []form.Condition{}}, &fld)
	require.Equal(t, 200, status)
	assert.Nil(t, fld.Logic)
}

func TestHTTP_LogicBadOperatorDetail(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.newSession(t)
	txt := ts.drop(t, sid, 0, form.TypeText)
	last := ts.drop(t, sid, 1, form.TypeTextarea)

	body := fmt.Sprintf(`{"conditions":[{"fieldId":%q,"operator":"like","value":"x"}]}`, txt.ID)
	req := httptest.NewRequest("PUT", "/api/sessions/"+sid+"/fields/"+last.ID+"/logic", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, 422, resp.StatusCode)

	var env engine.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.Len(t, env.Error.Details, 1)
	assert.Equal(t, "operator", env.Error.Details[0].Rule)
	assert.Equal(t, "conditions[0].operator", env.Error.Details[0].Field)
	assert.Contains(t, env.Error.Details[0].Message, `"like"`)
}

func TestHTTP_PatchLogicNullClears(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.newSession(t)
	a := ts.drop(t, sid, 0, form.TypeText)
	b := ts.drop(t, sid, 1, form.TypeText)
	path := "/api/sessions/" + sid + "/fields/" + b.ID

	var fld form.Field
	body := fmt.Sprintf(`{"logic":{"operator":"AND","conditions":[{"fieldId":%q,"operator":"empty","value":""}]}}`, a.ID)
	status, _ := ts.call(t, "PATCH", path, body, &fld)
	require.Equal(t, 200, status)
	require.NotNil(t, fld.Logic)

	status, _ = ts.call(t, "PATCH", path, `{"label":"Other"}`, &fld)
	require.Equal(t, 200, status)
	assert.NotNil(t, fld.Logic)

	status, _ = ts.call(t, "PATCH", path, `{"logic":null}`, &fld)
	require.Equal(t, 200, status)
	assert.Nil(t, fld.Logic)

	status, _ = ts.call(t, "PATCH", path, `{"logic":{"operator":"NAND","conditions":[]}}`, nil)
	assert.Equal(t, 422, status)
}

func TestHTTP_RulesAndSubmit(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.newSession(t)
	age := ts.drop(t, sid, 0, form.TypeText)

	rules := map[string]any{"rules": []form.Rule{{Expression: "values[", Message: "x"}}}
	status, code := ts.call(t, "PUT", "/api/sessions/"+sid+"/rules", rules, nil)
	assert.Equal(t, 422, status)
	assert.Equal(t, "VALIDATION_FAILED", code)

	expr := fmt.Sprintf(`values[%q] == "blocked"`, age.ID)
	rules = map[string]any{"rules": []form.Rule{{Expression: expr, Message: "That value is not allowed"}}}
	status, _ = ts.call(t, "PUT", "/api/sessions/"+sid+"/rules", rules, nil)
	require.Equal(t, 200, status)

	var submit SubmitResult
	status, _ = ts.call(t, "POST", "/api/sessions/"+sid+"/preview/submit", map[string]any{"values": map[string]any{age.ID: "blocked"}}, &submit)
	require.Equal(t, 200, status)
	assert.False(t, submit.Accepted)
	require.Len(t, submit.Errors, 1)
	assert.Equal(t, "That value is not allowed", submit.Errors[0].Message)
}

func TestHTTP_NotFound(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.newSession(t)

	cases := []struct{ method, path string }{
		{"GET", "/api/sessions/nope"},
		{"DELETE", "/api/sessions/nope"},
		{"PATCH", "/api/sessions/" + sid + "/fields/nope"},
		{"DELETE", "/api/sessions/" + sid + "/fields/nope"},
		{"POST", "/api/sessions/" + sid + "/fields/nope/move"},
		{"GET", "/api/sessions/" + sid + "/fields/nope/eligible"},
		{"PUT", "/api/sessions/" + sid + "/preview/values/nope"},
	}
	for _, tc := range cases {
		status, code := ts.call(t, tc.method, tc.path, `{}`, nil)
		assert.Equal(t, 404, status, tc.path)
		assert.Equal(t, "NOT_FOUND", code, tc.path)
	}

	status, _ := ts.call(t, "DELETE", "/api/sessions/"+sid, nil, nil)
	assert.Equal(t, 204, status)
	assert.Equal(t, 0, ts.sessions.Len())
}
