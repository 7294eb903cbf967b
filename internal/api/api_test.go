package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/taskcollector/internal/collector"
	"github.com/starford/taskcollector/internal/index"
	"github.com/starford/taskcollector/internal/tasks"
	"github.com/starford/taskcollector/internal/testutil"
)

type testEnv struct {
	svc    *collector.Service
	router http.Handler
	vault  string
}

// newTestEnv builds a vault holding docs, indexes it, and mounts the router.
// A non-empty token enables auth.
func newTestEnv(t *testing.T, token string, docs map[string]string) testEnv {
	t.Helper()
	return newTestEnvWithSSE(t, token, docs, nil)
}

func newTestEnvWithSSE(t *testing.T, token string, docs map[string]string, sse http.Handler) testEnv {
	t.Helper()
	vault, store := testutil.TestVault(t)
	for rel, content := range docs {
		testutil.WriteDoc(t, vault, rel, content)
	}
	db := testutil.TestDB(t)
	engine := testutil.TestEngine(t, tasks.Settings{SupportCanceledTasks: true})
	if err := index.Sync(db, store, engine, testutil.Logger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	svc := collector.NewService(store, db, engine, collector.WithLogger(testutil.Logger()))
	return testEnv{
		svc:    svc,
		router: NewRouter(svc, token != "", token, sse),
		vault:  vault,
	}
}

func (e testEnv) do(t *testing.T, method, target string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode %T: %v", v, err)
	}
	return v
}

func TestListAndGetDocument(t *testing.T) {
	e := newTestEnv(t, "", map[string]string{
		"inbox.md":      "# Inbox\n- [ ] one\n- [x] two\n",
		"plans/week.md": "- [ ] plan",
	})

	w := e.do(t, http.MethodGet, "/documents", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	list := decode[DocumentListResponse](t, w)
	if len(list.Documents) != 2 {
		t.Fatalf("documents = %+v", list.Documents)
	}

	w = e.do(t, http.MethodGet, "/documents/plans/week.md", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, body = %s", w.Code, w.Body.String())
	}
	doc := decode[collectorDoc](t, w)
	if doc.Path != "plans/week.md" || len(doc.Tasks) != 1 {
		t.Errorf("doc = %+v", doc)
	}
	if etag := w.Header().Get("ETag"); etag != `"`+doc.Checksum+`"` {
		t.Errorf("ETag = %q, checksum = %q", etag, doc.Checksum)
	}
}

// collectorDoc is the subset of models.Document the tests read.
type collectorDoc struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Checksum string `json:"checksum"`
	Tasks    []struct {
		Line  int    `json:"line"`
		State string `json:"state"`
	} `json:"tasks"`
}

type applyBody struct {
	Document  collectorDoc     `json:"document"`
	Selection *tasks.Selection `json:"selection"`
	Changed   bool             `json:"changed"`
}

func TestGetDocument_NotFound(t *testing.T) {
	e := newTestEnv(t, "", nil)
	if w := e.do(t, http.MethodGet, "/documents/nope.md", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("missing document = %d, want 404", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/documents/image.png", nil, nil); w.Code != http.StatusBadRequest {
		t.Errorf("non-markdown = %d, want 400", w.Code)
	}
}

func TestApplyOperation_MoveCompleted(t *testing.T) {
	e := newTestEnv(t, "", map[string]string{"todo.md": "- [x] done\n- [ ] open"})

	w := e.do(t, http.MethodPost, "/documents/todo.md/move-completed", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	res := decode[applyBody](t, w)
	want := "- [ ] open\n\n## Log\n- [x] done"
	if !res.Changed || res.Document.Content != want {
		t.Errorf("result = %+v", res)
	}
	if got := testutil.ReadDoc(t, e.vault, "todo.md"); got != want {
		t.Errorf("file = %q", got)
	}

	w = e.do(t, http.MethodPost, "/documents/todo.md/move-completed", nil, nil)
	if res := decode[applyBody](t, w); res.Changed {
		t.Error("second move reported a change")
	}
}

func TestApplyOperation_Mark(t *testing.T) {
	e := newTestEnv(t, "", map[string]string{"todo.md": "- [ ] a\n- [ ] b\n- [ ] c"})

	body := OperationRequest{
		Mark:      "-",
		Selection: &tasks.Selection{Start: tasks.Position{Line: 1}, End: tasks.Position{Line: 2}},
	}
	w := e.do(t, http.MethodPost, "/documents/todo.md/mark", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	res := decode[applyBody](t, w)
	if res.Document.Content != "- [ ] a\n- [-] b\n- [-] c" {
		t.Errorf("content = %q", res.Document.Content)
	}
	if res.Selection == nil || res.Selection.End.Line != 2 {
		t.Errorf("selection = %+v", res.Selection)
	}
}

func TestApplyOperation_BadRequests(t *testing.T) {
	e := newTestEnv(t, "", map[string]string{"todo.md": "- [ ] a"})
	cases := []struct {
		name   string
		target string
		body   any
	}{
		{"unknown operation", "/documents/todo.md/explode", nil},
		{"missing operation", "/documents/todo.md", nil},
		{"mark without selection", "/documents/todo.md/mark", OperationRequest{Mark: "x"}},
		{"multi-character mark", "/documents/todo.md/mark", OperationRequest{Mark: "xx", Selection: &tasks.Selection{}}},
		{"unrecognized mark", "/documents/todo.md/mark", OperationRequest{Mark: "?", Selection: &tasks.Selection{}}},
		{"complete-all with remove-checkbox", "/documents/todo.md/complete-all", OperationRequest{Mark: tasks.MarkRemoveCheckbox}},
		{"complete-all with open mark", "/documents/todo.md/complete-all", OperationRequest{Mark: " "}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := e.do(t, http.MethodPost, tc.target, tc.body, nil); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (%s)", w.Code, w.Body.String())
			}
		})
	}
	if got := testutil.ReadDoc(t, e.vault, "todo.md"); got != "- [ ] a" {
		t.Errorf("file changed: %q", got)
	}
}

func TestApplyOperation_IfMatch(t *testing.T) {
	e := newTestEnv(t, "", map[string]string{"todo.md": "- [ ] a"})

	w := e.do(t, http.MethodPost, "/documents/todo.md/complete-all", nil, map[string]string{"If-Match": `"stale"`})
	if w.Code != http.StatusConflict {
		t.Fatalf("stale If-Match = %d, want 409", w.Code)
	}
	if got := testutil.ReadDoc(t, e.vault, "todo.md"); got != "- [ ] a" {
		t.Fatalf("file changed on conflict: %q", got)
	}

	etag := e.do(t, http.MethodGet, "/documents/todo.md", nil, nil).Header().Get("ETag")
	w = e.do(t, http.MethodPost, "/documents/todo.md/complete-all", nil, map[string]string{"If-Match": etag})
	if w.Code != http.StatusOK {
		t.Fatalf("current If-Match = %d, body = %s", w.Code, w.Body.String())
	}

	// Body precondition wins over the header.
	w = e.do(t, http.MethodPost, "/documents/todo.md/reset-all",
		OperationRequest{IfMatch: "stale"}, map[string]string{"If-Match": w.Header().Get("ETag")})
	if w.Code != http.StatusConflict {
		t.Errorf("body if_match = %d, want 409", w.Code)
	}
}

func TestTransform(t *testing.T) {
	e := newTestEnv(t, "", nil)

	w := e.do(t, http.MethodPost, "/transform", TransformRequest{Operation: "complete-all", Text: "- [ ] a\n- b"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	res := decode[TransformResponse](t, w)
	if res.Text != "- [x] a\n- b" || !res.Changed {
		t.Errorf("response = %+v", res)
	}

	w = e.do(t, http.MethodPost, "/transform", TransformRequest{
		Operation: "mark",
		Text:      "- plain",
		Mark:      "x",
		Selection: &tasks.Selection{},
	}, nil)
	if res := decode[TransformResponse](t, w); res.Text != "- [x] plain" || res.Selection == nil {
		t.Errorf("mark response = %+v", res)
	}

	for _, bad := range []TransformRequest{
		{Operation: "explode", Text: "x"},
		{Operation: "mark", Text: "- [ ] a", Mark: "x"},
	} {
		if w := e.do(t, http.MethodPost, "/transform", bad, nil); w.Code != http.StatusBadRequest {
			t.Errorf("%+v: status = %d, want 400", bad, w.Code)
		}
	}
}

func TestTransform_InvalidJSON(t *testing.T) {
	e := newTestEnv(t, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/transform", strings.NewReader("{"))
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestListTasks(t *testing.T) {
	e := newTestEnv(t, "", map[string]string{
		"a.md": "- [ ] call #home\n- [x] shop\n## Log\n- [x] old",
		"b.md": "- [-] dropped\n- [ ] write #work",
	})

	cases := []struct {
		query string
		want  int
	}{
		{"", 5},
		{"?state=incomplete", 2},
		{"?state=canceled", 1},
		{"?path=a.md", 3},
		{"?tag=work", 1},
		{"?tag=%23home", 1},
		{"?in_log=true", 1},
		{"?state=complete&in_log=false", 1},
		{"?limit=2", 2},
		{"?q=%20%20", 5},
	}
	for _, tc := range cases {
		w := e.do(t, http.MethodGet, "/tasks"+tc.query, nil, nil)
		if w.Code != http.StatusOK {
			t.Errorf("%q: status = %d", tc.query, w.Code)
			continue
		}
		if got := decode[TaskListResponse](t, w); len(got.Tasks) != tc.want {
			t.Errorf("%q: tasks = %d, want %d", tc.query, len(got.Tasks), tc.want)
		}
	}

	for _, bad := range []string{"?state=weird", "?limit=5000", "?in_log=maybe"} {
		if w := e.do(t, http.MethodGet, "/tasks"+bad, nil, nil); w.Code != http.StatusBadRequest {
			t.Errorf("%q: status = %d, want 400", bad, w.Code)
		}
	}
}

func TestSettings(t *testing.T) {
	e := newTestEnv(t, "", map[string]string{"a.md": "- [>] later"})

	got := decode[tasks.Settings](t, e.do(t, http.MethodGet, "/settings", nil, nil))
	if !got.SupportCanceledTasks || got.CompletedAreaHeader != tasks.DefaultHeading {
		t.Errorf("settings = %+v", got)
	}

	next := got
	next.IncompleteTaskValues = ">"
	w := e.do(t, http.MethodPut, "/settings", next, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}
	if live := decode[tasks.Settings](t, w); !strings.Contains(live.IncompleteTaskValues, ">") {
		t.Errorf("live = %+v", live)
	}

	// The index was rebuilt under the new vocabulary.
	list := decode[TaskListResponse](t, e.do(t, http.MethodGet, "/tasks?state=incomplete", nil, nil))
	if len(list.Tasks) != 1 {
		t.Errorf("incomplete after update = %d, want 1", len(list.Tasks))
	}
}

func TestSettings_InvalidKeepsPrevious(t *testing.T) {
	e := newTestEnv(t, "", nil)
	before := e.svc.Settings()

	bad := before
	bad.RemoveExpression = "(unclosed"
	if w := e.do(t, http.MethodPut, "/settings", bad, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if after := e.svc.Settings(); after != before {
		t.Errorf("settings replaced: %+v", after)
	}
}

func TestAuthMiddleware(t *testing.T) {
	e := newTestEnv(t, "secret123", nil)
	cases := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{"missing token", nil, http.StatusUnauthorized},
		{"wrong token", map[string]string{"Authorization": "Bearer wrong"}, http.StatusUnauthorized},
		{"wrong scheme", map[string]string{"Authorization": "Basic secret123"}, http.StatusUnauthorized},
		{"valid token", map[string]string{"Authorization": "Bearer secret123"}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := e.do(t, http.MethodGet, "/settings", nil, tc.header); w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	e := newTestEnv(t, "", nil)
	if w := e.do(t, http.MethodGet, "/documents", nil, nil); w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// blockingSSE writes headers and blocks until the request is cancelled.
var blockingSSE = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_Auth(t *testing.T) {
	e := newTestEnvWithSSE(t, "tok", nil, blockingSSE)

	if w := e.do(t, http.MethodGet, "/events", nil, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d, want 200", w.Code)
	}
}
