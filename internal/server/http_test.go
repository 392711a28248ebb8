package server

import (
	"errors"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/alfredjeanlab/eventdesk/internal/metrics"
	"github.com/alfredjeanlab/eventdesk/internal/panel"
	"github.com/alfredjeanlab/eventdesk/internal/repo"
	"github.com/alfredjeanlab/eventdesk/internal/session"
	"github.com/alfredjeanlab/eventdesk/internal/store/memory"
)

type testEnv struct {
	t        *testing.T
	srv      *httptest.Server
	mem      *memory.Store
	sessions *session.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := memory.New()
	p := panel.New(repo.New(mem, nil, repo.Options{Logger: logger}), logger)
	sm := session.NewManager(session.Options{})

	s, err := New(p, sm, Options{Metrics: metrics.New(), Logger: logger})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &testEnv{t: t, srv: srv, mem: mem, sessions: sm}
}

// newClient returns a browser-like client with its own cookie jar that does
// not follow redirects.
func (e *testEnv) newClient() *http.Client {
	jar, err := cookiejar.New(nil)
	if err != nil {
		e.t.Fatal(err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (e *testEnv) get(c *http.Client, path string) (*http.Response, string) {
	e.t.Helper()
	resp, err := c.Get(e.srv.URL + path)
	if err != nil {
		e.t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func (e *testEnv) post(c *http.Client, path string, form url.Values) *http.Response {
	e.t.Helper()
	resp, err := c.PostForm(e.srv.URL+path, form)
	if err != nil {
		e.t.Fatalf("POST %s: %v", path, err)
	}
	_ = resp.Body.Close()
	return resp
}

func expectRedirect(t *testing.T, resp *http.Response, section string) {
	t.Helper()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/#"+section {
		t.Fatalf("Location = %q, want %q", loc, "/#"+section)
	}
}

func TestIndex_RendersEventsAndSetsCookie(t *testing.T) {
	env := newTestEnv(t)
	env.mem.Put("evt1", `{"name":"Your name?"}`)
	env.mem.Put("evt2", `"{\"email\":\"Your email?\"}"`)

	resp, body := env.get(env.newClient(), "/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == session.CookieName {
			found = true
			if !c.HttpOnly {
				t.Error("session cookie should be HttpOnly")
			}
		}
	}
	if !found {
		t.Error("expected session cookie to be set")
	}
	if got := resp.Header.Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
	if got := resp.Header.Get("Content-Security-Policy"); got == "" {
		t.Error("expected Content-Security-Policy header")
	}

	for _, want := range []string{DefaultTitle, "evt1", "evt2", "Your name?", "name"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestIndex_SelectsRequestedEvent(t *testing.T) {
	env := newTestEnv(t)
	env.mem.Put("evt1", `{"name":"Your name?"}`)
	env.mem.Put("evt2", `{"email":"Your email?"}`)

	_, body := env.get(env.newClient(), "/?view=evt2")
	if !strings.Contains(body, "<td>Your email?</td>") {
		t.Errorf("expected evt2 attributes in the view table")
	}
	if strings.Contains(body, "<td>Your name?</td>") {
		t.Errorf("evt1 attributes should not be shown read-only")
	}
}

func TestIndex_Empty(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.get(env.newClient(), "/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(body, "No events found.") {
		t.Error("expected empty-state message")
	}
}

func TestIndex_FetchError(t *testing.T) {
	env := newTestEnv(t)
	env.mem.ListErr = errors.New("connection refused")

	resp, body := env.get(env.newClient(), "/")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	if !strings.Contains(body, "Could not load events.") {
		t.Error("expected fetch error banner")
	}
	if strings.Contains(body, `action="/add"`) {
		t.Error("sections should not render when the fetch fails")
	}
}

func TestAdd_Success(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient()

	resp := env.post(c, "/add", url.Values{
		"id":     {"  evt9 "},
		"attr":   {"name", ""},
		"prompt": {"Your name?", "ignored"},
		"action": {"save"},
	})
	expectRedirect(t, resp, panel.SectionAdd)

	data, ok := env.mem.Data("evt9")
	if !ok {
		t.Fatal("event was not inserted")
	}
	if data != `{"name":"Your name?"}` {
		t.Errorf("stored data = %s", data)
	}

	_, body := env.get(c, "/")
	if !strings.Contains(body, "added.") {
		t.Error("expected success notice after redirect")
	}
	_, body = env.get(c, "/")
	if strings.Contains(body, "added.") {
		t.Error("notice should only be shown once")
	}
}

func TestAdd_ValidationKeepsDraft(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient()

	resp := env.post(c, "/add", url.Values{
		"id":     {""},
		"attr":   {"name"},
		"prompt": {"draft prompt"},
	})
	expectRedirect(t, resp, panel.SectionAdd)
	if env.mem.Len() != 0 {
		t.Fatal("nothing should be written on validation failure")
	}

	_, body := env.get(c, "/")
	if !strings.Contains(body, "id: is required") {
		t.Error("expected validation notice")
	}
	if !strings.Contains(body, ">\ndraft prompt</textarea>") {
		t.Error("expected draft rows to be kept")
	}
}

func TestAdd_AddRow(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient()

	env.post(c, "/add", url.Values{
		"id":     {"evt1"},
		"attr":   {"name"},
		"prompt": {"Your name?"},
		"action": {"add-row"},
	})
	if env.mem.Len() != 0 {
		t.Fatal("add-row must not save")
	}

	_, body := env.get(c, "/")
	if n := strings.Count(body, `name="attr"`); n != 2 {
		t.Errorf("attr inputs = %d, want 2", n)
	}
	if !strings.Contains(body, `value="evt1"`) {
		t.Error("expected draft id to be kept")
	}
}

func TestAdd_UnknownAction(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient()

	env.post(c, "/add", url.Values{"id": {"evt1"}, "action": {"explode"}})
	if env.mem.CallCount("insert") != 0 {
		t.Fatal("unknown action must not reach the backend")
	}
	_, body := env.get(c, "/")
	if !strings.Contains(body, "unknown action") {
		t.Error("expected unknown action notice")
	}
}

func TestEdit_Flow(t *testing.T) {
	env := newTestEnv(t)
	env.mem.Put("evt1", `{"a":"1"}`)
	c := env.newClient()

	env.get(c, "/?edit=evt1")
	resp := env.post(c, "/edit", url.Values{
		"id":     {"evt1"},
		"attr":   {"a", "b"},
		"prompt": {"2", "3"},
		"action": {"save"},
	})
	expectRedirect(t, resp, panel.SectionEdit)

	if data, _ := env.mem.Data("evt1"); data != `{"a":"2","b":"3"}` {
		t.Errorf("stored data = %s", data)
	}
	_, body := env.get(c, "/")
	if !strings.Contains(body, "updated.") {
		t.Error("expected success notice")
	}
}

// textareaRe matches the prompt cells of a rendered table.
var textareaRe = regexp.MustCompile(`<textarea name="prompt"[^>]*>([^<]*)</textarea>`)

// submittedPrompts returns the prompt values a browser would post back for
// body: one newline right after the start tag is dropped by the HTML parser
// and line breaks are sent as CRLF.
func submittedPrompts(body string) []string {
	var out []string
	for _, m := range textareaRe.FindAllStringSubmatch(body, -1) {
		v := html.UnescapeString(strings.TrimPrefix(m[1], "\n"))
		out = append(out, strings.ReplaceAll(v, "\n", "\r\n"))
	}
	return out
}

func TestEdit_MultilinePromptsRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	const data = `{"lead":"\nhello","multi":"a\nb & <c>"}`
	env.mem.Put("evt1", data)
	c := env.newClient()

	_, body := env.get(c, "/?edit=evt1")
	prompts := submittedPrompts(body)
	want := []string{"\r\nhello", "a\r\nb & <c>"}
	if len(prompts) != len(want) {
		t.Fatalf("rendered prompts = %q, want %q", prompts, want)
	}
	for i := range want {
		if prompts[i] != want[i] {
			t.Errorf("prompt %d = %q, want %q", i, prompts[i], want[i])
		}
	}

	// Saving the untouched form must not change the stored data.
	resp := env.post(c, "/edit", url.Values{
		"id":     {"evt1"},
		"attr":   {"lead", "multi"},
		"prompt": prompts,
		"action": {"save"},
	})
	expectRedirect(t, resp, panel.SectionEdit)
	if got, _ := env.mem.Data("evt1"); got != data {
		t.Errorf("stored data = %s, want %s", got, data)
	}
}

func TestEdit_StaleForm(t *testing.T) {
	env := newTestEnv(t)
	env.mem.Put("evt1", `{"a":"1"}`)
	env.mem.Put("evt2", `{"b":"1"}`)
	c := env.newClient()

	env.get(c, "/?edit=evt1")
	env.post(c, "/edit", url.Values{
		"id":     {"evt2"},
		"attr":   {"b"},
		"prompt": {"changed"},
	})

	if data, _ := env.mem.Data("evt2"); data != `{"b":"1"}` {
		t.Errorf("stale form should not write, data = %s", data)
	}
	_, body := env.get(c, "/")
	if !strings.Contains(body, "out of date") {
		t.Error("expected stale form warning")
	}
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t)
	env.mem.Put("evt1", `{"a":"1"}`)
	c := env.newClient()

	env.get(c, "/")
	resp := env.post(c, "/delete", url.Values{"id": {"evt1"}})
	expectRedirect(t, resp, panel.SectionDelete)

	if env.mem.Len() != 0 {
		t.Fatal("event was not deleted")
	}
	_, body := env.get(c, "/")
	if !strings.Contains(body, "deleted.") {
		t.Error("expected success notice")
	}
}

func TestNoticesAreSessionScoped(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := env.newClient(), env.newClient()

	env.post(alice, "/add", url.Values{"id": {"evt1"}, "attr": {"a"}, "prompt": {"1"}})

	_, body := env.get(bob, "/")
	if strings.Contains(body, "added.") {
		t.Error("another session should not see the notice")
	}
	if !strings.Contains(body, "evt1") {
		t.Error("another session should see the new event")
	}
	if env.sessions.Len() != 2 {
		t.Errorf("sessions = %d, want 2", env.sessions.Len())
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.get(env.newClient(), "/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(body, `"status":"ok"`) {
		t.Errorf("body = %s", body)
	}
}

func TestStaticAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient()

	resp, body := env.get(c, "/static/app.css")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("static status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(body, ".default-action") {
		t.Error("unexpected stylesheet content")
	}

	env.get(c, "/")
	_, body = env.get(c, "/metrics")
	if !strings.Contains(body, `eventdesk_http_requests_total{code="200",method="GET",route="index"} 1`) {
		t.Errorf("metrics missing index request counter")
	}
}

func TestNotFoundAndMethod(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient()

	if resp, _ := env.get(c, "/nope"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /nope = %d, want 404", resp.StatusCode)
	}
	if resp, _ := env.get(c, "/add"); resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /add = %d, want 405", resp.StatusCode)
	}
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		in      string
		want    panel.Action
		wantErr bool
	}{
		{"", panel.Action{Kind: panel.ActionSave}, false},
		{"save", panel.Action{Kind: panel.ActionSave}, false},
		{"add-row", panel.Action{Kind: panel.ActionAddRow}, false},
		{"delete-row:3", panel.Action{Kind: panel.ActionDeleteRow, Row: 3}, false},
		{"delete-row:x", panel.Action{}, true},
		{"drop", panel.Action{}, true},
	}
	for _, tt := range tests {
		got, err := parseAction(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseAction(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseAction(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParseTableForm_UnevenFields(t *testing.T) {
	form := url.Values{
		"id":     {"evt1"},
		"attr":   {"a", "b", "c"},
		"prompt": {"1"},
		"action": {"delete-row:1"},
	}
	req := httptest.NewRequest(http.MethodPost, "/edit", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	in, err := parseTableForm(req)
	if err != nil {
		t.Fatal(err)
	}
	if in.ID != "evt1" || len(in.Rows) != 3 {
		t.Fatalf("got %+v", in)
	}
	if in.Rows[0].Prompt != "1" || in.Rows[2].Attribute != "c" || in.Rows[2].Prompt != "" {
		t.Errorf("rows = %+v", in.Rows)
	}
	if in.Action.Kind != panel.ActionDeleteRow || in.Action.Row != 1 {
		t.Errorf("action = %+v", in.Action)
	}
}
