package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/kalambet/bankassist/internal/assistant"
	"github.com/kalambet/bankassist/internal/session"
	"github.com/kalambet/bankassist/internal/usecase"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	color.NoColor = true
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found_error"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestCacheList(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /cache": `[{"query":"documents for a home loan","response":"Bring ID proof.","source":"documents","use_case":"Documentation","validated":true,"timestamp":"2026-01-02T10:00:00Z"}]`,
	})

	var out bytes.Buffer
	if err := listCache(ctx, ts.client(), &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "1. documents for a home loan [Documentation, documents ✓]") {
		t.Errorf("output = %q, missing entry header", got)
	}
	if !strings.Contains(got, "Bring ID proof.") {
		t.Errorf("output = %q, missing response", got)
	}
	if ts.requests[0].Auth != "Bearer test-token" {
		t.Errorf("auth = %q, want Bearer test-token", ts.requests[0].Auth)
	}
}

func TestCacheList_Empty(t *testing.T) {
	ts := newTestServer(t, map[string]string{"GET /cache": `[]`})

	var out bytes.Buffer
	if err := listCache(ctx, ts.client(), &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out.String()) != "Cache is empty." {
		t.Errorf("output = %q", out.String())
	}
}

func TestCacheClear(t *testing.T) {
	ts := newTestServer(t, map[string]string{"DELETE /cache": `{"status":"cleared"}`})

	if err := clearCache(ctx, ts.client()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ts.requests) != 1 || ts.requests[0].Method != "DELETE" {
		t.Fatalf("requests = %+v, want one DELETE", ts.requests)
	}
}

func TestHistory_QueryParams(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /turns": `[{"id":"0123456789abcdef","session_id":"s1","user_id":"001","query":"show my transactions","intent":"Transaction History","use_case":"Transaction History","response":"ok","created_at":"2026-01-02T10:00:00Z"}]`,
	})

	var out bytes.Buffer
	if err := listHistory(ctx, ts.client(), &out, "001", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ts.requests[0].Path != "/turns?limit=5&user_id=001" {
		t.Errorf("path = %q", ts.requests[0].Path)
	}
	got := out.String()
	if !strings.Contains(got, "01234567") || strings.Contains(got, "89abcdef") {
		t.Errorf("output = %q, want id shortened to 8 chars", got)
	}
	if !strings.Contains(got, "[Transaction History] show my transactions") {
		t.Errorf("output = %q, missing turn", got)
	}
}

func TestHistory_ServerError(t *testing.T) {
	ts := newTestServer(t, nil)

	var out bytes.Buffer
	err := showTurn(ctx, ts.client(), &out, "missing")
	if err == nil {
		t.Fatal("expected error for unknown turn")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %q, want status code", err.Error())
	}
}

func TestDebug(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /debug/logs": `[{"turn_id":"t1","session_id":"s1","query":"current repo rate","use_case":"Banking Norms","steps":["cache miss","agent plan: [search, scrape, validate]"],"at":"2026-01-02T10:00:00Z"}]`,
	})

	var out bytes.Buffer
	if err := showDebug(ctx, ts.client(), &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "current repo rate [Banking Norms]") {
		t.Errorf("output = %q, missing header", got)
	}
	if !strings.Contains(got, "→ agent plan: [search, scrape, validate]") {
		t.Errorf("output = %q, missing step", got)
	}
}

// --- chat loop ---

type fakeLoader struct{}

func (fakeLoader) Load(userID string) (*session.Session, string) {
	if userID != "001" {
		return nil, session.MsgUserNotFound
	}
	return &session.Session{ID: "s1", UserID: "001", Name: "Asha"}, "👋 Hello, Asha! How may I help you today?"
}

type fakeAnswerer struct {
	queries []string
}

func (f *fakeAnswerer) Handle(_ context.Context, sess *session.Session, query string) assistant.Answer {
	f.queries = append(f.queries, query)
	turn := sess.Append(session.Turn{
		ID:       "t1",
		Query:    query,
		Intent:   string(usecase.BankingNorms),
		UseCase:  usecase.BankingNorms,
		Response: "answer to " + query,
	})
	return assistant.Answer{Turn: turn, Steps: []string{"documents loaded"}}
}

func TestRunChat(t *testing.T) {
	color.NoColor = true
	in := strings.NewReader("001\nwhat is the repo rate?\n\nexit\nnever asked\n")
	var out bytes.Buffer
	ans := &fakeAnswerer{}

	if err := runChat(ctx, in, &out, fakeLoader{}, ans, "", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ans.queries) != 1 || ans.queries[0] != "what is the repo rate?" {
		t.Fatalf("queries = %v, want the single query before exit", ans.queries)
	}
	got := out.String()
	for _, want := range []string{
		"Enter your user ID",
		"👋 Hello, Asha!",
		"📂 Use Case: Banking Norms",
		"🤖 answer to what is the repo rate?",
		"→ documents loaded",
		"1. [Banking Norms] what is the repo rate? → answer to what is the repo rate?",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\n%s", want, got)
		}
	}
}

func TestRunChat_UnknownUser(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	ans := &fakeAnswerer{}

	if err := runChat(ctx, strings.NewReader("hello\n"), &out, fakeLoader{}, ans, "999", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), session.MsgUserNotFound) {
		t.Errorf("output = %q, want user not found", out.String())
	}
	if len(ans.queries) != 0 {
		t.Errorf("queries = %v, want none", ans.queries)
	}
}

func TestRunChat_EndOfInputPrintsSummary(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer

	if err := runChat(ctx, strings.NewReader("quit\n"), &out, fakeLoader{}, &fakeAnswerer{}, "001", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "No questions asked.") {
		t.Errorf("output = %q, want empty summary", out.String())
	}
}

func TestAskCommand_RequiresUser(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"ask", "what is kyc"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing --user")
	}
	if !strings.Contains(err.Error(), "required") {
		t.Errorf("error = %q, want it to mention 'required'", err.Error())
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("a  b\nc", 10); got != "a b c" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("héllo world", 5); got != "héllo..." {
		t.Errorf("truncate = %q", got)
	}
}
