package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kalambet/bankassist/internal/assistant"
	"github.com/kalambet/bankassist/internal/cache"
	"github.com/kalambet/bankassist/internal/session"
	"github.com/kalambet/bankassist/internal/storage"
	"github.com/kalambet/bankassist/internal/usecase"
)

const testToken = "test-token-12345"

// --- mocks ---

type mockLoader struct{}

func (mockLoader) Load(userID string) (*session.Session, string) {
	if userID != "001" {
		return nil, session.MsgUserNotFound
	}
	return &session.Session{ID: "sess-" + time.Now().Format("150405.000000000"), UserID: "001", Name: "Asha"}, "👋 Hello, Asha! How may I help you today?"
}

type mockAnswerer struct {
	mu    sync.Mutex
	calls int
}

func (m *mockAnswerer) Handle(_ context.Context, sess *session.Session, query string) assistant.Answer {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	turn := sess.Append(session.Turn{ID: "t1", Query: query, UseCase: usecase.BankingNorms, Response: "answer to " + query})
	return assistant.Answer{Turn: turn, Source: "documents"}
}

type mockCacheAdmin struct {
	entries  []cache.Entry
	clearErr error
	cleared  bool
}

func (m *mockCacheAdmin) Entries(context.Context) []cache.Entry { return m.entries }
func (m *mockCacheAdmin) Clear(context.Context) error {
	m.cleared = true
	return m.clearErr
}

// --- helpers ---

type testApp struct {
	handler  http.Handler
	store    *storage.Store
	cache    *mockCacheAdmin
	answerer *mockAnswerer
	debug    *assistant.DebugLog
}

func setupApp(t *testing.T) testApp {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	app := testApp{
		store: store,
		cache: &mockCacheAdmin{entries: []cache.Entry{{
			Query: "What is the repo rate?", Response: "6.5%", UseCase: usecase.BankingNorms, Embedding: []float32{1, 2},
		}}},
		answerer: &mockAnswerer{},
		debug:    assistant.NewDebugLog(10),
	}
	app.handler = NewAppHandler(AppDeps{
		Assistant: app.answerer,
		Sessions:  NewRegistry(mockLoader{}, time.Minute),
		Cache:     app.cache,
		Turns:     store,
		Debug:     app.debug,
		Token:     testToken,
	})
	return app
}

func authReq(method, url, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func openSession(t *testing.T, h http.Handler) OpenSessionResponse {
	t.Helper()
	rec := serve(h, authReq(http.MethodPost, "/sessions", `{"user_id":"001"}`, testToken))
	if rec.Code != http.StatusCreated {
		t.Fatalf("open session: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp OpenSessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding session response: %v", err)
	}
	return resp
}

// --- tests ---

func TestAuth_RejectsMissingToken(t *testing.T) {
	app := setupApp(t)
	for _, token := range []string{"", "wrong-token"} {
		rec := serve(app.handler, authReq(http.MethodGet, "/cache", "", token))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("token %q: expected 401, got %d", token, rec.Code)
		}
	}
}

func TestAuth_EmptyConfiguredTokenRejectsAll(t *testing.T) {
	h := NewAppHandler(AppDeps{Token: ""})
	rec := serve(h, authReq(http.MethodGet, "/cache", "", ""))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHealth_NoAuth(t *testing.T) {
	app := setupApp(t)
	rec := serve(app.handler, authReq(http.MethodGet, "/health", "", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestOpenSession(t *testing.T) {
	app := setupApp(t)
	resp := openSession(t, app.handler)
	if resp.SessionID == "" || resp.Name != "Asha" {
		t.Fatalf("unexpected session: %+v", resp)
	}
	if !strings.HasPrefix(resp.Greeting, "👋 Hello, Asha!") {
		t.Fatalf("unexpected greeting: %q", resp.Greeting)
	}
}

func TestOpenSession_UnknownUser(t *testing.T) {
	app := setupApp(t)
	rec := serve(app.handler, authReq(http.MethodPost, "/sessions", `{"user_id":"999"}`, testToken))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), session.MsgUserNotFound) {
		t.Fatalf("expected user-facing message, got %s", rec.Body.String())
	}
}

func TestOpenSession_Validation(t *testing.T) {
	app := setupApp(t)
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing user", `{}`, "user_id failed required"},
		{"too long", `{"user_id":"` + strings.Repeat("9", 65) + `"}`, "user_id failed max"},
		{"bad json", `{"user_id":`, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(app.handler, authReq(http.MethodPost, "/sessions", tt.body, testToken))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Fatalf("expected %q in %s", tt.want, rec.Body.String())
			}
		})
	}
}

func TestQueryAndMemory(t *testing.T) {
	app := setupApp(t)
	sess := openSession(t, app.handler)

	rec := serve(app.handler, authReq(http.MethodPost, "/sessions/"+sess.SessionID+"/query", `{"query":"What is KYC?"}`, testToken))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var ans assistant.Answer
	if err := json.NewDecoder(rec.Body).Decode(&ans); err != nil {
		t.Fatalf("decoding answer: %v", err)
	}
	if ans.Turn.Response != "answer to What is KYC?" {
		t.Fatalf("unexpected response: %q", ans.Turn.Response)
	}

	rec = serve(app.handler, authReq(http.MethodGet, "/sessions/"+sess.SessionID+"/memory", "", testToken))
	var turns []session.Turn
	if err := json.NewDecoder(rec.Body).Decode(&turns); err != nil {
		t.Fatalf("decoding memory: %v", err)
	}
	if len(turns) != 1 || turns[0].Query != "What is KYC?" {
		t.Fatalf("unexpected memory: %+v", turns)
	}
}

func TestQuery_UnknownSession(t *testing.T) {
	app := setupApp(t)
	rec := serve(app.handler, authReq(http.MethodPost, "/sessions/nope/query", `{"query":"hi"}`, testToken))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if app.answerer.calls != 0 {
		t.Fatal("assistant must not run for an unknown session")
	}
}

func TestQuery_EmptyQuery(t *testing.T) {
	app := setupApp(t)
	sess := openSession(t, app.handler)
	rec := serve(app.handler, authReq(http.MethodPost, "/sessions/"+sess.SessionID+"/query", `{"query":""}`, testToken))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCache_ListHidesEmbeddings(t *testing.T) {
	app := setupApp(t)
	rec := serve(app.handler, authReq(http.MethodGet, "/cache", "", testToken))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "embedding") {
		t.Fatalf("embedding leaked: %s", body)
	}
	if !strings.Contains(body, "What is the repo rate?") {
		t.Fatalf("missing entry: %s", body)
	}
}

func TestCache_Clear(t *testing.T) {
	app := setupApp(t)
	rec := serve(app.handler, authReq(http.MethodDelete, "/cache", "", testToken))
	if rec.Code != http.StatusOK || !app.cache.cleared {
		t.Fatalf("expected cleared cache, got %d", rec.Code)
	}

	app.cache.clearErr = errors.New("disk full")
	rec = serve(app.handler, authReq(http.MethodDelete, "/cache", "", testToken))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestTurns(t *testing.T) {
	app := setupApp(t)
	ctx := context.Background()
	for i, user := range []string{"001", "002", "001"} {
		err := app.store.AppendTurn(ctx, storage.TurnRow{
			ID:        "turn-" + string(rune('a'+i)),
			SessionID: "s",
			UserID:    user,
			Query:     "q",
			UseCase:   string(usecase.BankingNorms),
			Response:  "r",
			CreatedAt: time.Date(2025, 1, 1, 10, i, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("AppendTurn: %v", err)
		}
	}

	rec := serve(app.handler, authReq(http.MethodGet, "/turns?user_id=001&limit=10", "", testToken))
	var rows []storage.TurnRow
	if err := json.NewDecoder(rec.Body).Decode(&rows); err != nil {
		t.Fatalf("decoding turns: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != "turn-c" {
		t.Fatalf("expected newest-first turns of user 001, got %+v", rows)
	}

	rec = serve(app.handler, authReq(http.MethodGet, "/turns/turn-b", "", testToken))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"user_id":"002"`) {
		t.Fatalf("unexpected turn: %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(app.handler, authReq(http.MethodGet, "/turns/missing", "", testToken))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestTurns_EmptyIsArray(t *testing.T) {
	app := setupApp(t)
	rec := serve(app.handler, authReq(http.MethodGet, "/turns", "", testToken))
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected [], got %s", rec.Body.String())
	}
}

func TestDebugLogs(t *testing.T) {
	app := setupApp(t)
	app.debug.Add(assistant.DebugRecord{Query: "older"})
	app.debug.Add(assistant.DebugRecord{Query: "newer", Steps: []string{"plan: [none]"}})

	rec := serve(app.handler, authReq(http.MethodGet, "/debug/logs", "", testToken))
	var recs []assistant.DebugRecord
	if err := json.NewDecoder(rec.Body).Decode(&recs); err != nil {
		t.Fatalf("decoding debug logs: %v", err)
	}
	if len(recs) != 2 || recs[0].Query != "newer" {
		t.Fatalf("unexpected debug logs: %+v", recs)
	}
}

func TestRegistry_ForUserReusesSession(t *testing.T) {
	r := NewRegistry(mockLoader{}, time.Minute)
	a, err := r.ForUser("001")
	if err != nil {
		t.Fatalf("ForUser: %v", err)
	}
	b, err := r.ForUser("001")
	if err != nil {
		t.Fatalf("ForUser: %v", err)
	}
	if a != b {
		t.Fatal("expected the same session for repeated calls")
	}
	if _, err := r.ForUser("999"); err == nil || messageOf(err) != session.MsgUserNotFound {
		t.Fatalf("expected user-not-found, got %v", err)
	}
}

func TestRegistry_Expiry(t *testing.T) {
	r := NewRegistry(mockLoader{}, 20*time.Millisecond)
	sess, _, err := r.Open("001")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	time.Sleep(40 * time.Millisecond)
	if _, ok := r.Get(sess.ID); ok {
		t.Fatal("expected idle session to expire")
	}
}
