package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botkit-webhooks/internal/assistant"
	"botkit-webhooks/internal/botkit"
	"botkit-webhooks/internal/catalog"
	"botkit-webhooks/internal/config"
	"botkit-webhooks/internal/store"
)

type stubReplier struct {
	msgs []botkit.Message
	err  error
	got  assistant.Request
}

func (s *stubReplier) Reply(_ context.Context, req assistant.Request) ([]botkit.Message, error) {
	s.got = req
	return s.msgs, s.err
}

func testConfig() config.Config {
	return config.Config{
		AllowedOrigin:   "*",
		PublicURL:       "http://example.test",
		DemoUsername:    "username",
		DemoPassword:    "password",
		StateSecret:     "test-secret",
		MessageLogLimit: 10,
	}
}

func newTestServer(t *testing.T, cfg config.Config, replier assistant.Replier) *Server {
	t.Helper()
	s, err := NewServer(cfg, Deps{
		Catalog:  catalog.NewStore(catalog.Default(""), "", ""),
		Messages: store.NewMemoryLog(10),
		Replier:  replier,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return s
}

func post(t *testing.T, s *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func messagesOf(t *testing.T, rec *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		BotkitVersion string           `json:"botkitVersion"`
		Messages      []map[string]any `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, botkit.LatestVersion, resp.BotkitVersion)
	return resp.Messages
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","botkitVersion":"0.3.0"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

type unreachableLog struct {
	*store.MemoryLog
}

func (unreachableLog) HealthCheck(context.Context) error { return errors.New("connection refused") }

func TestHealth_MessageLogUnavailable(t *testing.T) {
	s, err := NewServer(testConfig(), Deps{
		Catalog:  catalog.NewStore(catalog.Default(""), "", ""),
		Messages: unreachableLog{store.NewMemoryLog(10)},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable","botkitVersion":"0.3.0"}`, rec.Body.String())
}

func TestWebhooks(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/webhooks", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Webhooks []string `json:"webhooks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Webhooks, "message_logger")
	assert.Contains(t, resp.Webhooks, "contact_support")
	assert.IsIncreasing(t, resp.Webhooks)
}

func TestCatalogRoute_Simple(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	rec := post(t, s, "/simple", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"botkitVersion":"0.3.0","messages":[
		{"_type":"TextMessage","text":"Here is your first message"},
		{"_type":"TextMessage","text":"and a picture of a lock"},
		{"_type":"ImageMessage","imageUrl":"http://www.fortresslockandsecurity.com/wp-content/uploads/2014/04/Austin-Locksmith.png"}
	]}`, rec.Body.String())
}

func TestCatalogRoute_Human(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	msgs := messagesOf(t, post(t, s, "/human", ``))
	require.Len(t, msgs, 2)
	assert.Equal(t, map[string]any{"_type": "HandoffToHumanEvent"}, msgs[1])
}

func TestCatalogRoute_LoginGate(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	for _, body := range []string{`{}`, `{"loginData":{}}`, `not json`, ``} {
		msgs := messagesOf(t, post(t, s, "/locked", body))
		require.Len(t, msgs, 1, body)
		assert.Equal(t, "LoginOAuthEvent", msgs[0]["_type"])
		assert.Equal(t, map[string]any{"webhook": "flight_boarding_pass"}, msgs[0]["loginSuccessHook"])
		assert.Equal(t, catalog.DemoLoginURL, msgs[0]["webLoginUrl"])
	}

	msgs := messagesOf(t, post(t, s, "/locked", `{"loginData":{"x":1},"chatKey":"ck"}`))
	require.Len(t, msgs, 3)
	assert.Equal(t, "I guess you logged in", msgs[0]["text"])

	req := httptest.NewRequest(http.MethodPost, "/bplogin", strings.NewReader("loginData=token"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	msgs = messagesOf(t, rec)
	require.Len(t, msgs, 1)
	assert.Equal(t, "DataMessage", msgs[0]["_type"])
	assert.Equal(t, "airline_boardingpass", msgs[0]["subType"])
}

func TestCatalogRoute_EchoesChatKey(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	rec := post(t, s, "/roadside", `{"chatKey":"abc"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "abc", resp["chatKey"])
}

func TestCatalogRoute_Unknown(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	req := httptest.NewRequest(http.MethodPost, "/nope", strings.NewReader(`{}`))
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"unknown route","requestId":"req-42"}`, rec.Body.String())
}

func TestQuestionnaire_Initiate(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	msgs := messagesOf(t, post(t, s, "/questionnaire", `{}`))
	require.Len(t, msgs, 1)
	ev := msgs[0]
	assert.Equal(t, "QuestionnaireEvent", ev["_type"])
	assert.Equal(t, map[string]any{"url": "http://example.test/questionnaire/answered"}, ev["questionnaireAnsweredHook"])
	assert.Equal(t, map[string]any{"url": "http://example.test/questionnaire/aborted"}, ev["questionnaireAbortedHook"])
	questions := ev["questions"].([]any)
	require.Len(t, questions, 3)
	assert.Equal(t, "bot_or_agent", questions[0].(map[string]any)["name"])
}

func TestQuestionnaire_Answered(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		types []string
	}{
		{name: "bot", body: `{"answers":{"bot_or_agent":"YatraBot Please!","request":"is my flight on time?"}}`, types: []string{"TextMessage"}},
		{name: "human", body: `{"answers":{"bot_or_agent":"Human Agent Please"}}`, types: []string{"TextMessage", "HandoffToHumanEvent"}},
		{name: "mode missing", body: `{"answers":{"email":"me@example.com"}}`, types: []string{"TextMessage", "HandoffToHumanEvent"}},
		{name: "flat answers", body: `{"bot_or_agent":"YatraBot Please!"}`, types: []string{"TextMessage"}},
		{name: "no answers", body: `{}`, types: []string{"QuestionnaireEvent"}},
		{name: "garbled", body: `{"answers":`, types: []string{"QuestionnaireEvent"}},
		{name: "regex rejects", body: `{"answers":{"bot_or_agent":"YatraBot Please!","request":"x"}}`, types: []string{"TextMessage", "QuestionnaireEvent"}},
		{name: "bad email", body: `{"answers":{"bot_or_agent":"YatraBot Please!","email":"nope"}}`, types: []string{"TextMessage", "QuestionnaireEvent"}},
		{name: "unoffered mode", body: `{"answers":{"bot_or_agent":"Something else"}}`, types: []string{"TextMessage", "HandoffToHumanEvent"}},
		{name: "human ignores bad email", body: `{"answers":{"bot_or_agent":"Human Agent Please","email":"bad"}}`, types: []string{"TextMessage", "HandoffToHumanEvent"}},
		{name: "empty answers", body: `{"answers":{}}`, types: []string{"QuestionnaireEvent"}},
		{name: "display-name email", body: `{"answers":{"bot_or_agent":"YatraBot Please!","email":"Bob <bob@example.com>"}}`, types: []string{"TextMessage", "QuestionnaireEvent"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubReplier{msgs: []botkit.Message{botkit.NewTextMessage("stub reply")}}
			s := newTestServer(t, testConfig(), stub)
			msgs := messagesOf(t, post(t, s, "/questionnaire/answered", tt.body))
			var got []string
			for _, m := range msgs {
				got = append(got, m["_type"].(string))
			}
			assert.Equal(t, tt.types, got)
		})
	}
}

func TestQuestionnaire_BotBranchUsesReplier(t *testing.T) {
	stub := &stubReplier{msgs: []botkit.Message{botkit.NewTextMessage("stub reply")}}
	s := newTestServer(t, testConfig(), stub)
	msgs := messagesOf(t, post(t, s, "/questionnaire/answered",
		`{"chatKey":"ck","answers":{"bot_or_agent":"YatraBot Please!","request":"is my flight on time?"}}`))
	require.Len(t, msgs, 1)
	assert.Equal(t, "stub reply", msgs[0]["text"])
	assert.Equal(t, "ck", stub.got.ChatKey)
	assert.Equal(t, "is my flight on time?", stub.got.Text)
	assert.Equal(t, "YatraBot Please!", stub.got.Answers["bot_or_agent"])
}

func TestQuestionnaire_BotBranchFallsBack(t *testing.T) {
	stub := &stubReplier{err: errors.New("upstream down")}
	s := newTestServer(t, testConfig(), stub)
	msgs := messagesOf(t, post(t, s, "/questionnaire/answered", `{"answers":{"bot_or_agent":"YatraBot Please!"}}`))
	require.NotEmpty(t, msgs)
	assert.Equal(t, "Great, YatraBot here!", msgs[0]["text"])
}

func TestQuestionnaire_Aborted(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	msgs := messagesOf(t, post(t, s, "/questionnaire/aborted", `{}`))
	require.Len(t, msgs, 1)
	assert.Equal(t, "TextMessage", msgs[0]["_type"])
}

func TestMessageLogger(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := post(t, s, "/logger", `{"chatKey":"ck","messages":[{"_type":"TextMessage","text":"hi"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"botkitVersion":"0.3.0"}`, rec.Body.String())
	post(t, s, "/logger", `{"chatKey":"other"}`)

	assert.Equal(t, http.StatusBadRequest, post(t, s, "/logger", `{"chatKey":`).Code)

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/logs?chatKey=ck", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Entries []store.Entry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Entries, 1)
	assert.Equal(t, "ck", out.Entries[0].ChatKey)
	assert.JSONEq(t, `{"chatKey":"ck","messages":[{"_type":"TextMessage","text":"hi"}]}`, string(out.Entries[0].Body))

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/logs?chatKey=none", nil))
	assert.JSONEq(t, `{"entries":[]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/logs?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	post(t, s, "/locked", `{}`)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `botkit_webhook_responses_total{outcome="ok",route="locked"} 1`)
	assert.Contains(t, body, `botkit_handshake_transitions_total{handshake="login",state="locked"} 1`)
}

func TestNewServer_RequiresCatalog(t *testing.T) {
	_, err := NewServer(testConfig(), Deps{})
	assert.Error(t, err)
}

func linkQuery(redirectURI string) string {
	v := url.Values{}
	v.Set("redirect_uri", redirectURI)
	v.Set("account_linking_token", "ALT123")
	return v.Encode()
}
