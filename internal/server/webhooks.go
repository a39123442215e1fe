package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"botkit-webhooks/internal/assistant"
	"botkit-webhooks/internal/botkit"
	"botkit-webhooks/internal/handshake"
	"botkit-webhooks/internal/logctx"
	"botkit-webhooks/internal/store"
	"botkit-webhooks/internal/types"
)

// POST /{route}
// Serves a catalog reply; gated routes answer with a login prompt until
// the continuation carries loginData.
func (s *Server) handleCatalogRoute(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "route")
	route, ok := s.catalog.Current().Route(name)
	if !ok {
		s.metrics.responses.WithLabelValues("catalog", "not_found").Inc()
		s.writeError(w, r, http.StatusNotFound, "unknown route")
		return
	}
	req := types.ParseContinuation(r)
	if route.Gate != nil {
		ctx := logctx.WithHandshakeData(r.Context(), &logctx.HandshakeData{Name: "login", ChatKey: req.ChatKey})
		state := route.Gate.State(req)
		s.metrics.handshakes.WithLabelValues("login", state.String()).Inc()
		s.log.InfoContext(ctx, "[login] continuation", slog.String("route", name), slog.String("state", state.String()))
	}
	resp := botkit.NewResponse(route.Respond(req)...)
	resp.ChatKey = req.ChatKey
	s.writeReply(w, r, name, resp)
}

// POST /questionnaire
func (s *Server) handleQuestionnaire(w http.ResponseWriter, r *http.Request) {
	req := types.ParseContinuation(r)
	resp := botkit.NewResponse(s.questionnaire.Ask(nil)...)
	resp.ChatKey = req.ChatKey
	s.writeReply(w, r, "questionnaire", resp)
}

// POST /questionnaire/answered
// Re-asks when nothing usable was posted. Otherwise routes on
// bot_or_agent; only the bot branch validates the remaining answers.
func (s *Server) handleQuestionnaireAnswered(w http.ResponseWriter, r *http.Request) {
	req := types.ParseContinuation(r)
	ctx := logctx.WithHandshakeData(r.Context(), &logctx.HandshakeData{Name: "questionnaire", ChatKey: req.ChatKey})

	respond := func(state string, msgs []botkit.Message) {
		s.metrics.handshakes.WithLabelValues("questionnaire", state).Inc()
		s.log.InfoContext(ctx, "[questionnaire] continuation", slog.String("state", state))
		resp := botkit.NewResponse(msgs...)
		resp.ChatKey = req.ChatKey
		s.writeReply(w, r.WithContext(ctx), "questionnaire_answered", resp)
	}

	answers, ok := s.questionnaire.ReadAnswers(req)
	if !ok {
		respond("reask", s.questionnaire.Ask(nil))
		return
	}
	// Any answer other than the bot choice goes to an agent, whatever the
	// other answers look like.
	if s.selector.Select(answers) == handshake.ModeHuman {
		respond("human", []botkit.Message{
			botkit.NewTextMessage("I will try to transfer you to an agent!"),
			botkit.NewHandoffToHumanEvent(),
		})
		return
	}
	if problems := s.questionnaire.Check(answers); len(problems) > 0 {
		respond("invalid", s.questionnaire.Ask(problems))
		return
	}

	areq := assistant.Request{ChatKey: req.ChatKey, Answers: map[string]string{}}
	for name := range answers {
		if v, ok := answers.String(name); ok {
			areq.Answers[name] = v
		}
	}
	areq.Text = areq.Answers["request"]
	msgs, err := s.replier.Reply(ctx, areq)
	if err != nil {
		s.log.WarnContext(ctx, "[assistant] reply failed, using canned reply", slog.String("err", err.Error()))
		msgs, _ = s.fallback.Reply(ctx, areq)
	}
	respond("bot", msgs)
}

// POST /questionnaire/aborted
func (s *Server) handleQuestionnaireAborted(w http.ResponseWriter, r *http.Request) {
	req := types.ParseContinuation(r)
	ctx := logctx.WithHandshakeData(r.Context(), &logctx.HandshakeData{Name: "questionnaire", ChatKey: req.ChatKey})
	s.metrics.handshakes.WithLabelValues("questionnaire", "aborted").Inc()
	s.log.InfoContext(ctx, "[questionnaire] aborted")
	resp := botkit.NewResponse(botkit.NewTextMessage("No problem. Ask me anything else whenever you are ready."))
	resp.ChatKey = req.ChatKey
	s.writeReply(w, r, "questionnaire_aborted", resp)
}

// POST /logger
// The message_logger webhook: stores the raw body, replies with an empty
// message list.
func (s *Server) handleMessageLogger(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil || !json.Valid(body) {
		s.writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	var head struct {
		ChatKey string `json:"chatKey"`
	}
	_ = json.Unmarshal(body, &head)

	if _, err := s.messages.Append(r.Context(), store.Entry{ChatKey: head.ChatKey, Body: body}); err != nil {
		s.log.ErrorContext(r.Context(), "[logger] append failed", slog.String("err", err.Error()))
		s.writeError(w, r, http.StatusInternalServerError, "failed to store message")
		return
	}
	s.metrics.logged.Inc()
	s.writeReply(w, r, "logger", botkit.NewResponse())
}

// GET /api/logs?chatKey=...&limit=...
func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	entries, err := s.messages.Recent(r.Context(), r.URL.Query().Get("chatKey"), limit)
	if err != nil {
		s.log.ErrorContext(r.Context(), "[logger] list failed", slog.String("err", err.Error()))
		s.writeError(w, r, http.StatusInternalServerError, "failed to list messages")
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"entries": entries})
}
