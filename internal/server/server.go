package server

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/oauth2"

	"botkit-webhooks/internal/assistant"
	"botkit-webhooks/internal/botkit"
	"botkit-webhooks/internal/catalog"
	"botkit-webhooks/internal/config"
	"botkit-webhooks/internal/handshake"
	"botkit-webhooks/internal/logctx"
	"botkit-webhooks/internal/store"
	"botkit-webhooks/internal/types"
)

// BotChoice is the bot_or_agent answer that selects the automated reply.
const BotChoice = "YatraBot Please!"

// Deps are the collaborators built by the caller.
type Deps struct {
	Catalog  *catalog.Store
	Messages store.MessageLog
	// Replier answers the bot branch; nil uses canned replies.
	Replier assistant.Replier
	Logger  *slog.Logger
}

type Server struct {
	router        *chi.Mux
	cfg           config.Config
	log           *slog.Logger
	catalog       *catalog.Store
	messages      store.MessageLog
	replier       assistant.Replier
	fallback      assistant.Replier
	questionnaire handshake.Questionnaire
	selector      handshake.ModeSelector
	oauthCfg      *oauth2.Config
	stateKey      []byte
	loginPage     *template.Template
	registry      *prometheus.Registry
	metrics       *metrics
}

func NewServer(cfg config.Config, deps Deps) (*Server, error) {
	if deps.Catalog == nil {
		return nil, fmt.Errorf("route catalog is required")
	}
	if deps.Messages == nil {
		deps.Messages = store.NewMemoryLog(cfg.MessageLogLimit)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	fallback := assistant.StaticReplier{}
	if deps.Replier == nil {
		deps.Replier = fallback
	}

	q, err := newSupportQuestionnaire(cfg.PublicURL)
	if err != nil {
		return nil, fmt.Errorf("failed to build questionnaire: %w", err)
	}

	page, err := template.ParseFS(templates, "templates/login.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse login page: %w", err)
	}

	stateKey := []byte(cfg.StateSecret)
	if len(stateKey) == 0 {
		stateKey = make([]byte, 32)
		if _, err := rand.Read(stateKey); err != nil {
			return nil, fmt.Errorf("failed to generate state key: %w", err)
		}
	}

	var oCfg *oauth2.Config
	if cfg.OAuthEnabled() {
		oCfg = &oauth2.Config{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			RedirectURL:  cfg.OAuthRedirectURL,
			Scopes:       cfg.OAuthScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.OAuthAuthURL,
				TokenURL: cfg.OAuthTokenURL,
			},
		}
	}

	reg := prometheus.NewRegistry()
	r := chi.NewRouter()
	s := &Server{
		router:        r,
		cfg:           cfg,
		log:           deps.Logger,
		catalog:       deps.Catalog,
		messages:      deps.Messages,
		replier:       deps.Replier,
		fallback:      fallback,
		questionnaire: q,
		selector:      handshake.ModeSelector{Question: "bot_or_agent", BotChoice: BotChoice},
		oauthCfg:      oCfg,
		stateKey:      stateKey,
		loginPage:     page,
		registry:      reg,
		metrics:       newMetrics(reg),
	}

	r.Use(middleware.Recoverer)
	r.Use(s.requestContext)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{cfg.AllowedOrigin},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	s.routes()
	return s, nil
}

// newSupportQuestionnaire builds the contact-support questionnaire. Its
// hooks call back into this service.
func newSupportQuestionnaire(publicURL string) (handshake.Questionnaire, error) {
	mode, err := botkit.NewMultiChoiceQuestion("bot_or_agent", "Who would you like to talk to?", BotChoice, "Human Agent Please")
	if err != nil {
		return handshake.Questionnaire{}, err
	}
	email, err := botkit.NewEmailQuestion("email", "What is your email address?")
	if err != nil {
		return handshake.Questionnaire{}, err
	}
	request, err := botkit.NewOpenQuestion("request", "How can we help you today?", `(?s).{2,500}`)
	if err != nil {
		return handshake.Questionnaire{}, err
	}
	base := strings.TrimRight(publicURL, "/")
	return handshake.NewQuestionnaire(
		botkit.HookURL(base+"/questionnaire/answered"),
		[]botkit.Question{mode, email, request},
		botkit.WithAbortedHook(botkit.HookURL(base+"/questionnaire/aborted")),
	)
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/webhooks", s.handleWebhooks)
	s.router.Get("/api/logs", s.handleListLogs)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	// Demo login page and its optional upstream OAuth flow
	s.router.Get("/dl", s.handleLoginPage)
	s.router.Post("/dl", s.handleLoginPage)
	s.router.Get("/dl/oauth", s.handleLoginOAuth)
	s.router.Get("/dl/callback", s.handleLoginCallback)
	// Webhooks
	s.router.Post("/logger", s.handleMessageLogger)
	s.router.Post("/questionnaire", s.handleQuestionnaire)
	s.router.Post("/questionnaire/answered", s.handleQuestionnaireAnswered)
	s.router.Post("/questionnaire/aborted", s.handleQuestionnaireAborted)
	s.router.Post("/{route}", s.handleCatalogRoute)
}

func (s *Server) Router() http.Handler { return s.router }

// requestContext tags the request with an id and records its duration.
func (s *Server) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		ctx := logctx.WithRequestData(r.Context(), &logctx.RequestData{
			RequestID:  id,
			Method:     r.Method,
			Path:       r.URL.Path,
			RemoteAddr: r.RemoteAddr,
		})
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))

		route := "unmatched"
		if rc := chi.RouteContext(ctx); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		s.metrics.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		s.log.DebugContext(ctx, "[http] served", slog.Duration("elapsed", time.Since(start)))
	})
}

// GET /api/health
// Reports 503 when the message log backend is unreachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := types.HealthResponse{Status: "ok", BotkitVersion: botkit.LatestVersion}
	code := http.StatusOK
	if hc, ok := s.messages.(store.HealthChecker); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := hc.HealthCheck(ctx); err != nil {
			s.log.WarnContext(r.Context(), "[health] message log unavailable", slog.String("err", err.Error()))
			resp.Status = "unavailable"
			code = http.StatusServiceUnavailable
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

// GET /api/webhooks
// Lists the webhook names a hook may target, for platform configuration.
func (s *Server) handleWebhooks(w http.ResponseWriter, r *http.Request) {
	names := botkit.WebhookNames()
	resp := types.WebhooksResponse{Webhooks: make([]string, 0, len(names))}
	for _, n := range names {
		resp.Webhooks = append(resp.Webhooks, string(n))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// writeReply encodes resp in full before writing anything, so a failure
// never leaves a partial body.
func (s *Server) writeReply(w http.ResponseWriter, r *http.Request, route string, resp botkit.Response) {
	body, err := botkit.Encode(resp)
	if err != nil {
		s.metrics.responses.WithLabelValues(route, "encode_error").Inc()
		s.log.ErrorContext(r.Context(), "[botkit] failed to encode reply", slog.String("route", route), slog.String("err", err.Error()))
		s.writeError(w, r, http.StatusInternalServerError, "failed to encode reply")
		return
	}
	s.metrics.responses.WithLabelValues(route, "ok").Inc()
	if ev, ok := botkit.Interactive(resp.Messages); ok {
		s.log.DebugContext(r.Context(), "[botkit] reply starts a handshake",
			slog.String("route", route), slog.String("event", ev.Type()), slog.String("hook", replyHook(ev).Target()))
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

// replyHook is the hook the platform calls when the handshake completes.
func replyHook(ev botkit.InteractiveEvent) botkit.Hook {
	switch e := ev.(type) {
	case botkit.LoginOAuthEvent:
		return e.LoginSuccessHook
	case botkit.QuestionnaireEvent:
		return e.QuestionnaireAnsweredHook
	}
	return botkit.Hook{}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, RequestID: logctx.RequestID(r.Context())})
}
