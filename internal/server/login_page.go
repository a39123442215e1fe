package server

import (
	"context"
	"crypto/rand"
	"embed"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

//go:embed templates/*.html
var templates embed.FS

const stateTTL = 10 * time.Minute

type loginPageData struct {
	Messages     []string
	Action       string
	CancelAction string
	OAuthURL     string
}

// linkClaims carry the account-linking parameters through the OAuth round
// trip, so the callback needs no server-side session.
type linkClaims struct {
	RedirectURI  string `json:"redirect_uri"`
	LinkingToken string `json:"account_linking_token"`
	jwt.RegisteredClaims
}

// GET|POST /dl?redirect_uri=...&account_linking_token=...
// A username/password page for the login handshake. Success redirects to
// redirect_uri with an authorization_code; ?canceled redirects back as is.
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	redirectURI := q.Get("redirect_uri")
	linkingToken := q.Get("account_linking_token")

	var messages []string
	if redirectURI == "" {
		messages = append(messages, "Expected to find 'redirect_uri' in the query parameters")
	}
	if linkingToken == "" {
		messages = append(messages, "Expected to find 'account_linking_token' in the query parameters")
	}

	if r.Method == http.MethodPost {
		if q.Has("canceled") {
			messages = append(messages, "Canceled!")
			if redirectURI != "" && isHTTPURL(redirectURI) {
				s.log.InfoContext(r.Context(), "[login] canceled")
				http.Redirect(w, r, redirectURI, http.StatusFound)
				return
			}
		} else if s.checkDemoCredentials(r.PostFormValue("username"), r.PostFormValue("password")) {
			messages = append(messages, "Success!")
			if redirectURI != "" {
				if target, err := s.withAuthorizationCode(redirectURI); err == nil {
					s.log.InfoContext(r.Context(), "[login] demo credentials accepted")
					http.Redirect(w, r, target, http.StatusFound)
					return
				}
				messages = append(messages, "The redirect_uri is not a valid http(s) URL")
			}
		} else {
			messages = append(messages, fmt.Sprintf("Invalid Username/Password. Use %q and %q for a successful login, or click Cancel.",
				s.cfg.DemoUsername, s.cfg.DemoPassword))
		}
	}

	link := url.Values{}
	link.Set("redirect_uri", redirectURI)
	link.Set("account_linking_token", linkingToken)
	data := loginPageData{
		Messages:     messages,
		Action:       "/dl?" + link.Encode(),
		CancelAction: "/dl?" + link.Encode() + "&canceled=1",
	}
	if s.oauthCfg != nil {
		data.OAuthURL = "/dl/oauth?" + link.Encode()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.loginPage.Execute(w, data); err != nil {
		s.log.ErrorContext(r.Context(), "[login] render failed", slog.String("err", err.Error()))
	}
}

// GET /dl/oauth?redirect_uri=...&account_linking_token=...
func (s *Server) handleLoginOAuth(w http.ResponseWriter, r *http.Request) {
	if s.oauthCfg == nil {
		s.writeError(w, r, http.StatusNotFound, "oauth login not configured")
		return
	}
	redirectURI := r.URL.Query().Get("redirect_uri")
	linkingToken := r.URL.Query().Get("account_linking_token")
	if !isHTTPURL(redirectURI) || linkingToken == "" {
		s.writeError(w, r, http.StatusBadRequest, "redirect_uri and account_linking_token are required")
		return
	}
	state, err := s.signState(redirectURI, linkingToken, time.Now())
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "failed to sign state")
		return
	}
	http.Redirect(w, r, s.oauthCfg.AuthCodeURL(state), http.StatusFound)
}

// GET /dl/callback?code=...&state=...
// Exchanges the code with the provider and sends the user back to the
// platform.
func (s *Server) handleLoginCallback(w http.ResponseWriter, r *http.Request) {
	if s.oauthCfg == nil {
		s.writeError(w, r, http.StatusNotFound, "oauth login not configured")
		return
	}
	q := r.URL.Query()
	claims, err := s.parseState(q.Get("state"))
	if err != nil {
		s.log.WarnContext(r.Context(), "[login] rejected oauth state", slog.String("err", err.Error()))
		s.writeError(w, r, http.StatusBadRequest, "invalid oauth state")
		return
	}
	if q.Get("error") != "" {
		// The user declined at the provider; same as canceling the form.
		http.Redirect(w, r, claims.RedirectURI, http.StatusFound)
		return
	}
	code := q.Get("code")
	if code == "" {
		s.writeError(w, r, http.StatusBadRequest, "missing code")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	if _, err := s.oauthCfg.Exchange(ctx, code); err != nil {
		s.log.WarnContext(r.Context(), "[login] token exchange failed", slog.String("err", err.Error()))
		s.writeError(w, r, http.StatusBadGateway, "token exchange failed")
		return
	}
	target, err := s.withAuthorizationCode(claims.RedirectURI)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid redirect_uri")
		return
	}
	s.log.InfoContext(r.Context(), "[login] oauth login completed")
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) checkDemoCredentials(username, password string) bool {
	return strings.EqualFold(strings.TrimSpace(username), s.cfg.DemoUsername) &&
		strings.EqualFold(strings.TrimSpace(password), s.cfg.DemoPassword)
}

func (s *Server) signState(redirectURI, linkingToken string, now time.Time) (string, error) {
	claims := linkClaims{
		RedirectURI:  redirectURI,
		LinkingToken: linkingToken,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.stateKey)
}

func (s *Server) parseState(state string) (*linkClaims, error) {
	if state == "" {
		return nil, fmt.Errorf("missing state")
	}
	claims := &linkClaims{}
	_, err := jwt.ParseWithClaims(state, claims, func(*jwt.Token) (any, error) {
		return s.stateKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !isHTTPURL(claims.RedirectURI) {
		return nil, fmt.Errorf("state carries no usable redirect_uri")
	}
	return claims, nil
}

// withAuthorizationCode appends a fresh authorization_code to redirectURI.
func (s *Server) withAuthorizationCode(redirectURI string) (string, error) {
	if !isHTTPURL(redirectURI) {
		return "", fmt.Errorf("redirect_uri must be an absolute http(s) URL")
	}
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", err
	}
	code, err := randomCode(5)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("authorization_code", code)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomCode(n int) (string, error) {
	b := make([]byte, n)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[idx.Int64()]
	}
	return string(b), nil
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
