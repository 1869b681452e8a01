package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/eventhub/internal/auth"
	"github.com/sakif/eventhub/internal/service"
)

const stateCookieName = "oauth_state"

// AuthHandler manages registration, login, the GitHub OAuth flow and the
// session cookie.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister / HandleLogin → email+password accounts, JWT in body and cookie
//   - HandleGitHubLogin           → redirect the browser to GitHub's authorization page
//   - HandleGitHubCallback        → exchange the code, find/link/create the user, issue JWT
//   - HandleLogout                → clear the JWT cookie
//   - HandleMe                    → return the currently logged-in user
//
// github is nil when OAuth is not configured; the server then does not
// mount the /auth/github routes at all.
type AuthHandler struct {
	accounts     *service.AuthService
	tokens       *auth.TokenService
	github       *auth.GitHubProvider
	secureCookie bool
	logger       *slog.Logger
}

func NewAuthHandler(
	accounts *service.AuthService,
	tokens *auth.TokenService,
	github *auth.GitHubProvider,
	secureCookie bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		accounts:     accounts,
		tokens:       tokens,
		github:       github,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

// HTTP: POST /api/auth/register
// REQUEST BODY: {"username": "...", "email": "...", "password": "..."}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	res, err := h.accounts.Register(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	h.setTokenCookie(w, res.Token)
	writeJSON(w, http.StatusCreated, Envelope{Success: true, Token: res.Token, Data: res.User})
}

// HTTP: POST /api/auth/login
// REQUEST BODY: {"email": "...", "password": "..."}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	res, err := h.accounts.Login(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	h.setTokenCookie(w, res.Token)
	writeJSON(w, http.StatusOK, Envelope{Success: true, Token: res.Token, Data: res.User})
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state is stored in a short-lived HttpOnly cookie and sent to
// GitHub; the callback only proceeds if both come back equal.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a GitHub user profile
//  3. Log in, link by email, or create the account
//  4. Issue a JWT access token stored in an HttpOnly cookie
//  5. Redirect to the app home page
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || q.Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: invalid state")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid OAuth state"})
		return
	}

	// single-use
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := q.Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "missing OAuth code"})
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: "authentication failed"})
		return
	}

	res, err := h.accounts.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	h.setTokenCookie(w, res.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout clears the JWT cookie.
//
// HTTP: POST /auth/logout
//
// JWTs are stateless: the token stays valid until it expires, but without
// the cookie the browser no longer sends it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, Envelope{Success: true, Message: "logged out"})
}

// HandleMe returns the currently authenticated user.
//
// HTTP: GET /api/auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	user, err := h.accounts.CurrentUser(r.Context(), actor)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

// setTokenCookie stores the JWT for browser clients. API clients use the
// token from the response body with an Authorization header instead.
func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
