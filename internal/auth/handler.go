package auth

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"budgetbook/internal/cache"
)

const (
	LoginPath    = "/auth/login"
	CallbackPath = "/auth/callback"
	ErrorPath    = "/auth/error"
	LogoutPath   = "/auth/logout"

	// DefaultNext is where a successful sign-in lands without a next path.
	DefaultNext = "/dashboard"

	SessionCookie = "bb_session"
	stateCookie   = "bb_oauth_state"
	stateTTL      = 10 * time.Minute
)

// SafeNext returns next when it is a local absolute path, DefaultNext
// otherwise. Protocol-relative ("//host") and backslash forms are refused.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.ContainsAny(next, "\\\r\n") {
		return DefaultNext
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return DefaultNext
	}
	return next
}

// Sessions maps opaque cookie tokens to users.
type Sessions struct {
	store *cache.LRUCache[User]
}

func NewSessions(maxSessions int, ttl time.Duration) *Sessions {
	return &Sessions{store: cache.NewLRUCache[User](maxSessions, ttl)}
}

// Cache exposes the session store for expiry sweeping.
func (s *Sessions) Cache() *cache.LRUCache[User] { return s.store }

func (s *Sessions) Create(u User) string {
	token := uuid.NewString()
	s.store.Set(token, u)
	return token
}

func (s *Sessions) Lookup(token string) (User, bool) {
	if token == "" {
		return User{}, false
	}
	return s.store.Get(token)
}

func (s *Sessions) Revoke(token string) { s.store.Delete(token) }

type ctxKey struct{}

// UserFromContext returns the user attached by RequireSession.
func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(ctxKey{}).(User)
	return u, ok
}

// Hooks connect sign-in and sign-out to the rest of the application.
type Hooks struct {
	// SignIn runs after a successful code exchange.
	SignIn func(ctx context.Context, u User) error
	// SignOut runs before the session is dropped.
	SignOut func(ctx context.Context) error
}

type Handler struct {
	provider Provider
	sessions *Sessions
	hooks    Hooks
	secure   bool
}

func NewHandler(provider Provider, sessions *Sessions, hooks Hooks, secureCookies bool) *Handler {
	return &Handler{provider: provider, sessions: sessions, hooks: hooks, secure: secureCookies}
}

// Register mounts the auth routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+LoginPath, h.handleLogin)
	mux.HandleFunc("GET "+CallbackPath, h.handleCallback)
	mux.HandleFunc("GET "+ErrorPath, h.handleError)
	mux.HandleFunc("POST "+LogoutPath, h.handleLogout)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	next := SafeNext(r.URL.Query().Get("next"))
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state + "|" + url.QueryEscape(next),
		Path:     "/auth",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
}

func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	if e := q.Get("error"); e != "" {
		h.fail(w, r, "provider_error", errors.New(e))
		return
	}
	code := q.Get("code")
	if code == "" {
		h.fail(w, r, "missing_code", ErrMissingCode)
		return
	}

	next := q.Get("next")
	c, err := r.Cookie(stateCookie)
	switch {
	case err == nil:
		state, savedNext, _ := strings.Cut(c.Value, "|")
		if state == "" || state != q.Get("state") {
			h.fail(w, r, "invalid_state", ErrStateInvalid)
			return
		}
		if next == "" {
			next, _ = url.QueryUnescape(savedNext)
		}
		http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/auth", MaxAge: -1})
	case h.provider.RequiresState():
		h.fail(w, r, "missing_state", ErrStateInvalid)
		return
	}

	user, err := h.provider.Exchange(ctx, code)
	if err != nil {
		h.fail(w, r, "exchange_failed", err)
		return
	}
	if h.hooks.SignIn != nil {
		if err := h.hooks.SignIn(ctx, user); err != nil {
			h.fail(w, r, "sign_in_failed", err)
			return
		}
	}

	token := h.sessions.Create(user)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	slog.InfoContext(ctx, "User signed in", "user_id", user.ID)
	http.Redirect(w, r, SafeNext(next), http.StatusFound)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, reason string, err error) {
	slog.WarnContext(r.Context(), "Sign-in failed", "reason", reason, "error", err)
	http.Redirect(w, r, ErrorPath+"?"+url.Values{"reason": {reason}}.Encode(), http.StatusFound)
}

var errorPage = template.Must(template.New("auth-error").Parse(`<!doctype html>
<html><head><title>Sign-in failed</title></head>
<body><main>
<h1>Sign-in failed</h1>
<p>We could not sign you in{{if .}} ({{.}}){{end}}.</p>
<p><a href="` + LoginPath + `">Try again</a></p>
</main></body></html>`))

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	if err := errorPage.Execute(w, r.URL.Query().Get("reason")); err != nil {
		slog.ErrorContext(r.Context(), "Failed to render auth error page", "error", err)
	}
}

// handleLogout runs the sign-out hook only for a live session. Requests
// without one just lose whatever cookie they carried.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var token string
	if c, err := r.Cookie(SessionCookie); err == nil {
		token = c.Value
	}
	if user, ok := h.sessions.Lookup(token); ok {
		if h.hooks.SignOut != nil {
			if err := h.hooks.SignOut(ctx); err != nil {
				slog.ErrorContext(ctx, "Sign-out hook failed", "error", err)
				http.Error(w, "Sign-out failed", http.StatusInternalServerError)
				return
			}
		}
		h.sessions.Revoke(token)
		slog.InfoContext(ctx, "User signed out", "user_id", user.ID)
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Path: "/", MaxAge: -1})

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", LoginPath)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

// RequireSession rejects requests without a live session. Browsers are sent
// to the login page; API and HTMX callers get 401.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var user User
		ok := false
		if c, err := r.Cookie(SessionCookie); err == nil {
			user, ok = h.sessions.Lookup(c.Value)
		}
		if !ok {
			if strings.HasPrefix(r.URL.Path, "/api/") || r.Header.Get("HX-Request") == "true" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			target := LoginPath + "?" + url.Values{"next": {r.URL.RequestURI()}}.Encode()
			http.Redirect(w, r, target, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, user)))
	})
}
