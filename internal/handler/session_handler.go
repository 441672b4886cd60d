package handler

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/prn-tf/sigil/internal/domain"
	"github.com/prn-tf/sigil/internal/service"
	"github.com/prn-tf/sigil/internal/session"
)

// maxLoginBody bounds the login request body.
const maxLoginBody = 4 << 10

// SessionHandler serves admin login, logout and session checks.
type SessionHandler struct {
	sessionService *service.SessionService
	secureCookies  bool
	logger         zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler. secureCookies sets the
// Secure attribute on the session cookie and should be true in production.
func NewSessionHandler(sessionService *service.SessionService, secureCookies bool, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		secureCookies:  secureCookies,
		logger:         logger.With().Str("handler", "session").Logger(),
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

// Login handles POST /api/admin/login. The password is read from a JSON
// body or from the "password" form field.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	password, err := readPassword(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, okResponse{Error: "invalid request body"})
		return
	}

	output, err := h.sessionService.Login(r.Context(), service.LoginInput{Password: password})
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, okResponse{Error: "invalid password"})
		return
	case errors.Is(err, domain.ErrNotConfigured):
		writeJSON(w, http.StatusServiceUnavailable, okResponse{Error: "admin login is not configured"})
		return
	default:
		h.logger.Error().Err(err).Msg("login failed")
		writeJSON(w, http.StatusInternalServerError, okResponse{Error: "internal error"})
		return
	}

	http.SetCookie(w, session.NewCookie(output.Token, h.secureCookies))
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// Logout handles POST /api/admin/logout.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, session.ClearCookie(h.secureCookies))
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// Session handles GET /api/admin/session.
func (h *SessionHandler) Session(w http.ResponseWriter, r *http.Request) {
	claim := h.sessionService.GetAdminSession(session.TokenFromRequest(r))
	if claim == nil {
		writeJSON(w, http.StatusUnauthorized, domain.AdminClaim{IsAdmin: false})
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

func readPassword(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxLoginBody)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", err
		}
		return req.Password, nil
	}

	if err := r.ParseForm(); err != nil {
		return "", err
	}
	return r.PostFormValue("password"), nil
}
