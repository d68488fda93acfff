package http

import (
	"net/http"
	"strings"
	"time"

	applog "expensetracker/internal/log"
	"expensetracker/internal/session"
)

const sessionCookie = "session_id"

// requireSession rejects requests without a live session cookie.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookie)
		if err != nil || c.Value == "" {
			writeError(w, http.StatusUnauthorized, "login required")
			return
		}
		sess, ok := s.sessions.Lookup(c.Value)
		if !ok {
			s.clearSessionCookie(w)
			writeError(w, http.StatusUnauthorized, "session expired")
			return
		}
		// The registry slides the expiry, so the cookie follows it.
		s.setSessionCookie(w, sess)
		ctx := session.WithSession(r.Context(), sess)
		ctx = applog.NewContext(ctx, applog.FromContext(ctx).With(applog.FieldUserID, sess.UserID))
		next(w, r.WithContext(ctx))
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ok, err := s.ledger.Authenticate(r.Context(), req.UserID, req.Password)
	if err != nil {
		s.events.LogError(r.Context(), "Authentication failed", err, applog.OpLogin, nil)
		writeError(w, http.StatusInternalServerError, "could not verify credentials")
		return
	}
	if !ok {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Login rejected",
			applog.FieldClientIP, s.detector.ExtractClientIP(r))
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	sess := s.sessions.Create(req.UserID)
	s.setSessionCookie(w, sess)
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Login succeeded", applog.FieldUserID, sess.UserID)
	writeJSON(w, http.StatusOK, sessionJSON(sess))
}

// handleSession reports the caller's userid and session expiry.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "login required")
		return
	}
	writeJSON(w, http.StatusOK, sessionJSON(sess))
}

func sessionJSON(sess session.Session) map[string]any {
	return map[string]any{
		"userid":     sess.UserID,
		"expires_at": sess.ExpiresAt,
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		s.sessions.Revoke(c.Value)
	}
	s.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleSetCredential replaces the stored credential and ends every session.
func (s *Server) handleSetCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	userid := sanitizeInput(req.UserID)
	if userid == "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "userid must not be empty", Field: "userid"})
		return
	}
	if strings.TrimSpace(req.Password) == "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "password must not be empty", Field: "password"})
		return
	}

	if err := s.ledger.SetCredential(r.Context(), userid, req.Password); err != nil {
		s.events.LogError(r.Context(), "Failed to update credential", err, applog.OpUpdate, nil)
		writeError(w, http.StatusInternalServerError, "could not update credential")
		return
	}
	revoked := s.sessions.RevokeAll()
	s.clearSessionCookie(w)
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Credential updated",
		applog.FieldUserID, userid, "sessions_revoked", revoked)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, sess session.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
