package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/arkline/erp-api/internal/domain/identity"
	"github.com/arkline/erp-api/internal/service"
)

// Authenticator is the login/registration surface the handlers need.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*service.AuthenticateResult, error)
	Register(ctx context.Context, in service.RegisterInput) (*identity.StaffProfile, error)
	ResetPassword(ctx context.Context, email, newPassword string) error
}

// SessionEnder ends sessions on logout.
type SessionEnder interface {
	Logout(ctx context.Context, sess identity.Session) error
}

// AuthHandlers serves login, registration, logout, and the session status
// probe the frontend polls on navigation.
type AuthHandlers struct {
	Auth         Authenticator
	Checker      SessionChecker
	Ender        SessionEnder
	CookieDomain string
	CookieSecure bool
	Logger       *slog.Logger
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type identityResponse struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Role      string  `json:"role"`
	CompanyID *string `json:"company_id,omitempty"`
	FirstName string  `json:"first_name,omitempty"`
	LastName  string  `json:"last_name,omitempty"`
}

func identityPayload(id identity.ReconciledIdentity) identityResponse {
	return identityResponse{
		ID:        id.ProfileID,
		Email:     id.Email,
		Role:      string(id.Role),
		CompanyID: id.CompanyID,
		FirstName: id.FirstName,
		LastName:  id.LastName,
	}
}

// Login handles POST /api/auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	res, err := h.Auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	h.setSessionCookie(w, res.Session)
	WriteJSON(w, http.StatusOK, map[string]any{"user": identityPayload(res.Identity)})
}

type registerRequest struct {
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	Role      string  `json:"role,omitempty"`
	FirstName string  `json:"first_name,omitempty"`
	LastName  string  `json:"last_name,omitempty"`
	JobTitle  *string `json:"job_title,omitempty"`
	CompanyID *string `json:"company_id,omitempty"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	profile, err := h.Auth.Register(r.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		Role:      identity.Role(req.Role),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		JobTitle:  req.JobTitle,
		CompanyID: req.CompanyID,
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"user": profile})
}

type resetPasswordRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ResetPassword handles POST /api/auth/reset-password: a staff-initiated
// credential reset for any account.
func (h *AuthHandlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := h.Auth.ResetPassword(r.Context(), req.Email, req.Password); err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "password_reset"})
}

// Logout handles POST /api/auth/logout. Logging out without a session is not
// an error.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		res, checkErr := h.Checker.CheckAuth(r.Context(), cookie.Value)
		if checkErr == nil {
			if endErr := h.Ender.Logout(r.Context(), res.Session); endErr != nil {
				h.logger().WarnContext(r.Context(), "logout cleanup failed", "err", endErr)
			}
		}
	}
	h.clearSessionCookie(w)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Status handles GET /api/auth/status: the navigation-time "am I still
// signed in" probe. Degraded reports profile staleness, not invalidity.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	res, err := checkRequest(r, h.Checker)
	if err != nil {
		h.clearSessionCookie(w)
		writeAuthError(w, err)
		return
	}

	payload := map[string]any{
		"authenticated": true,
		"degraded":      res.Degraded,
	}
	if res.Profile != nil {
		payload["user"] = identityPayload(*res.Profile)
	} else {
		payload["user"] = identityResponse{
			ID:        res.Session.UserID,
			Email:     res.Session.Email,
			Role:      string(res.Session.Role),
			FirstName: res.Session.FirstName,
			LastName:  res.Session.LastName,
		}
	}
	WriteJSON(w, http.StatusOK, payload)
}

func (h *AuthHandlers) setSessionCookie(w http.ResponseWriter, sess identity.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		Domain:   h.CookieDomain,
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.CookieDomain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
