package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/arkline/erp-api/internal/domain/identity"
	"github.com/arkline/erp-api/internal/service"
)

// SessionCookieName is the cookie carrying the opaque session id.
const SessionCookieName = "arkline_session"

type contextKey string

const sessionContextKey contextKey = "session"

// SessionFromContext returns the session placed by RequireSession, if any.
func SessionFromContext(ctx context.Context) (identity.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey).(identity.Session)
	return sess, ok
}

func withSession(ctx context.Context, sess identity.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// Logging logs one line per request.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &respWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover converts panics into 500s and logs the stack.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// SessionChecker is the auth surface the middleware needs.
type SessionChecker interface {
	CheckAuth(ctx context.Context, sessionID string) (*service.CheckResult, error)
}

// RequireSession validates the session cookie through the auth checker and
// places the session in the request context. The fresh profile, when the
// check was not degraded, supersedes the session's own role.
func RequireSession(checker SessionChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := checkRequest(r, checker)
			if err != nil {
				writeAuthError(w, err)
				return
			}
			sess := res.Session
			if res.Profile != nil {
				sess.Role = res.Profile.Role
			}
			next.ServeHTTP(w, r.WithContext(withSession(r.Context(), sess)))
		})
	}
}

// RequireRole layers a role gate on top of RequireSession. Admins pass every
// gate.
func RequireRole(checker SessionChecker, role identity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return RequireSession(checker)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, _ := SessionFromContext(r.Context())
			if sess.Role != role && sess.Role != identity.RoleAdmin {
				WriteError(w, ErrorParams{
					Code:    http.StatusForbidden,
					ErrCode: "insufficient_permissions",
					Err:     errors.New("insufficient permissions"),
				})
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

func checkRequest(r *http.Request, checker SessionChecker) (*service.CheckResult, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil, service.ErrUnauthenticated
	}
	return checker.CheckAuth(r.Context(), cookie.Value)
}

func writeAuthError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrUnauthenticated) {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return
	}
	WriteAppError(w, err)
}
