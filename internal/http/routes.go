package httpx

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/arkline/erp-api/internal/domain/identity"
	"github.com/arkline/erp-api/internal/service"
)

// RouterServices holds everything the route table needs.
type RouterServices struct {
	Auth     *service.Reconciler
	Checker  *service.AuthChecker
	Invoices *service.InvoiceService
	Clients  *service.ClientService

	CookieDomain string
	CookieSecure bool
	Logger       *slog.Logger
}

// NewRouter builds the API handler with logging and panic recovery applied.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	authHandlers := &AuthHandlers{
		Auth:         services.Auth,
		Checker:      services.Checker,
		Ender:        services.Checker,
		CookieDomain: services.CookieDomain,
		CookieSecure: services.CookieSecure,
		Logger:       logger,
	}
	mux.Handle("POST /api/auth/login", http.HandlerFunc(authHandlers.Login))
	mux.Handle("POST /api/auth/register", http.HandlerFunc(authHandlers.Register))
	mux.Handle("POST /api/auth/logout", http.HandlerFunc(authHandlers.Logout))
	mux.Handle("GET /api/auth/status", http.HandlerFunc(authHandlers.Status))

	requireSession := RequireSession(services.Checker)
	requireStaff := RequireRole(services.Checker, identity.RoleStaff)

	mux.Handle("POST /api/auth/reset-password", requireStaff(http.HandlerFunc(authHandlers.ResetPassword)))

	invoiceHandlers := &InvoiceHandlers{Svc: services.Invoices}
	mux.Handle("POST /api/invoices", requireStaff(http.HandlerFunc(invoiceHandlers.Create)))
	mux.Handle("GET /api/invoices/{id}", requireSession(http.HandlerFunc(invoiceHandlers.Get)))
	mux.Handle("POST /api/invoices/{id}/send", requireStaff(http.HandlerFunc(invoiceHandlers.Send)))
	mux.Handle("GET /api/invoices/{id}/delivery", requireStaff(http.HandlerFunc(invoiceHandlers.Delivery)))

	clientHandlers := &ClientHandlers{Svc: services.Clients}
	mux.Handle("POST /api/clients", requireStaff(http.HandlerFunc(clientHandlers.Create)))

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	handler := Recover(logger)(mux)
	return Logging(logger)(handler)
}

const healthResponse = `{"status":"ok"}`

// healthHandler is the readiness/liveness probe.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, healthResponse); err != nil {
		// Nothing more to do if the client connection is gone.
		return
	}
}
