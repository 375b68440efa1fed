package httpx

import (
	"net/http"
	"time"

	"github.com/arkline/erp-api/internal/domain/billing"
	"github.com/arkline/erp-api/internal/service"
)

// InvoiceHandlers serves invoice creation, lookup, re-send, and the delivery
// status probe.
type InvoiceHandlers struct {
	Svc *service.InvoiceService
}

type createInvoiceRequest struct {
	ClientID  string                  `json:"client_id"`
	CompanyID string                  `json:"company_id,omitempty"`
	DueAt     *time.Time              `json:"due_at,omitempty"`
	Notify    bool                    `json:"notify"`
	Snapshot  billing.InvoiceSnapshot `json:"snapshot"`
}

// Create handles POST /api/invoices. The response reports whether the
// notification was queued; a queue failure still returns 201 because the
// invoice write committed.
func (h *InvoiceHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	res, err := h.Svc.Create(r.Context(), service.CreateInvoiceInput{
		ClientID:  req.ClientID,
		CompanyID: req.CompanyID,
		Snapshot:  req.Snapshot,
		DueAt:     req.DueAt,
		Notify:    req.Notify,
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{
		"invoice":             res.Invoice,
		"notification_queued": res.Queued,
	})
}

// Get handles GET /api/invoices/{id}.
func (h *InvoiceHandlers) Get(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"invoice": inv})
}

// Send handles POST /api/invoices/{id}/send: queues a fresh dispatch for an
// existing invoice.
func (h *InvoiceHandlers) Send(w http.ResponseWriter, r *http.Request) {
	dispatch, err := h.Svc.Send(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]any{"dispatch": dispatch})
}

// Delivery handles GET /api/invoices/{id}/delivery: the latest dispatch row
// for the invoice.
func (h *InvoiceHandlers) Delivery(w http.ResponseWriter, r *http.Request) {
	dispatch, err := h.Svc.DeliveryStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"dispatch": dispatch})
}
