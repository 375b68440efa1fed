package httpx

import (
	"net/http"

	"github.com/arkline/erp-api/internal/service"
)

// ClientHandlers serves client profile creation.
type ClientHandlers struct {
	Svc *service.ClientService
}

type createClientRequest struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Phone     *string `json:"phone,omitempty"`
	Address   *string `json:"address,omitempty"`
	CompanyID *string `json:"company_id,omitempty"`
	Password  string  `json:"password,omitempty"`
}

// Create handles POST /api/clients. A password grants the client login
// access; without one the profile is record-only.
func (h *ClientHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req createClientRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	profile, err := h.Svc.Create(r.Context(), service.CreateClientInput{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
		CompanyID: req.CompanyID,
		Password:  req.Password,
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"client": profile})
}
