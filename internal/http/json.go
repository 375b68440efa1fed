// Package httpx is the JSON API surface for the ERP service: request
// decoding, error rendering, middleware, and the route table.
package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"

	apperrors "github.com/arkline/erp-api/internal/errors"
)

// DecodeJSON decodes the request body into dst, rejecting unknown fields.
// Returns false after writing the error response.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}
	return true
}

// WriteJSON writes v with the given status. Encoding goes through a buffer so
// an encode failure never leaves a half-written body.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Client gone; nothing to recover.
		return
	}
}

// ErrorParams groups parameters for WriteError.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

type errorBody struct {
	Error       string `json:"error"`
	Message     string `json:"message"`
	Remediation string `json:"remediation,omitempty"`
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, errorBody{Error: p.ErrCode, Message: p.Err.Error()})
}

// WriteAppError maps an application error to its HTTP status and renders it,
// including any operator remediation the error carries.
func WriteAppError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	WriteJSON(w, statusFor(code), errorBody{
		Error:       string(code),
		Message:     err.Error(),
		Remediation: apperrors.GetRemediation(err),
	})
}

func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest
	case apperrors.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case apperrors.ErrCodeAccountBanned:
		return http.StatusForbidden
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeConflict:
		return http.StatusConflict
	case apperrors.ErrCodeAuthProvider, apperrors.ErrCodeDeliveryTransport:
		return http.StatusBadGateway
	case apperrors.ErrCodeDeliveryTimeout:
		return http.StatusGatewayTimeout
	case apperrors.ErrCodeConfiguration, apperrors.ErrCodeProvisioning, apperrors.ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
