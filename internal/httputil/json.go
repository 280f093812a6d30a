package httputil

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse carries a machine-checkable code next to the human message.
// Limit rejections additionally name the limit kind and threshold so the
// caller can render the exact reason without re-deriving it.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	LimitKind string `json:"limit_kind,omitempty"`
	Threshold string `json:"threshold,omitempty"`
}

func WriteJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, code int, msg string) {
	WriteJSON(w, code, ErrorResponse{Error: msg})
}

func WriteErrorResponse(w http.ResponseWriter, code int, resp ErrorResponse) {
	WriteJSON(w, code, resp)
}
