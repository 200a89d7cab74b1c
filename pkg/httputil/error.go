package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/reqdrop/reqdrop/internal/logging"
)

type HTTPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func NewError(w http.ResponseWriter, r *http.Request, status int, err error) {
	logging.FromContext(r.Context()).Sugar().Errorw("request failed", "status", status, "err", err)
	if status == 0 {
		status = http.StatusInternalServerError
	}
	WriteJSON(w, status, HTTPError{
		Code:    status,
		Message: err.Error(),
	})
}

func NewErrorWithDetails(w http.ResponseWriter, status int, message string, details interface{}) {
	WriteJSON(w, status, HTTPError{
		Code:    status,
		Message: message,
		Details: details,
	})
}
