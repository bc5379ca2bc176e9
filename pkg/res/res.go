package res

import (
	"encoding/json"
	"net/http"

	"github.com/timbale/registration-service/pkg/logger"
)

// ErrorResponse is the JSON shape returned for every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`                // Human-readable message
	ErrorCode int    `json:"code,omitempty"`       // Machine-readable code (HTTP status of the failing stage)
	Details   any    `json:"details,omitempty"`    // Extra detail (e.g. validation errors)
	DebugInfo string `json:"debug_info,omitempty"` // Populated only in development
}

// JsonResponse writes data as JSON with the given status.
func JsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// JsonErrorResponse writes an error response and logs it.
func JsonErrorResponse(w http.ResponseWriter, errResponse ErrorResponse, status int, log *logger.Logger) {
	JsonResponse(w, errResponse, status)
	log.Errorw("Request failed", "status", status, "error", errResponse.Error)
}
