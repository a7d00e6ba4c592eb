package requesthttp

import (
	"encoding/json"
	"net/http"
)

func NewRouter(coordinator Coordinator) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", healthHandler)

	h := NewHandler(coordinator)

	mux.HandleFunc("POST /api/requests", h.CreateRequest)
	mux.HandleFunc("GET /api/requests", h.ListRequests)
	mux.HandleFunc("GET /api/requests/{id}", h.GetRequest)
	mux.HandleFunc("PUT /api/requests/{id}/status", h.UpdateStatus)
	mux.HandleFunc("GET /api/requests/status/{status}", h.ListByStatus)
	mux.HandleFunc("GET /api/requests/blood-group/{bloodGroup}/status/{status}", h.ListByGroupAndStatus)
	mux.HandleFunc("GET /api/requests/hospital/{hospitalName}", h.ListByHospital)
	mux.HandleFunc("GET /api/requests/date-range", h.ListByDateRange)
	mux.HandleFunc("POST /api/requests/process-emergency", h.ProcessEmergency)

	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "request-service",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
