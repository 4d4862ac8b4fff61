package api

import "net/http"

// registerHealthRoutes registers liveness/readiness probes.
// No middleware — these serve Docker/Kubernetes probes.
func registerHealthRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", health)
	mux.HandleFunc("GET /ready", health)
}

// health returns 200 OK if the process is alive.
func health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
