// health_handler.go -- Health check handler for GET /health.
package auth

import (
	"encoding/json"
	"net/http"
)

// CheckHealth handles GET /health -- pings Postgres and Redis.
// Returns 200 if both are healthy, 503 if either is down.
func (h *AuthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	status := func(name string, err error) string {
		if err != nil {
			logError(r, name+" health check failed", "error", err)
			return "error"
		}
		return "ok"
	}
	pg := status("postgres", h.IS.CheckHealth(r.Context()))
	rd := status("redis", h.RS.CheckHealth(r.Context()))

	code := http.StatusOK
	if pg != "ok" || rd != "ok" {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(struct {
		Postgres string `json:"postgres"`
		Redis    string `json:"redis"`
	}{pg, rd})
}
