// Package health provides the liveness endpoint.
package health

import "net/http"

// Handler responds with a static OK body. Kept dependency-free so the
// probe works even when the database or Redis is down.
func Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
