package v1

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter creates the legacy v1 API router. It expects to be mounted
// behind the v2 middleware stack (auth, logging, rate limits), so it adds
// only the deprecation headers itself. The mux router matches full request
// paths, which is why the /api/v1 prefix appears here as well.
func NewRouter(handler *Handler) *mux.Router {
	router := mux.NewRouter()
	legacy := router.PathPrefix("/api/v1").Subrouter()

	legacy.Use(versionHeaders)

	legacy.HandleFunc("/compatibility", handler.Compatibility).Methods("POST")
	legacy.HandleFunc("/synastry", handler.Synastry).Methods("POST")
	legacy.HandleFunc("/composite", handler.Composite).Methods("POST")

	// Old deployments probed this path directly.
	legacy.HandleFunc("/health", healthCheck).Methods("GET")

	return router
}

// versionHeaders marks every v1 response as deprecated.
func versionHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-API-Version", "v1")
		w.Header().Set("X-API-Deprecated", "true")
		next.ServeHTTP(w, r)
	})
}

// healthCheck provides the legacy health check endpoint.
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","version":"v1"}`))
}
