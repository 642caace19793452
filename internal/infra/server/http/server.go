// Package httpserver exposes the gateway's HTTP surface: the health check,
// the live match listing and the WebSocket upgrade endpoint.
package httpserver

import (
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/crickstream/gateway/internal/app/hub"
	"github.com/crickstream/gateway/internal/app/session"
	"github.com/crickstream/gateway/internal/infra/logging"
	"github.com/crickstream/gateway/internal/infra/store"
)

const (
	healthPath      = "/health"
	liveMatchesPath = "/api/matches/live"
	wsPath          = "/ws"

	// Total request budget for the REST surface. The upgrade endpoint is
	// exempt: WebSocket sessions have no idle timeout.
	requestTimeout = 30 * time.Second

	serviceName = "cricket-live-score-backend"
)

type httpServer struct {
	store *store.Store
	log   *logging.Logger
}

// NewHandler assembles the route table. Cross-origin requests are permitted
// from any origin with any method and any header.
func NewHandler(st *store.Store, h *hub.Hub, log *logging.Logger) http.Handler {
	server := &httpServer{store: st, log: log}
	mux := http.NewServeMux()

	mux.Handle(healthPath, withTimeout(http.HandlerFunc(server.health)))
	mux.Handle(liveMatchesPath, withTimeout(http.HandlerFunc(server.liveMatches)))
	mux.Handle(wsPath, session.NewHandler(st, h, log.WithPrefix("session ")))

	return withCORS(mux)
}

func (s *httpServer) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": serviceName,
	})
}

func (s *httpServer) liveMatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	matches, err := s.store.ListLiveMatches(r.Context())
	if err != nil {
		s.log.Errorf("list live matches: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch live matches", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	body := map[string]string{"error": message}
	if details != "" {
		body["details"] = details
	}
	writeJSON(w, status, body)
}

func withCORS(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "*")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		handler.ServeHTTP(w, r)
	})
}

func withTimeout(handler http.Handler) http.Handler {
	return http.TimeoutHandler(handler, requestTimeout, `{"error":"request timed out"}`)
}
