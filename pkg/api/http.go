// Package api assembles the HTTP surface: the /v1 JSON endpoints and the
// live-channel upgrade at /ws.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"baatcheet/pkg/api/handlers"
	"baatcheet/pkg/ws"
)

// Handler returns the application router. Health, readiness, metrics and
// docs are mounted by the app layer alongside this handler.
func Handler(d handlers.Deps, gw *ws.Gateway) http.Handler {
	r := mux.NewRouter()

	v1 := r.PathPrefix("/v1").Subrouter()
	handlers.RegisterUsers(v1, d)
	handlers.RegisterConversations(v1, d)
	handlers.RegisterMessages(v1, d)

	r.HandleFunc("/ws", gw.HandleWS).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	})
	return r
}
