package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// API route patterns.
const (
	RouteHealth     = "/health"
	RouteScores     = "/api/v1/scores"
	RouteScore      = "/api/v1/scores/{" + companyNameParam + "}"
	RouteSessionsWS = "/ws/sessions"
)

const (
	companyNameParam = "company_name"
	notFoundDetail   = "Not Found"
	methodNotAllowed = "Method Not Allowed"
)

// newRouter registers every API route on a chi router wrapped in middleware.
// sessions may be nil, in which case the websocket route is not served.
func newRouter(
	middleware []MiddlewareFunc,
	health *HealthHandler,
	scores *ScoreHandler,
	sessions http.Handler,
) chi.Router {
	r := chi.NewRouter()
	for _, mw := range middleware {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusNotFound, notFoundDetail)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, methodNotAllowed)
	})

	r.Get(RouteHealth, health.GetHealth)
	r.Get(RouteScores, scores.ListScores)
	r.Post(RouteScores, scores.CreateScore)
	r.Get(RouteScore, scores.GetScore)

	if sessions != nil {
		r.Method(http.MethodGet, RouteSessionsWS, sessions)
	}
	return r
}
