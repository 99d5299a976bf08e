package main

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/angeloszaimis/siglab-monitor/internal/handler"
	"github.com/angeloszaimis/siglab-monitor/internal/metrics"
)

func setupRouter(api *handler.APIHandler, collector *metrics.Collector, log *slog.Logger, corsOrigin string) *mux.Router {
	router := mux.NewRouter()

	router.Use(handler.LogRequests(log))
	router.Use(handler.AllowOrigin(corsOrigin))

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/snapshot", api.Snapshot).Methods(http.MethodGet, http.MethodOptions)
	apiRouter.HandleFunc("/dashboard", api.Dashboard).Methods(http.MethodGet, http.MethodOptions)
	apiRouter.HandleFunc("/health", api.Health).Methods(http.MethodGet, http.MethodOptions)
	apiRouter.HandleFunc("/metrics", collector.Handler()).Methods(http.MethodGet, http.MethodOptions)

	router.Handle("/metrics", collector.PrometheusHandler()).Methods(http.MethodGet)

	return router
}
