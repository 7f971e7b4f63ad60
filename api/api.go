package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"hermannm.dev/gaquery/client"
	"hermannm.dev/gaquery/sink"
)

type QueryAPI struct {
	client *client.Client
	// Nil if results should not be stored.
	sink   sink.Sink
	router chi.Router
	config Config
}

type Config struct {
	Port        string
	TablePrefix string
}

func NewQueryAPI(gaClient *client.Client, resultSink sink.Sink, config Config) QueryAPI {
	api := QueryAPI{client: gaClient, sink: resultSink, router: chi.NewRouter(), config: config}

	api.router.Use(chimw.RequestID)
	api.router.Use(chimw.Recoverer)

	api.router.Get("/health", api.Health)
	api.router.Post("/query", api.Query)
	api.router.Post("/batch", api.Batch)
	api.router.Post("/filter", api.Filter)
	api.router.Post("/schema", api.Schema)

	return api
}

func (api QueryAPI) ListenAndServe() error {
	return http.ListenAndServe(fmt.Sprintf(":%s", api.config.Port), api.router)
}

func (api QueryAPI) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	api.router.ServeHTTP(res, req)
}

func (api QueryAPI) Health(res http.ResponseWriter, req *http.Request) {
	sendJSON(res, map[string]string{"status": "ok"})
}
