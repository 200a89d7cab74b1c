// Package routes wires the HTTP API over the request/upload services.
package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/reqdrop/reqdrop/internal/version"
	"github.com/reqdrop/reqdrop/pkg/httputil"
	"github.com/reqdrop/reqdrop/pkg/services"
	"go.uber.org/zap"
)

type API struct {
	requests  *services.FileRequestService
	uploads   *services.UploadService
	integrity *services.IntegrityService
	validate  *validator.Validate
	logger    *zap.SugaredLogger
}

func NewAPI(requests *services.FileRequestService, uploads *services.UploadService, integrity *services.IntegrityService, logger *zap.Logger) *API {
	return &API{
		requests:  requests,
		uploads:   uploads,
		integrity: integrity,
		validate:  validator.New(),
		logger:    logger.Sugar(),
	}
}

func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Route("/requests", func(r chi.Router) {
		r.Post("/", a.createRequest)
		r.Get("/", a.listRequests)
		r.Get("/{id}", a.getRequest)
		r.Post("/{id}/complete", a.completeRequest)
		r.Get("/{id}/files", a.listRequestFiles)
	})

	r.Route("/share/{link}", func(r chi.Router) {
		r.Get("/", a.getShare)
		r.Post("/upload", a.uploadToShare)
	})

	r.Get("/integrity", a.integrityCheck)

	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, version.GetVersionInfo())
	})

	return r
}

// MetricsHandler exposes the prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
