package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/etherlabsio/healthcheck"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/ismrmrd/dicomweb-gateway/core"
)

// StagingArea is the part of the session store the admin surface needs.
type StagingArea interface {
	RootDir() string
	HealthCheck(ctx context.Context) error
}

type Handler struct {
	journal  core.DeliveryJournal
	staging  StagingArea
	uploader core.Uploader
}

func BuildRouter(journal core.DeliveryJournal, staging StagingArea, uploader core.Uploader, gatherer prometheus.Gatherer, logRequests bool) http.Handler {
	handler := Handler{journal: journal, staging: staging, uploader: uploader}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if logRequests {
		r.Use(hlog.NewHandler(log.Logger))
		r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
			hlog.FromRequest(r).Info().
				Str("method", r.Method).
				Stringer("url", r.URL).
				Int("status", status).
				Int("size", size).
				Dur("duration", duration).
				Msg("Request")
		}))
	}
	r.Use(middleware.Recoverer)

	r.Handle("/healthcheck", handler.healthCheckHandler())

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/deliveries", func(r chi.Router) {
		r.Get("/", handler.SearchDeliveries)
		r.Post("/", handler.RedeliverSession)
		r.Get("/{id}", handler.GetDelivery)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	return r
}

func (handler *Handler) healthCheckHandler() http.Handler {
	return healthcheck.Handler(
		healthcheck.WithTimeout(5*time.Second),
		healthcheck.WithChecker("journal", healthcheck.CheckerFunc(handler.journal.HealthCheck)),
		healthcheck.WithChecker("staging", healthcheck.CheckerFunc(handler.staging.HealthCheck)),
	)
}

func normalizeQueryMapToLowercaseKeys(values url.Values) url.Values {
	// normalize and merge key parameter keys to lowercase
	normalizedValues := make(url.Values, len(values))

	for k, v := range values {
		lowerK := strings.ToLower(k)
		normalizedValues[lowerK] = append(normalizedValues[lowerK], v...)
	}

	return normalizedValues
}

func getBaseUri(r *http.Request) url.URL {
	url := *r.URL

	if r.TLS == nil {
		url.Scheme = "http"
	} else {
		url.Scheme = "https"
	}

	url.Host = r.Host

	url.RawQuery = ""
	url.Path = ""
	return url
}

func getDeliveryUri(r *http.Request, id string) string {
	uri := getBaseUri(r)
	uri.Path = path.Join("/deliveries", id)

	return uri.String()
}

func writeJson(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
