package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"contactsift/internal/infrastructure"
)

// MetricsHandler exposes the Prometheus scrape endpoint
type MetricsHandler struct {
	handler http.Handler
}

// NewMetricsHandler serves the OTel Prometheus registry when the exporter is
// enabled and the default Go registry otherwise
func NewMetricsHandler(providers *infrastructure.OTelProviders) *MetricsHandler {
	var h http.Handler = promhttp.Handler()
	if providers != nil && providers.PrometheusHTTP != nil {
		h = providers.PrometheusHTTP
	}
	return &MetricsHandler{handler: h}
}

// ServeHTTP handles GET /metrics
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}
