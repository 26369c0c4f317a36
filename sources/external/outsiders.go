package external

import (
	"fmt"
	"net/http"

	"babelgram/sources/platform"
	"babelgram/sources/tracing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Outsiders struct {
	log    *tracing.Logger
	config *OutsidersConfig
	hs     *http.Server
	ms     *http.Server
}

func NewOutsiders(log *tracing.Logger, config *OutsidersConfig) *Outsiders {
	systemRegistry := prometheus.NewRegistry()

	systemRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)

	return &Outsiders{
		log:    log,
		config: config,
		hs: &http.Server{
			Addr: fmt.Sprintf(":%d", config.HealthPort),
			Handler: platform.Curry(http.NewServeMux, func(m *http.ServeMux) {
				m.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
					healthHandler(log, w, r)
				})
			}),
		},
		ms: &http.Server{
			Addr: fmt.Sprintf(":%d", config.MetricsPort),
			Handler: platform.Curry(http.NewServeMux, func(m *http.ServeMux) {
				m.Handle("/metrics", promhttp.Handler())
				m.Handle("/metrics/system", promhttp.HandlerFor(systemRegistry, promhttp.HandlerOpts{}))
			}),
		},
	}
}

func (x *Outsiders) health() {
	x.log.I("Health server is starting", tracing.OutsiderKind, "health", "port", x.config.HealthPort)

	if err := x.hs.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		x.log.F("Failed to start health server", tracing.OutsiderKind, "health", tracing.InnerError, err)
	}
}

func (x *Outsiders) metrics() {
	x.log.I("Metrics server is starting", tracing.OutsiderKind, "metrics", "port", x.config.MetricsPort)

	if err := x.ms.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		x.log.F("Failed to start metrics server", tracing.OutsiderKind, "metrics", tracing.InnerError, err)
	}
}

func healthHandler(log *tracing.Logger, w http.ResponseWriter, r *http.Request) {
	log.D("Outsider service got a ping", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok","service":"babelgram"}`))
}
