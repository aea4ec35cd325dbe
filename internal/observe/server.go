package observe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/common/expfmt"

	"github.com/procwave/procwave/internal/hostinfo"
	"github.com/procwave/procwave/internal/logging"
)

// Status is the /status payload.
type Status struct {
	State          string            `json:"state"`
	WaveSize       int               `json:"wave_size"`
	WavesRun       int               `json:"waves_run"`
	TrackedWorkers int               `json:"tracked_workers"`
	LiveWorkers    int               `json:"live_workers"`
	Label          string            `json:"label"`
	DryRun         bool              `json:"dry_run"`
	UptimeSeconds  int64             `json:"uptime_seconds"`
	Host           hostinfo.Snapshot `json:"host"`
}

// Server serves the observational HTTP endpoint.
type Server struct {
	srv       *http.Server
	log       *logging.Logger
	metrics   *Metrics
	statusFn  func() Status
	startTime time.Time
}

// NewServer builds the endpoint; statusFn supplies the live snapshot.
func NewServer(addr string, m *Metrics, statusFn func() Status, log *logging.Logger) *Server {
	s := &Server{
		log:       log.WithField("component", "observe"),
		metrics:   m,
		statusFn:  statusFn,
		startTime: time.Now(),
	}

	router := mux.NewRouter()
	router.HandleFunc("/metrics", s.handleMetrics).Methods("GET")
	router.HandleFunc("/status", s.handleStatus).Methods("GET")
	router.HandleFunc("/healthz", s.handleHealthz).Methods("GET")

	s.srv = &http.Server{Addr: addr, Handler: router}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start serves in the background.
func (s *Server) Start() {
	go func() {
		s.log.Info("metrics endpoint listening", map[string]interface{}{"addr": s.srv.Addr})
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("metrics endpoint failed", map[string]interface{}{"error": err.Error()})
		}
	}()
}

// Shutdown stops the listener; registered as a coordinator cleanup hook.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	fmt.Fprintf(w, "# HELP procwave_uptime_seconds Time since the harness started\n")
	fmt.Fprintf(w, "# TYPE procwave_uptime_seconds gauge\n")
	fmt.Fprintf(w, "procwave_uptime_seconds %d\n\n", int64(time.Since(s.startTime).Seconds()))

	families, err := s.metrics.registry.Gather()
	if err != nil {
		fmt.Fprintf(w, "# Error gathering metrics: %v\n", err)
		return
	}
	encoder := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, family := range families {
		if err := encoder.Encode(family); err != nil {
			fmt.Fprintf(w, "# Error encoding metric family: %v\n", err)
			return
		}
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.statusFn()
	status.UptimeSeconds = int64(time.Since(s.startTime).Seconds())
	status.Host = hostinfo.Collect()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}
