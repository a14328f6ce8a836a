package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmartin/fingerprint-patterns/go-detector/internal/detector"
	"github.com/dmartin/fingerprint-patterns/go-detector/internal/sample"
)

// #region metrics

var (
	samplesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "samples_processed_total",
		Help: "Total number of samples processed",
	})

	samplesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "samples_rejected_total",
		Help: "Total number of samples rejected as malformed",
	})

	alarmsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alarms_total",
		Help: "Total number of alarms raised",
	})

	currentAvgDiff = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "current_avg_diff",
		Help: "Current smoothed average absolute difference",
	})

	waitActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wait_active",
		Help: "1 while the post-alarm cooldown window is open",
	})
)

// #endregion metrics

// #region server

const recentAlarmCap = 100

// Server exposes the detection state machine over HTTP for one measurement
// series. The core stays sequential: a mutex serializes handler access to the
// detector state, preserving the per-sample update order.
type Server struct {
	router *mux.Router

	mu           sync.Mutex
	cfg          detector.Config
	state        detector.State
	recentAlarms []detector.Record
}

// NewServer creates a server with a freshly seeded detector state.
func NewServer(cfg detector.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		router: mux.NewRouter(),
		cfg:    cfg,
		state:  detector.NewState(cfg),
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.healthHandler).Methods("GET")
	s.router.HandleFunc("/samples", s.ingestSampleHandler).Methods("POST")
	s.router.HandleFunc("/state", s.getStateHandler).Methods("GET")
	s.router.HandleFunc("/alarms", s.getAlarmsHandler).Methods("GET")
	s.router.Handle("/metrics/prometheus", promhttp.Handler())
}

// #endregion server

// #region handlers

type samplePayload struct {
	Timestamp string  `json:"timestamp"`
	Value     float64 `json:"value"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

func (s *Server) ingestSampleHandler(w http.ResponseWriter, r *http.Request) {
	var payload samplePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		samplesRejected.Inc()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ts, err := sample.ParseTimestamp(payload.Timestamp)
	if err != nil {
		samplesRejected.Inc()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	smp := sample.Sample{Timestamp: ts, TimestampText: payload.Timestamp, Value: payload.Value}

	s.mu.Lock()
	var rec detector.Record
	s.state, rec = detector.Update(s.state, smp, s.cfg)
	if rec.IsAlarm {
		s.recentAlarms = append(s.recentAlarms, rec)
		if len(s.recentAlarms) > recentAlarmCap {
			s.recentAlarms = s.recentAlarms[1:]
		}
	}
	avg, waiting := s.state.AvgDiff, s.state.IsWait
	s.mu.Unlock()

	samplesProcessed.Inc()
	currentAvgDiff.Set(avg)
	if waiting {
		waitActive.Set(1)
	} else {
		waitActive.Set(0)
	}
	if rec.IsAlarm {
		alarmsTotal.Inc()
		log.Printf("Alarm raised: pattern=%d value=%.2f avg=%.2f", rec.PatternID, rec.Value, rec.AvgDiff)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(rec)
}

type stateView struct {
	LineID           int64   `json:"line_id"`
	AvgDiff          float64 `json:"avg_diff"`
	RemainingToAlarm int     `json:"remaining_to_alarm"`
	IsWait           bool    `json:"is_wait"`
	IsPattern        bool    `json:"is_pattern"`
	PatternID        int64   `json:"pattern_id"`
}

func (s *Server) getStateHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	view := stateView{
		LineID:           s.state.LineID,
		AvgDiff:          s.state.AvgDiff,
		RemainingToAlarm: s.state.RemainingToAlarm,
		IsWait:           s.state.IsWait,
		IsPattern:        s.state.IsPattern,
		PatternID:        s.state.PatternID,
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view)
}

func (s *Server) getAlarmsHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	alarms := make([]detector.Record, len(s.recentAlarms))
	copy(alarms, s.recentAlarms)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(alarms)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// #endregion handlers

// #region run

// Run serves until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Run(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		if err := srv.Shutdown(ctx); err != nil {
			log.Fatalf("Could not gracefully shutdown the server: %v", err)
		}
		close(done)
	}()

	log.Printf("Server is ready to handle requests at %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("could not listen on %s: %w", addr, err)
	}

	<-done
	log.Println("Server stopped")
	return nil
}

// #endregion run
