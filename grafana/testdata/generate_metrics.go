// Package testdata generates sample uipilot metrics so the Grafana
// dashboard can be developed without driving a real device pipeline.
package main

import (
	"context"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric names mirror what the services register through OpenTelemetry,
// translated to Prometheus naming (dots become underscores).
var (
	// Supervisor metrics
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uipilot_supervisor_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"state", "verified"},
	)

	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "uipilot_supervisor_run_duration_seconds",
			Help:    "End to end pipeline run duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"state", "verified"},
	)

	// Planner metrics
	plansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uipilot_planner_plans_total",
			Help: "Total number of plan generations",
		},
		[]string{"outcome"},
	)

	planDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "uipilot_planner_generation_duration_seconds",
			Help:    "Plan generation duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// Executor metrics
	stepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uipilot_executor_steps_total",
			Help: "Total number of executed plan steps",
		},
		[]string{"status"},
	)

	retriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "uipilot_executor_retries_total",
			Help: "Total number of step retry attempts",
		},
	)

	stepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "uipilot_executor_step_duration_seconds",
			Help:    "Per step dispatch duration in seconds, retries included",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// Verifier metrics
	verificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uipilot_verifier_verifications_total",
			Help: "Total number of outcome verifications",
		},
		[]string{"success"},
	)

	// LLM metrics
	llmCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uipilot_llm_calls_total",
			Help: "Total number of model completion calls",
		},
		[]string{"model", "outcome"},
	)

	// Store metrics
	storeSavesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uipilot_store_saves_total",
			Help: "Total number of task result saves",
		},
		[]string{"success"},
	)

	// Spool metrics
	spoolGoalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uipilot_spool_goals_total",
			Help: "Total number of goal files processed from the spool",
		},
		[]string{"success"},
	)

	// HTTP metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uipilot_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "uipilot_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"method", "endpoint", "status"},
	)

	httpResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "uipilot_http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: []float64{100, 1000, 10000, 100000, 500000},
		},
		[]string{"method", "endpoint", "status"},
	)

	httpActiveRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "uipilot_http_active_requests",
			Help: "Number of HTTP requests currently in flight",
		},
	)
)

func init() {
	prometheus.MustRegister(runsTotal)
	prometheus.MustRegister(runDuration)
	prometheus.MustRegister(plansTotal)
	prometheus.MustRegister(planDuration)
	prometheus.MustRegister(stepsTotal)
	prometheus.MustRegister(retriesTotal)
	prometheus.MustRegister(stepDuration)
	prometheus.MustRegister(verificationsTotal)
	prometheus.MustRegister(llmCallsTotal)
	prometheus.MustRegister(storeSavesTotal)
	prometheus.MustRegister(spoolGoalsTotal)
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(httpResponseSize)
	prometheus.MustRegister(httpActiveRequests)
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "9090"
	}

	generateSampleData()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go generateContinuousData(ctx)

	http.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: ":" + port}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down metrics generator...")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("Sample metrics available at http://localhost:%s/metrics", port)
	log.Println("Point a Prometheus scrape job here and import grafana/dashboards/uipilot.json")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}

// generateSampleData seeds a plausible history so dashboard panels render
// immediately instead of waiting for the continuous trickle.
func generateSampleData() {
	models := []string{"gpt-4", "gpt-4o-mini"}
	endpoints := []string{"/health", "/api/v1/tasks", "/api/v1/tasks/{id}", "/metrics"}

	// Completed runs dominate; a minority verify false or fail outright.
	for i := 0; i < 200; i++ {
		verified := randomBool(0.8)
		state := "completed"
		if verified == "false" && rand.Float64() < 0.3 {
			state = "failed"
		}
		runsTotal.WithLabelValues(state, verified).Inc()
		runDuration.WithLabelValues(state, verified).Observe(5 + rand.Float64()*55)
	}

	for i := 0; i < 220; i++ {
		outcome := "ok"
		if rand.Float64() < 0.08 {
			outcome = "failed"
		}
		plansTotal.WithLabelValues(outcome).Inc()
		planDuration.Observe(0.5 + rand.Float64()*4)
	}

	// Roughly five steps per run, most succeeding on the first attempt.
	for i := 0; i < 1000; i++ {
		status := randomChoice([]string{"succeeded", "succeeded", "succeeded", "succeeded", "failed"})
		stepsTotal.WithLabelValues(status).Inc()
		stepDuration.Observe(0.1 + rand.Float64()*2)
		if rand.Float64() < 0.15 {
			retriesTotal.Inc()
		}
	}

	for i := 0; i < 200; i++ {
		verificationsTotal.WithLabelValues(randomBool(0.8)).Inc()
	}

	for i := 0; i < 400; i++ {
		model := randomChoice(models)
		outcome := randomChoice([]string{"success", "success", "success", "success", "error"})
		llmCallsTotal.WithLabelValues(model, outcome).Inc()
	}

	for i := 0; i < 200; i++ {
		storeSavesTotal.WithLabelValues(randomBool(0.98)).Inc()
	}

	for i := 0; i < 50; i++ {
		spoolGoalsTotal.WithLabelValues(randomBool(0.85)).Inc()
	}

	for i := 0; i < 1500; i++ {
		endpoint := randomChoice(endpoints)
		method := "GET"
		status := "200"
		if endpoint == "/api/v1/tasks" && rand.Float64() < 0.4 {
			method = "POST"
			status = randomChoice([]string{"201", "201", "201", "400", "502"})
		} else if rand.Float64() < 0.02 {
			status = "404"
		}
		httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
		// Task creation runs the whole pipeline inline, so POSTs take seconds.
		dur := 0.002 + rand.Float64()*0.05
		if method == "POST" {
			dur = 5 + rand.Float64()*40
		}
		httpRequestDuration.WithLabelValues(method, endpoint, status).Observe(dur)
		httpResponseSize.WithLabelValues(method, endpoint, status).Observe(float64(200 + rand.Intn(8000)))
	}

	httpActiveRequests.Set(float64(rand.Intn(3)))

	log.Println("Sample data generated successfully")
}

// generateContinuousData keeps the series moving so rate() panels show
// live traffic during dashboard work.
func generateContinuousData(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			verified := randomBool(0.8)
			state := "completed"
			if verified == "false" && rand.Float64() < 0.3 {
				state = "failed"
			}
			runsTotal.WithLabelValues(state, verified).Inc()
			runDuration.WithLabelValues(state, verified).Observe(5 + rand.Float64()*55)

			plansTotal.WithLabelValues("ok").Inc()
			planDuration.Observe(0.5 + rand.Float64()*4)

			for i := 0; i < 5; i++ {
				status := randomChoice([]string{"succeeded", "succeeded", "succeeded", "succeeded", "failed"})
				stepsTotal.WithLabelValues(status).Inc()
				stepDuration.Observe(0.1 + rand.Float64()*2)
			}

			verificationsTotal.WithLabelValues(verified).Inc()
			llmCallsTotal.WithLabelValues("gpt-4", "success").Inc()
			storeSavesTotal.WithLabelValues("true").Inc()

			method := "GET"
			endpoint := "/health"
			status := "200"
			if rand.Float64() < 0.3 {
				method = "POST"
				endpoint = "/api/v1/tasks"
				status = "201"
			}
			httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
			httpRequestDuration.WithLabelValues(method, endpoint, status).Observe(0.002 + rand.Float64()*0.05)
			httpResponseSize.WithLabelValues(method, endpoint, status).Observe(float64(200 + rand.Intn(8000)))
			httpActiveRequests.Set(float64(rand.Intn(3)))
		}
	}
}

// randomBool returns a label ready "true" or "false", true with the
// given probability.
func randomBool(probability float64) string {
	if rand.Float64() < probability {
		return "true"
	}
	return "false"
}

func randomChoice(choices []string) string {
	return choices[rand.Intn(len(choices))]
}
