// Package main provides a fake device agent for exercising the agent
// backend against a live process.
//
// It speaks the dispatch protocol the agent backend expects: POST
// /v1/dispatch with {step_index, step_text, task_id}, answered with
// {status, message, image_base64?}. Failure flags make it misbehave on
// demand so retry handling can be observed end to end:
//
//	testagent -addr 127.0.0.1:8089 -delay 500ms
//	testagent -fail-every 3            # every 3rd dispatch is transient
//	testagent -fail-step 2             # step 2 always fails permanently
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

type dispatchRequest struct {
	StepIndex int    `json:"step_index"`
	StepText  string `json:"step_text"`
	TaskID    string `json:"task_id"`
}

type dispatchResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	ImageBase64 string `json:"image_base64,omitempty"`
}

// agentState counts dispatches so the failure flags can key off them.
type agentState struct {
	mu    sync.Mutex
	count int
}

func (s *agentState) next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	return s.count
}

func main() {
	addr := flag.String("addr", "127.0.0.1:8089", "Listen address")
	delay := flag.Duration("delay", 200*time.Millisecond, "Simulated work per dispatch")
	failEvery := flag.Int("fail-every", 0, "Report a transient failure on every Nth dispatch (0 disables)")
	failStep := flag.Int("fail-step", 0, "Report a permanent failure for this step index (0 disables)")
	screenshots := flag.Bool("screenshots", true, "Attach a rendered placeholder screenshot to successes")
	token := flag.String("token", "", "Require this bearer token on every request")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	logLevel := zapcore.InfoLevel
	if *verbose {
		logLevel = zapcore.DebugLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(logLevel),
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	logger, err := config.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	state := &agentState{}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/dispatch", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if *token != "" && r.Header.Get("Authorization") != "Bearer "+*token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req dispatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		n := state.next()
		logger.Debug("dispatch received",
			zap.Int("n", n),
			zap.Int("step_index", req.StepIndex),
			zap.String("step_text", req.StepText),
			zap.String("task_id", req.TaskID))

		if *delay > 0 {
			time.Sleep(*delay)
		}

		resp := dispatchResponse{
			Status:  "success",
			Message: fmt.Sprintf("completed: %s", req.StepText),
		}
		switch {
		case *failStep > 0 && req.StepIndex == *failStep:
			resp = dispatchResponse{
				Status:  "permanent-failure",
				Message: fmt.Sprintf("step %d is configured to fail", req.StepIndex),
			}
		case *failEvery > 0 && n%*failEvery == 0:
			resp = dispatchResponse{
				Status:  "transient-failure",
				Message: "agent busy, try again",
			}
		default:
			if *screenshots {
				if img, err := renderScreenshot(fmt.Sprintf("step %d", req.StepIndex)); err == nil {
					resp.ImageBase64 = base64.StdEncoding.EncodeToString(img)
				} else {
					logger.Warn("failed to render screenshot", zap.Error(err))
				}
			}
		}

		logger.Info("dispatch handled",
			zap.Int("step_index", req.StepIndex),
			zap.String("status", resp.Status))

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Warn("failed to write response", zap.Error(err))
		}
	})

	server := &http.Server{Addr: *addr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("test agent listening",
		zap.String("addr", *addr),
		zap.Duration("delay", *delay),
		zap.Int("fail_every", *failEvery),
		zap.Int("fail_step", *failStep))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("test agent stopped")
}

// renderScreenshot draws the label on a dark canvas, matching what a
// real agent would capture well enough for artifact plumbing.
func renderScreenshot(label string) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, 270, 120))

	bg := color.RGBA{R: 0x10, G: 0x14, B: 0x1b, A: 0xff}
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 0xe6, G: 0xe6, B: 0xe6, A: 0xff}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(12, 60),
	}
	d.DrawString(label)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode screenshot: %w", err)
	}
	return buf.Bytes(), nil
}
