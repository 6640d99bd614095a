package backend

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"time"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/fyrsmithlabs/uipilot/internal/executor"
	"github.com/fyrsmithlabs/uipilot/internal/logging"
	"github.com/fyrsmithlabs/uipilot/internal/task"
)

// Placeholder screenshot dimensions, loosely a phone screen aspect.
const (
	simImageWidth  = 270
	simImageHeight = 120
)

// SimulatorConfig tunes the offline simulator.
type SimulatorConfig struct {
	// StepDelay is how long each dispatch pretends to work.
	StepDelay time.Duration
}

// DefaultSimulatorConfig returns sensible defaults.
func DefaultSimulatorConfig() *SimulatorConfig {
	return &SimulatorConfig{
		StepDelay: time.Second,
	}
}

// Simulator is a fully offline dispatcher. Every step succeeds after a
// fixed delay with the conventional success message and a rendered
// placeholder screenshot, which makes it deterministic enough for
// development, demos, and tests.
type Simulator struct {
	config *SimulatorConfig
	logger *logging.Logger

	// failHook, when set, replaces the success path for a step.
	// Only tests set it.
	failHook func(step task.Step) error
}

// NewSimulator creates a simulator dispatcher.
func NewSimulator(cfg *SimulatorConfig, logger *logging.Logger) *Simulator {
	if cfg == nil {
		cfg = DefaultSimulatorConfig()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Simulator{
		config: cfg,
		logger: logger,
	}
}

// Dispatch simulates one step: sleep the configured delay, then report
// success with a placeholder screenshot labeled by the step index.
func (s *Simulator) Dispatch(ctx context.Context, step task.Step) (*executor.Result, error) {
	if s.config.StepDelay > 0 {
		select {
		case <-time.After(s.config.StepDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.failHook != nil {
		if err := s.failHook(step); err != nil {
			return nil, err
		}
	}

	img, err := renderPlaceholder(fmt.Sprintf("step %d", step.Index))
	if err != nil {
		s.logger.Warn(ctx, "failed to render placeholder screenshot", zap.Error(err))
		img = nil
	}

	s.logger.Debug(ctx, "simulated step", zap.Int("step", step.Index), zap.String("text", step.Text))

	return &executor.Result{
		Message: fmt.Sprintf("completed: %s", step.Text),
		Image:   img,
	}, nil
}

// renderPlaceholder draws the label on a dark canvas and encodes it as
// PNG.
func renderPlaceholder(label string) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, simImageWidth, simImageHeight))

	bg := color.RGBA{R: 0x20, G: 0x24, B: 0x2b, A: 0xff}
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 0xe6, G: 0xe6, B: 0xe6, A: 0xff}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(12, simImageHeight/2),
	}
	d.DrawString(label)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode placeholder: %w", err)
	}
	return buf.Bytes(), nil
}
