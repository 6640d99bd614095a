package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/uipilot/internal/executor"
	"github.com/fyrsmithlabs/uipilot/internal/logging"
	"github.com/fyrsmithlabs/uipilot/internal/task"
)

const (
	defaultBrowserTimeout = 30 * time.Second
	defaultDispatchHook   = "window.__uipilot.dispatch"
)

// BrowserConfig tunes the Chrome-driven console dispatcher.
type BrowserConfig struct {
	// ConsoleURL is the device console page to drive.
	ConsoleURL string

	// DispatchHook is the JavaScript function the console page exposes
	// for step dispatch. It receives the step text and returns (or
	// resolves to) a result message.
	DispatchHook string

	// Headless runs Chrome without a window.
	Headless bool

	// NoSandbox disables the Chrome sandbox, needed in most containers.
	NoSandbox bool

	// Timeout bounds each dispatch.
	Timeout time.Duration
}

// DefaultBrowserConfig returns sensible defaults.
func DefaultBrowserConfig() *BrowserConfig {
	return &BrowserConfig{
		DispatchHook: defaultDispatchHook,
		Headless:     true,
		Timeout:      defaultBrowserTimeout,
	}
}

// Browser drives a Chrome instance pointed at a device console page.
// Each dispatch calls the page's dispatch hook with the step text, then
// captures a full screenshot as the step artifact.
//
// Session failures (launch, navigation, dead browser, timeouts) are
// transient; a hook that throws is a permanent step failure.
type Browser struct {
	config *BrowserConfig
	logger *logging.Logger

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewBrowser creates a console-driving dispatcher. Chrome starts
// lazily on the first dispatch.
func NewBrowser(cfg *BrowserConfig, logger *logging.Logger) (*Browser, error) {
	if cfg == nil || cfg.ConsoleURL == "" {
		return nil, errors.New("browser console URL is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	c := *cfg
	if c.DispatchHook == "" {
		c.DispatchHook = defaultDispatchHook
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultBrowserTimeout
	}

	return &Browser{
		config: &c,
		logger: logger,
	}, nil
}

// ensureSession launches Chrome and opens the console page if no live
// session exists.
func (b *Browser) ensureSession(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx != nil {
		select {
		case <-b.browserCtx.Done():
			b.cleanup()
		default:
			return nil
		}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.config.Headless),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)
	if b.config.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	b.allocCancel = allocCancel
	b.browserCtx = browserCtx
	b.browserCancel = browserCancel

	openCtx, cancel := context.WithTimeout(browserCtx, b.config.Timeout)
	defer cancel()

	err := chromedp.Run(openCtx,
		chromedp.Navigate(b.config.ConsoleURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		b.cleanup()
		return fmt.Errorf("open console %s: %w", b.config.ConsoleURL, err)
	}

	b.logger.Info(ctx, "console session opened", zap.String("url", b.config.ConsoleURL))
	return nil
}

// cleanup tears the session down. Callers hold b.mu.
func (b *Browser) cleanup() {
	if b.browserCancel != nil {
		b.browserCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	b.browserCtx = nil
	b.browserCancel = nil
	b.allocCancel = nil
}

// Close shuts the Chrome session down.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cleanup()
	return nil
}

// Dispatch evaluates the console page's dispatch hook with the step
// text and captures a screenshot of the result.
func (b *Browser) Dispatch(ctx context.Context, step task.Step) (*executor.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := b.ensureSession(ctx); err != nil {
		return nil, executor.Transient(err)
	}

	b.mu.Lock()
	browserCtx := b.browserCtx
	b.mu.Unlock()

	actionCtx, cancel := context.WithTimeout(browserCtx, b.config.Timeout)
	defer cancel()

	arg, err := json.Marshal(step.Text)
	if err != nil {
		return nil, fmt.Errorf("encode step text: %w", err)
	}
	expr := fmt.Sprintf("%s(%s)", b.config.DispatchHook, arg)

	var message string
	err = chromedp.Run(actionCtx, chromedp.Evaluate(expr, &message, awaitPromise))
	if err != nil {
		if browserCtx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			return nil, executor.Transient(fmt.Errorf("console session lost: %w", err))
		}
		return nil, fmt.Errorf("dispatch hook rejected step: %w", err)
	}

	var shot []byte
	if err := chromedp.Run(actionCtx, chromedp.CaptureScreenshot(&shot)); err != nil {
		b.logger.Warn(ctx, "failed to capture console screenshot",
			zap.Int("step", step.Index), zap.Error(err))
		shot = nil
	}

	return &executor.Result{
		Message: message,
		Image:   shot,
	}, nil
}

// awaitPromise makes Evaluate resolve promise-returning hooks.
func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}
