// Package spool turns a watched directory into a goal queue. Dropping
// a text file into the spool runs its first non-empty line as a goal
// and leaves the result JSON beside it.
package spool

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/uipilot/internal/logging"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

const defaultPattern = "*.txt"

// GoalFile is one spooled goal, ready to run.
type GoalFile struct {
	// Path is the absolute path of the spooled file.
	Path string

	// Goal is the file's first non-empty line, trimmed.
	Goal string
}

// WatcherConfig tunes the spool watcher.
type WatcherConfig struct {
	// Dir is the spool directory to watch.
	Dir string

	// Pattern is the glob goal files must match (default "*.txt").
	Pattern string
}

// Watcher emits a GoalFile for every new goal file in the spool
// directory. A file is emitted at most once, no matter how many
// filesystem events it produces.
type Watcher struct {
	config  *WatcherConfig
	watcher *fsnotify.Watcher
	events  chan GoalFile
	stop    chan struct{}
	logger  *logging.Logger

	// seen tracks emitted paths; only the processEvents goroutine
	// touches it.
	seen map[string]struct{}
}

// NewWatcher creates a spool watcher for cfg.Dir.
func NewWatcher(cfg *WatcherConfig, logger *logging.Logger) (*Watcher, error) {
	if cfg == nil || cfg.Dir == "" {
		return nil, errors.New("spool directory is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	c := *cfg
	if c.Pattern == "" {
		c.Pattern = defaultPattern
	}
	if _, err := filepath.Match(c.Pattern, "probe.txt"); err != nil {
		return nil, fmt.Errorf("invalid spool pattern %q: %w", c.Pattern, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}

	return &Watcher{
		config:  &c,
		watcher: watcher,
		events:  make(chan GoalFile, 16),
		stop:    make(chan struct{}),
		logger:  logger,
		seen:    make(map[string]struct{}),
	}, nil
}

// Start begins watching the spool directory. Events flow to Events()
// until Stop is called or ctx is canceled.
func (w *Watcher) Start(ctx context.Context) error {
	info, err := os.Stat(w.config.Dir)
	if err != nil {
		return fmt.Errorf("spool directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("spool path %s is not a directory", w.config.Dir)
	}

	if err := w.watcher.Add(w.config.Dir); err != nil {
		return fmt.Errorf("watch spool directory: %w", err)
	}

	go w.processEvents(ctx)

	w.logger.Info(ctx, "spool watcher started",
		zap.String("dir", w.config.Dir),
		zap.String("pattern", w.config.Pattern),
	)
	return nil
}

// Stop stops the watcher and releases its resources. Safe to call more
// than once.
func (w *Watcher) Stop() {
	select {
	case <-w.stop:
		return
	default:
		close(w.stop)
		_ = w.watcher.Close()
	}
}

// Events returns the goal file channel.
func (w *Watcher) Events() <-chan GoalFile {
	return w.events
}

// processEvents translates filesystem events into goal files.
func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.handleFile(ctx, event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn(ctx, "spool watcher error", zap.Error(err))
		}
	}
}

// handleFile emits a goal for path once it matches the pattern and
// holds a readable goal line. Files are emitted at most once.
func (w *Watcher) handleFile(ctx context.Context, path string) {
	matched, err := filepath.Match(w.config.Pattern, filepath.Base(path))
	if err != nil || !matched {
		return
	}
	if _, done := w.seen[path]; done {
		return
	}

	goal, err := readGoal(path)
	if err != nil {
		// The file may still be empty or mid-write; a later Write
		// event retries it.
		w.logger.Debug(ctx, "spool file not ready", zap.String("path", path), zap.Error(err))
		return
	}

	w.seen[path] = struct{}{}

	select {
	case w.events <- GoalFile{Path: path, Goal: goal}:
	case <-w.stop:
	case <-ctx.Done():
	}
}

// readGoal returns the first non-empty line of the file, trimmed.
func readGoal(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", errors.New("no goal line found")
}
