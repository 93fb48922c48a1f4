package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	tt "github.com/gnolang/flatssa/internal/types"
)

// settleDelay lets a burst of writes to one file finish before it is
// converted again.
const settleDelay = 100 * time.Millisecond

// ReportFunc receives the conversions of a file the watcher processed.
type ReportFunc func(filename string, convs []tt.Conversion, err error)

// StartWatching watches every directory below dirs and reconverts Go
// files as they change, until ctx ends or StopWatching is called.
func (e *Engine) StartWatching(ctx context.Context, report ReportFunc, dirs ...string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.isWatching {
		return fmt.Errorf("already watching")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating watcher: %w", err)
	}
	for _, dir := range dirs {
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return w.Add(path)
			}
			return nil
		})
		if err != nil {
			w.Close()
			return fmt.Errorf("error adding directory to watcher: %w", err)
		}
	}

	if report == nil {
		report = e.logConversions
	}
	e.watcher = w
	e.isWatching = true
	e.done = make(chan struct{})
	go e.watchLoop(ctx, w, report, e.done)
	return nil
}

// StopWatching stops the watcher and waits for its loop to exit.
func (e *Engine) StopWatching() error {
	e.mu.Lock()
	if !e.isWatching {
		e.mu.Unlock()
		e.logger.Warn("not watching")
		return nil
	}
	e.isWatching = false
	w, done := e.watcher, e.done
	e.mu.Unlock()

	err := w.Close()
	<-done
	return err
}

// Watching reports whether the watcher is running.
func (e *Engine) Watching() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isWatching
}

func (e *Engine) watchLoop(ctx context.Context, w *fsnotify.Watcher, report ReportFunc, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			e.mu.Lock()
			if e.isWatching {
				e.isWatching = false
				w.Close()
			}
			e.mu.Unlock()
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			e.handleFileEvent(event, report)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			e.logger.Error("watch error", zap.Error(err))
		}
	}
}

func (e *Engine) handleFileEvent(event fsnotify.Event, report ReportFunc) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if !strings.HasSuffix(event.Name, ".go") || strings.HasSuffix(event.Name, "_test.go") {
		return
	}
	time.Sleep(settleDelay)
	convs, err := e.Run(event.Name)
	report(event.Name, convs, err)
}

func (e *Engine) logConversions(filename string, convs []tt.Conversion, err error) {
	if err != nil {
		e.logger.Error("conversion failed", zap.String("file", filename), zap.Error(err))
		return
	}
	failed := 0
	for _, c := range convs {
		if c.Failed() {
			failed++
			e.logger.Warn("function not converted",
				zap.String("file", filename),
				zap.String("func", c.Func),
				zap.String("rule", c.Issue.Rule),
				zap.String("message", c.Issue.Message))
		}
	}
	e.logger.Info("converted file",
		zap.String("file", filename),
		zap.Int("functions", len(convs)),
		zap.Int("failed", failed))
}
