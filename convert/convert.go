// Package convert drives the engine over files, sources and directory
// trees.
package convert

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/gnolang/flatssa/internal"
	"github.com/gnolang/flatssa/internal/config"
	tt "github.com/gnolang/flatssa/internal/types"
	"github.com/gnolang/flatssa/scanner"
)

const maxShowRecentFiles = 25

// Converter is the part of the engine the processors need.
type Converter interface {
	Run(filePath string) ([]tt.Conversion, error)
	RunSource(source []byte) ([]tt.Conversion, error)
	IgnorePath(path string)
}

// Processor converts one file.
type Processor func(Converter, string) ([]tt.Conversion, error)

// New loads the configuration at configurationPath, applies overrides in
// order and returns an engine for the result. An empty path means the
// default configuration file.
func New(configurationPath string, logger *zap.Logger, overrides ...func(*config.Config)) (*internal.Engine, error) {
	if configurationPath == "" {
		configurationPath = config.DefaultPath
	}
	cfg, err := config.Load(configurationPath)
	if err != nil {
		return nil, err
	}
	for _, o := range overrides {
		o(&cfg)
	}
	return internal.NewEngine(cfg, logger)
}

// Options control how ProcessPath reports progress.
type Options struct {
	// Progress receives the progress bar and the recently processed
	// files. Nil disables both.
	Progress io.Writer
	// Workers bounds the files converted at once. Zero means one per CPU.
	Workers int
}

func ProcessSources(
	ctx context.Context,
	logger *zap.Logger,
	engine Converter,
	sources [][]byte,
	processor func(Converter, []byte) ([]tt.Conversion, error),
) ([]tt.Conversion, error) {
	var all []tt.Conversion
	for i, source := range sources {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		convs, err := processor(engine, source)
		if err != nil {
			if logger != nil {
				logger.Error("Error processing source", zap.Int("source", i), zap.Error(err))
			}
			return nil, err
		}
		all = append(all, convs...)
	}
	return all, nil
}

func ProcessFiles(
	ctx context.Context,
	logger *zap.Logger,
	engine Converter,
	paths []string,
	processor Processor,
	opts Options,
) ([]tt.Conversion, error) {
	var all []tt.Conversion
	for _, path := range paths {
		convs, err := ProcessPath(ctx, logger, engine, path, processor, opts)
		if err != nil {
			if logger != nil {
				logger.Error("Error processing path", zap.String("path", path), zap.Error(err))
			}
			return all, err
		}
		all = append(all, convs...)
	}
	return all, nil
}

// ProcessPath converts path, or every Go file below it when it is a
// directory. Files that fail to convert are logged and skipped. The
// conversions come back ordered by file.
func ProcessPath(
	ctx context.Context,
	logger *zap.Logger,
	engine Converter,
	path string,
	processor Processor,
	opts Options,
) ([]tt.Conversion, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing %s: %w", path, err)
	}
	if !info.IsDir() {
		if !hasDesiredExtension(path) {
			return nil, nil
		}
		return processor(engine, path)
	}

	files, err := collectFiles(path)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var (
		bar    *progressbar.ProgressBar
		recent *recentFiles
	)
	if opts.Progress != nil {
		recent = newRecentFiles(opts.Progress)
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription(path),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
	}

	type result struct {
		file  string
		convs []tt.Conversion
		err   error
	}
	results := make(chan result, len(files))
	sem := make(chan struct{}, workers)

	var wg sync.WaitGroup
	var cancelled error
	for _, filePath := range files {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(fp string) {
			defer wg.Done()
			defer func() { <-sem }()

			if recent != nil {
				recent.add(filepath.Base(fp))
			}
			convs, err := processor(engine, fp)
			if err != nil && logger != nil {
				logger.Error("Error processing file", zap.String("file", fp), zap.Error(err))
			}
			results <- result{file: fp, convs: convs, err: err}
			if bar != nil {
				_ = bar.Add(1)
			}
		}(filePath)
	}
	wg.Wait()
	close(results)

	var collected []result
	for r := range results {
		if r.err == nil {
			collected = append(collected, r)
		}
	}
	sort.Slice(collected, func(i, j int) bool { return collected[i].file < collected[j].file })

	convs := []tt.Conversion{}
	for _, r := range collected {
		convs = append(convs, r.convs...)
	}
	if opts.Progress != nil {
		fmt.Fprintln(opts.Progress)
	}
	return convs, cancelled
}

func collectFiles(root string) ([]string, error) {
	found, err := scanner.New(root, ".go").SkipTests().Scan()
	if err != nil {
		return nil, fmt.Errorf("error walking %s: %w", root, err)
	}
	files := make([]string, len(found))
	for i, f := range found {
		files[i] = f.Path
	}
	return files, nil
}

// recentFiles keeps the names of the last files started on screen above
// the progress bar.
type recentFiles struct {
	mu    sync.Mutex
	w     io.Writer
	names []string
}

func newRecentFiles(w io.Writer) *recentFiles {
	// make space for the list and the bar
	for range maxShowRecentFiles + 1 {
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "\033[%dA", maxShowRecentFiles+1)
	return &recentFiles{w: w, names: make([]string, maxShowRecentFiles)}
}

func (r *recentFiles) add(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	copy(r.names[1:], r.names[:len(r.names)-1])
	r.names[0] = name

	fmt.Fprintf(r.w, "\033[%dA", maxShowRecentFiles)
	for _, n := range r.names {
		// \033[2K clears the line, \r returns to its start
		fmt.Fprintf(r.w, "\033[2K\r%s\n", n)
	}
}

// ProcessComplexity flags the functions of convs whose cyclomatic
// complexity exceeds threshold.
func ProcessComplexity(convs []tt.Conversion, threshold int) []tt.Issue {
	var issues []tt.Issue
	for _, c := range convs {
		if c.Complexity <= threshold {
			continue
		}
		issues = append(issues, tt.Issue{
			Rule:       tt.RuleComplexity,
			Category:   "style",
			Filename:   c.Filename,
			Message:    fmt.Sprintf("function %s has a cyclomatic complexity of %d (threshold %d)", c.Func, c.Complexity, threshold),
			Suggestion: "split the function before converting it",
			Start:      c.Start,
			End:        c.End,
			Severity:   tt.SeverityWarning,
		})
	}
	return issues
}

func ProcessFile(engine Converter, filePath string) ([]tt.Conversion, error) {
	return engine.Run(filePath)
}

func ProcessSource(engine Converter, source []byte) ([]tt.Conversion, error) {
	return engine.RunSource(source)
}

func hasDesiredExtension(path string) bool {
	return filepath.Ext(path) == ".go" && !strings.HasSuffix(path, "_test.go")
}
