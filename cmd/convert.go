package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/flatssa/convert"
	"github.com/gnolang/flatssa/internal"
	"github.com/gnolang/flatssa/internal/config"
	tt "github.com/gnolang/flatssa/internal/types"
)

var (
	ignorePaths string
	jsonOutput  bool
	outPath     string
	writeFiles  bool
	cacheDir    string
	showOutput  bool
	noProgress  bool
)

var convertCmd = &cobra.Command{
	Use:   "convert [paths...]",
	Short: "Convert the functions of Go files into straight-line form",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(commandContext(cmd), timeout)
		defer cancel()

		engine, err := newEngine()
		if err != nil {
			return err
		}
		if ignorePaths != "" {
			for _, path := range strings.Split(ignorePaths, ",") {
				engine.IgnorePath(strings.TrimSpace(path))
			}
		}
		if cacheDir != "" {
			cache, err := internal.NewCache(cacheDir)
			if err != nil {
				return err
			}
			cache.AddDependency(config.ConfigPath(cfgFile))
			engine.UseCache(cache)
		}

		processor := convert.ProcessFile
		if writeFiles {
			processor = func(c convert.Converter, path string) ([]tt.Conversion, error) {
				return rewriteFile(engine, path)
			}
		}
		return runConvert(ctx, cmd, engine, args, processor)
	},
}

func init() {
	convertCmd.Flags().StringVar(&ignorePaths, "ignore-paths", "", "Comma-separated list of paths to ignore")
	convertCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output conversions in JSON format")
	convertCmd.Flags().StringVarP(&outPath, "output", "o", "", "Output path (when using JSON)")
	convertCmd.Flags().BoolVarP(&writeFiles, "write", "w", false, "Rewrite the files in place")
	convertCmd.Flags().StringVar(&cacheDir, "cache", "", "Directory caching conversions of unchanged files")
	convertCmd.Flags().BoolVar(&showOutput, "show", true, "Print the converted functions")
	convertCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Hide the progress bar")
}

func runConvert(ctx context.Context, cmd *cobra.Command, engine convert.Converter, paths []string, processor convert.Processor) error {
	opts := convert.Options{}
	if !noProgress && !jsonOutput {
		opts.Progress = cmd.ErrOrStderr()
	}
	convs, err := convert.ProcessFiles(ctx, logger, engine, paths, processor, opts)
	if err != nil {
		logger.Error("Error processing files", zap.Error(err))
		return err
	}

	if jsonOutput {
		if err := writeJSON(cmd.OutOrStdout(), conversionsByFile(convs), outPath); err != nil {
			return err
		}
	} else {
		printConversions(cmd.OutOrStdout(), convs, showOutput && !writeFiles)
	}

	if hasErrors(convs) {
		return ErrFailed
	}
	return nil
}

// rewriteFile replaces the converted functions of path in place.
func rewriteFile(engine *internal.Engine, path string) ([]tt.Conversion, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	out, convs, err := engine.Rewrite(path)
	if err != nil {
		return nil, err
	}
	if bytes.Equal(src, out) {
		return convs, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
		return nil, fmt.Errorf("error writing file: %w", err)
	}
	logger.Info("rewrote file", zap.String("file", path))
	return convs, nil
}
