package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/flatssa/convert"
	"github.com/gnolang/flatssa/internal"
	"github.com/gnolang/flatssa/internal/config"
)

const defaultTimeout = 5 * time.Minute

// ErrFailed is returned by Execute when some function could not be
// converted or verified. The details have already been printed.
var ErrFailed = errors.New("flatssa: some functions failed")

var (
	cfgFile   string
	timeout   time.Duration
	debug     bool
	nonStrict bool
	funcs     []string

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:              "flatssa [paths...]",
	Short:            "flatssa - linearize Go functions into straight-line SSA form",
	TraverseChildren: true, // Prioritize subcommands
	SilenceUsage:     true,
	SilenceErrors:    true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogger(debug || config.DebugFromEnv())
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			// display help when only 'flatssa' is entered
			return cmd.Help()
		}
		// Format: flatssa [path1 path2 ...] => behaves like the convert subcommand
		return convertCmd.RunE(convertCmd, args)
	},
}

func setupLogger(debug bool) error {
	var (
		l   *zap.Logger
		err error
	)
	if debug {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}
	logger = l
	return nil
}

// newEngine builds an engine from the configuration file with the
// command line overrides applied.
func newEngine() (*internal.Engine, error) {
	return convert.New(config.ConfigPath(cfgFile), logger, func(c *config.Config) {
		if nonStrict {
			c.Strict = false
		}
		if len(funcs) > 0 {
			c.Funcs = append(c.Funcs, funcs...)
		}
	})
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "configuration file (default $FLATSSA_CONFIG or "+config.DefaultPath+")")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", defaultTimeout, "give up after this long")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&nonStrict, "nonstrict", false, "convert every function in non-strict mode")
	rootCmd.PersistentFlags().StringSliceVar(&funcs, "func", nil, "only convert these functions (Name or Type.Method)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(symbolsCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(cycloCmd)
}
