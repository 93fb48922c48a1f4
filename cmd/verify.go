package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/gnolang/flatssa/convert"
	tt "github.com/gnolang/flatssa/internal/types"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [paths...]",
	Short: "Convert functions and check them against the originals with the interpreter",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(commandContext(cmd), timeout)
		defer cancel()

		engine, err := newEngine()
		if err != nil {
			return err
		}
		showOutput = false
		return runConvert(ctx, cmd, engine, args, func(_ convert.Converter, path string) ([]tt.Conversion, error) {
			return engine.Verify(path)
		})
	},
}

func init() {
	verifyCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results in JSON format")
	verifyCmd.Flags().StringVarP(&outPath, "output", "o", "", "Output path (when using JSON)")
	verifyCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Hide the progress bar")
}
