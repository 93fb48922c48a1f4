package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/flatssa/convert"
)

var threshold int

var cycloCmd = &cobra.Command{
	Use:   "cyclo [paths...]",
	Short: "Report functions whose cyclomatic complexity is above a threshold",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(commandContext(cmd), timeout)
		defer cancel()

		engine, err := newEngine()
		if err != nil {
			return err
		}
		convs, err := convert.ProcessFiles(ctx, logger, engine, args, convert.ProcessFile, convert.Options{})
		if err != nil {
			logger.Error("Error processing files for cyclomatic complexity", zap.Error(err))
			return err
		}

		issues := convert.ProcessComplexity(convs, threshold)
		if jsonOutput {
			if err := writeJSON(cmd.OutOrStdout(), issues, outPath); err != nil {
				return err
			}
		} else {
			printIssues(cmd.OutOrStdout(), issues)
		}
		if len(issues) > 0 {
			return ErrFailed
		}
		return nil
	},
}

func init() {
	cycloCmd.Flags().IntVar(&threshold, "threshold", 10, "Cyclomatic complexity threshold")
	cycloCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output issues in JSON format")
	cycloCmd.Flags().StringVarP(&outPath, "output", "o", "", "Output path (when using JSON)")
}
