package cmd

import (
	"github.com/spf13/cobra"

	"github.com/gnolang/flatssa/internal/analyzer"
	tt "github.com/gnolang/flatssa/internal/types"
)

var checkCmd = &cobra.Command{
	Use:   "check [packages...]",
	Short: "Report functions of Go packages that cannot be converted",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			args = []string{"./..."}
		}
		if cfgFile != "" {
			if err := analyzer.Analyzer.Flags.Set("config", cfgFile); err != nil {
				return err
			}
		}
		if nonStrict {
			if err := analyzer.Analyzer.Flags.Set("nonstrict", "true"); err != nil {
				return err
			}
		}

		issues, err := analyzer.CheckPackages(".", args...)
		if err != nil {
			return err
		}
		if jsonOutput {
			if err := writeJSON(cmd.OutOrStdout(), issues, outPath); err != nil {
				return err
			}
		} else {
			printIssues(cmd.OutOrStdout(), issues)
		}
		for _, issue := range issues {
			if issue.Severity == tt.SeverityError {
				return ErrFailed
			}
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output issues in JSON format")
	checkCmd.Flags().StringVarP(&outPath, "output", "o", "", "Output path (when using JSON)")
}
