package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gnolang/flatssa/formatter"
	"github.com/gnolang/flatssa/internal/frontend"
	tt "github.com/gnolang/flatssa/internal/types"
)

var symbolsLine int

var symbolsCmd = &cobra.Command{
	Use:   "symbols FILE",
	Short: "Print which version of each local is live on every source line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		filename := args[0]
		convs, err := engine.Run(filename)
		if err != nil {
			return err
		}

		if symbolsLine > 0 {
			file, err := frontend.ParseFile(filename)
			if err != nil {
				return err
			}
			fn, ok := file.FuncAt(symbolsLine)
			if !ok {
				return fmt.Errorf("%s:%d: not inside a function", filename, symbolsLine)
			}
			convs = only(convs, fn.QualifiedName())
			for i := range convs {
				if versions, ok := convs[i].Symbols[symbolsLine]; ok {
					convs[i].Symbols = map[int]map[string]string{symbolsLine: versions}
				} else {
					convs[i].Symbols = nil
				}
			}
		}

		if jsonOutput {
			tables := make(map[string]map[int]map[string]string, len(convs))
			for _, c := range convs {
				tables[c.Func] = c.Symbols
			}
			return writeJSON(cmd.OutOrStdout(), tables, outPath)
		}

		out := cmd.OutOrStdout()
		sort.SliceStable(convs, func(i, j int) bool { return convs[i].Start.Line < convs[j].Start.Line })
		failed := false
		for _, c := range convs {
			c.Output = ""
			fmt.Fprint(out, formatter.FormatConversion(c))
			switch {
			case c.Issue != nil:
				failed = failed || c.Issue.Severity == tt.SeverityError
				fmt.Fprintf(out, "  %s\n", c.Issue.Message)
			case len(c.Symbols) == 0 && !c.Skipped:
				fmt.Fprintln(out, "  no locals")
			default:
				fmt.Fprint(out, formatter.FormatSymbols(c.Symbols))
			}
		}
		if failed {
			return ErrFailed
		}
		return nil
	},
}

func only(convs []tt.Conversion, name string) []tt.Conversion {
	for _, c := range convs {
		if c.Func == name {
			return []tt.Conversion{c}
		}
	}
	return nil
}

func init() {
	symbolsCmd.Flags().IntVarP(&symbolsLine, "line", "l", 0, "Only show the function enclosing this line, at this line")
	symbolsCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output symbol tables in JSON format")
	symbolsCmd.Flags().StringVarP(&outPath, "output", "o", "", "Output path (when using JSON)")
}
