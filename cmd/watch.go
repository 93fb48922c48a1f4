package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	tt "github.com/gnolang/flatssa/internal/types"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dirs...]",
	Short: "Reconvert Go files whenever they change",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			args = []string{"."}
		}
		engine, err := newEngine()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		report := func(filename string, convs []tt.Conversion, err error) {
			if err != nil {
				logger.Error("Error converting file", zap.String("file", filename), zap.Error(err))
				return
			}
			printConversions(out, convs, showOutput)
		}
		if err := engine.StartWatching(ctx, report, args...); err != nil {
			return err
		}
		fmt.Fprintf(out, "watching %v, press Ctrl+C to stop\n", args)

		<-ctx.Done()
		return engine.StopWatching()
	},
}

func init() {
	watchCmd.Flags().BoolVar(&showOutput, "show", true, "Print the converted functions")
}
