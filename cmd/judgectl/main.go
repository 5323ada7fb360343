// Command judgectl is a thin presentation layer over the Judge
// subsystem's public contracts (§6.3): it is not the GUI, the sweep
// runner, or the report renderer described in spec.md's Non-goals —
// just enough cobra wiring to drive an evaluation or a baseline
// comparison from the shell.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"judge/internal/logging"
)

func main() {
	// The Judge never exports spans over the network (§6.4: in-memory,
	// single-process library) — an SDK provider with no exporter still
	// samples and ends spans, which is all pkg/judge/trace needs from
	// the otel API surface it calls.
	otel.SetTracerProvider(sdktrace.NewTracerProvider())

	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

func newRootCmd() *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:   "judgectl",
		Short: "Evaluate and compare agent-generated peer reviews",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Initialize(debug)
		},
	}
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	cmd.AddCommand(newEvaluateCmd())
	cmd.AddCommand(newCompareCmd())
	cmd.AddCommand(newConfigCmd())
	return cmd
}

// exitCodeFor maps an error to the exit codes from §6.3: 0 success
// (unreachable here — only called on error), 1 evaluation validation
// failure, 2 usage error.
func exitCodeFor(err error) int {
	if _, ok := err.(*usageError); ok {
		return 2
	}
	return 1
}

type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }
