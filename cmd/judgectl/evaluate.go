package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"judge/internal/config"
	"judge/pkg/judge/composite"
	"judge/pkg/judge/model"
	"judge/pkg/judge/orchestrator"
	"judge/pkg/judge/traceio"
)

func newEvaluateCmd() *cobra.Command {
	var (
		outputPath    string
		reviewPath    string
		paperPath     string
		tracePath     string
		tasksDir      string
		provider      string
		enabledTiers  []int
		skipEval      bool
		reportEnabled bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run the three-tier Judge pipeline over a review",
		RunE: func(cmd *cobra.Command, args []string) error {
			if skipEval && reportEnabled {
				return &usageError{msg: "evaluate: --skip-eval and --report are mutually exclusive"}
			}
			if skipEval {
				return nil
			}

			review, err := os.ReadFile(reviewPath)
			if err != nil {
				return fmt.Errorf("reading review: %w", err)
			}
			paper, err := os.ReadFile(paperPath)
			if err != nil {
				return fmt.Errorf("reading paper: %w", err)
			}

			cfg := config.Load()
			if provider != "" {
				cfg.Tier2.Provider = provider
			}
			if len(enabledTiers) > 0 {
				cfg.Orchestrator.EnabledTiers = enabledTiers
			}

			var trace = loadTraceOrNil(tracePath, tasksDir)

			orch := orchestrator.NewDefault(cfg)
			results, err := orch.EvaluateComprehensive(context.Background(), orchestrator.Input{
				AgentOutput: string(review),
				Paper:       string(paper),
				Review:      string(review),
				Trace:       trace,
			})
			if err != nil {
				return fmt.Errorf("evaluate: %w", err)
			}

			scorer := composite.NewScorer(cfg)
			result, err := scorer.EvaluateWithTrace(results, trace)
			if err != nil {
				return fmt.Errorf("evaluate: %w", err)
			}

			return writeJSON(outputPath, result)
		},
	}

	cmd.Flags().StringVar(&reviewPath, "review", "", "path to the agent-generated review text")
	cmd.Flags().StringVar(&paperPath, "paper", "", "path to the paper excerpt text")
	cmd.Flags().StringVar(&tracePath, "trace", "", "path to a trace artifact directory (solo or teams)")
	cmd.Flags().StringVar(&tasksDir, "tasks-dir", "", "explicit tasks directory override (teams mode)")
	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider for tier 2 (auto, anthropic, openai, gemini)")
	cmd.Flags().IntSliceVar(&enabledTiers, "tiers", nil, "enabled tier numbers, e.g. 1,2,3")
	cmd.Flags().BoolVar(&skipEval, "skip-eval", false, "skip evaluation entirely")
	cmd.Flags().BoolVar(&reportEnabled, "report", false, "report flag, mutually exclusive with --skip-eval (no report is generated)")
	cmd.Flags().StringVar(&outputPath, "output", "", "write JSON result here instead of stdout")

	return cmd
}

func loadTraceOrNil(tracePath, tasksDir string) *model.TraceRecord {
	if tracePath == "" {
		return nil
	}
	adapter := traceio.NewAdapter(tracePath, tasksDir)
	rec, err := adapter.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to parse trace at %s: %v\n", tracePath, err)
		return nil
	}
	return rec
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if path == "" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
