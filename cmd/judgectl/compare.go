package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"judge/pkg/judge/baseline"
	"judge/pkg/judge/model"
)

func newCompareCmd() *cobra.Command {
	var (
		resultPaths []string
		labels      []string
		outputPath  string
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare CompositeResults across one or more agent runtimes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(resultPaths) < 2 {
				return &usageError{msg: "compare: need at least two --result flags"}
			}
			if len(labels) != len(resultPaths) {
				return &usageError{msg: "compare: --label count must match --result count"}
			}

			labeled := make([]*baseline.Labeled, 0, len(resultPaths))
			for i, p := range resultPaths {
				res, err := loadCompositeResult(p)
				if err != nil {
					return fmt.Errorf("compare: %w", err)
				}
				labeled = append(labeled, &baseline.Labeled{Label: labels[i], Result: res})
			}

			var a, b, c *baseline.Labeled
			a = labeled[0]
			if len(labeled) > 1 {
				b = labeled[1]
			}
			if len(labeled) > 2 {
				c = labeled[2]
			}

			comparisons := baseline.CompareAll(a, b, c)
			return writeJSON(outputPath, comparisons)
		},
	}

	cmd.Flags().StringArrayVar(&resultPaths, "result", nil, "path to a CompositeResult JSON file (repeatable, up to 3)")
	cmd.Flags().StringArrayVar(&labels, "label", nil, "human-readable label for each --result, in order")
	cmd.Flags().StringVar(&outputPath, "output", "", "write JSON result here instead of stdout")

	return cmd
}

func loadCompositeResult(path string) (*model.CompositeResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var res model.CompositeResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &res, nil
}
