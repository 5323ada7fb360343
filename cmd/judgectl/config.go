package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"judge/internal/config"
)

// configTemplate is the YAML shape judgectl writes for `config init`.
// Its tier2 and composite keys match the viper keys bound in
// internal/config. judgectl does not read the file back, and
// config.Load does not take these settings from a config file; the
// JUDGE_* environment variables are what override the defaults.
type configTemplate struct {
	Tier1 struct {
		TaskSuccessThreshold float64 `yaml:"task_success_threshold"`
		SemanticWeight       float64 `yaml:"semantic_weight"`
		CosineWeight         float64 `yaml:"cosine_weight"`
		JaccardWeight        float64 `yaml:"jaccard_weight"`
		TimeWeight           float64 `yaml:"time_weight"`
	} `yaml:"tier1"`
	Tier2 struct {
		Provider                 string `yaml:"provider"`
		FallbackProvider         string `yaml:"fallback_provider"`
		AssessmentTimeoutSeconds int    `yaml:"assessment_timeout_seconds"`
		ExcerptChars             int    `yaml:"excerpt_chars"`
	} `yaml:"tier2"`
	Composite struct {
		AcceptThreshold     float64 `yaml:"accept_threshold"`
		WeakAcceptThreshold float64 `yaml:"weak_accept_threshold"`
		WeakRejectThreshold float64 `yaml:"weak_reject_threshold"`
	} `yaml:"composite"`
}

func templateFromConfig(cfg *config.Config) configTemplate {
	var t configTemplate
	t.Tier1.TaskSuccessThreshold = cfg.Tier1.TaskSuccessThreshold
	t.Tier1.SemanticWeight = cfg.Tier1.SemanticWeight
	t.Tier1.CosineWeight = cfg.Tier1.CosineWeight
	t.Tier1.JaccardWeight = cfg.Tier1.JaccardWeight
	t.Tier1.TimeWeight = cfg.Tier1.TimeWeight
	t.Tier2.Provider = cfg.Tier2.Provider
	t.Tier2.FallbackProvider = cfg.Tier2.FallbackProvider
	t.Tier2.AssessmentTimeoutSeconds = cfg.Tier2.AssessmentTimeoutSeconds
	t.Tier2.ExcerptChars = cfg.Tier2.ExcerptChars
	t.Composite.AcceptThreshold = cfg.Composite.AcceptThreshold
	t.Composite.WeakAcceptThreshold = cfg.Composite.WeakAcceptThreshold
	t.Composite.WeakRejectThreshold = cfg.Composite.WeakRejectThreshold
	return t
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or scaffold judge.yaml",
	}
	cmd.AddCommand(newConfigInitCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var outputPath string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a judge.yaml populated with the built-in defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(templateFromConfig(config.Load()))
			if err != nil {
				return fmt.Errorf("config init: marshaling defaults: %w", err)
			}
			if outputPath == "" || outputPath == "-" {
				_, err = os.Stdout.Write(data)
				return err
			}
			return os.WriteFile(outputPath, data, 0o644)
		},
	}
	cmd.Flags().StringVar(&outputPath, "output", "judge.yaml", "file to write (- for stdout)")
	return cmd
}
