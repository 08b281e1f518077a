package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"pr-review-engine/internal/analysis"
	"pr-review-engine/internal/config"
	"pr-review-engine/internal/domain"
	"pr-review-engine/internal/github"
	"pr-review-engine/internal/repository"
	"pr-review-engine/internal/usecase"
	"pr-review-engine/internal/workerpool"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newAnalyzeCmd(logger *logrus.Logger) *cobra.Command {
	var (
		mode        string
		scoringFile string
	)

	cmd := &cobra.Command{
		Use:   "analyze OWNER/REPO NUMBER",
		Short: "Fetch a pull request and print its review as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, repo, err := domain.SplitRepository(args[0])
			if err != nil {
				return err
			}
			number, err := strconv.Atoi(args[1])
			if err != nil || number <= 0 {
				return domain.ErrInvalidPRNumber
			}
			analysisMode, err := parseMode(mode)
			if err != nil {
				return err
			}

			cfg, _ := config.LoadConfig()
			if scoringFile == "" {
				scoringFile = cfg.ScoringFile
			}
			scoring, err := config.LoadScoringConfig(scoringFile)
			if err != nil {
				return err
			}

			client, err := github.NewClient(github.ConfigFrom(cfg.GitHub), logger)
			if err != nil {
				return err
			}
			defer client.Close()

			engine, err := analysis.NewEngine(scoring,
				analysis.WithWorkerPool(workerpool.Config{MaxWorkers: cfg.Workers.MaxWorkers}),
				analysis.WithLogger(logger),
			)
			if err != nil {
				return err
			}

			// Разовый анализ не сохраняет и не публикует результат.
			reviewUC := usecase.NewReviewUseCase(client, engine, nil, repository.NewMemoryReviewRepository(), logger)
			result, err := reviewUC.AnalyzePullRequest(cmd.Context(), owner, repo, number, analysisMode)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(domain.ModeFull), "analysis mode: full or incremental")
	cmd.Flags().StringVar(&scoringFile, "scoring", "", "path to scoring YAML (overrides SCORING_CONFIG)")
	return cmd
}

func parseMode(mode string) (domain.AnalysisMode, error) {
	switch domain.AnalysisMode(mode) {
	case domain.ModeFull, domain.ModeIncremental:
		return domain.AnalysisMode(mode), nil
	default:
		return "", fmt.Errorf("unknown mode %q", mode)
	}
}
