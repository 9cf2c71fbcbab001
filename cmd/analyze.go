package cmd

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"snaptrade/internal/dto"
	"snaptrade/internal/repository"
	"snaptrade/internal/service"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	analyzeFile      string
	analyzeSymbol    string
	analyzeTimeframe string
	analyzeInsight   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a chart screenshot from disk and print the signal as JSON",
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeFile, "file", "f", "", "path to the chart image (PNG, JPEG or WEBP)")
	analyzeCmd.Flags().StringVarP(&analyzeSymbol, "symbol", "s", "", "traded symbol shown in the chart")
	analyzeCmd.Flags().StringVarP(&analyzeTimeframe, "timeframe", "t", dto.DefaultTimeframe, "chart timeframe (only 1m is supported)")
	analyzeCmd.Flags().BoolVar(&analyzeInsight, "insight", false, "also print the derived insight labels")
	_ = analyzeCmd.MarkFlagRequired("file")
}

type analyzeOutput struct {
	*dto.AnalysisResult
	Insight *dto.Insight `json:"insight,omitempty"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, validator, err := newCoreDependency()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	data, err := os.ReadFile(analyzeFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", analyzeFile, err)
	}

	repo, err := repository.NewRepository(ctx, cfg, log)
	if err != nil {
		return err
	}
	services := service.NewService(cfg, log, repo, validator)

	req := dto.AnalyzeRequest{
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		Context:     &dto.AnalyzeContext{Symbol: analyzeSymbol},
	}
	if cmd.Flags().Changed("timeframe") {
		req.Context.Timeframe = &analyzeTimeframe
	}

	result, err := services.AnalyzerService.Analyze(ctx, req)
	if err != nil {
		return err
	}

	out := analyzeOutput{AnalysisResult: result}
	if analyzeInsight {
		insight := dto.NewInsight(*result)
		out.Insight = &insight
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
