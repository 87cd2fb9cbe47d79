package main

import (
	"fmt"
	"io"
	"os"

	"github.com/apeaircreative/pepper-ecommerce-analysis/pkg/calculator"
	"github.com/apeaircreative/pepper-ecommerce-analysis/pkg/report"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Score every customer and write the journey report",
	Long: `Computes confidence progressions, journey stages, entry points (style and
category), style flow, stage transitions and confidence-building products.

Examples:
  pepper-journey report --data-dir data/processed
  pepper-journey report --dsn sqlite://analysis/pepper_analysis.db --format yaml --output journey.yaml`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.log.Sync()

	res, err := calculator.Run(ctx, a.ds, a.cfg.Engine(), a.log)
	if err != nil {
		return fmt.Errorf("compute: %w", err)
	}

	var w io.Writer = cmd.OutOrStdout()
	if a.cfg.Report.Output != "" {
		f, err := os.Create(a.cfg.Report.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := report.Render(w, res, a.cfg.Report.Format); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if a.cfg.Report.Output != "" {
		a.log.Info("report written", "path", a.cfg.Report.Output, "format", a.cfg.Report.Format)
	}
	return nil
}
