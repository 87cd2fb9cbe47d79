package calculator

import (
	"context"
	"fmt"
	"time"

	"github.com/apeaircreative/pepper-ecommerce-analysis/pkg/errs"
	"github.com/apeaircreative/pepper-ecommerce-analysis/pkg/logger"
	"github.com/apeaircreative/pepper-ecommerce-analysis/pkg/models"
	"github.com/apeaircreative/pepper-ecommerce-analysis/pkg/prepare"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

// Run calcule le rapport complet : progression par client, étapes, points d'entrée,
// flux de styles, transitions d'étapes et produits "builders".
func Run(ctx context.Context, ds *prepare.Dataset, cfg models.Config, log *logger.Logger) (*models.Report, error) {
	if ds == nil {
		return nil, errs.InvalidInput("nil dataset")
	}
	if log == nil {
		log = logger.Nop()
	}
	eng := NewEngine(ds, cfg)

	histories := eng.Orderable()
	var skipped []string
	for _, h := range ds.Histories {
		if !h.Orderable {
			skipped = append(skipped, h.CustomerID)
			log.Warn("customer skipped: timestamps cannot be ordered", "customer_id", h.CustomerID)
		}
	}

	var bar *progressbar.ProgressBar
	if cfg.Verbose {
		bar = progressbar.Default(int64(len(histories)), "scoring customers")
	} else {
		bar = progressbar.DefaultSilent(int64(len(histories)))
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]models.CustomerResult, len(histories))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, h := range histories {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = Evaluate(h, cfg)
			_ = bar.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("score customers: %w", err)
	}
	_ = bar.Finish()

	labels := make(map[string][]models.Stage, len(results))
	stageCounts := map[string]int{}
	for _, r := range results {
		labels[r.CustomerID] = r.Stages
		stageCounts[r.Final.Stage.String()]++
		if cfg.Verbose {
			log.Debug("customer scored",
				"customer_id", r.CustomerID,
				"purchases", len(r.Progression),
				"stage", r.Final.Stage.String(),
				"score", r.Final.Score)
		}
	}

	stageFlow := map[string][]models.StageTransition{}
	for from, ts := range StageTransitions(labels) {
		stageFlow[from.String()] = ts
	}

	report := &models.Report{
		RunID:            uuid.NewString(),
		GeneratedAt:      time.Now().UTC(),
		Orders:           ds.Orders,
		Products:         len(ds.Products),
		Customers:        results,
		Skipped:          skipped,
		StageCounts:      stageCounts,
		EntryStyles:      EntryPoints(histories, ByStyle),
		EntryCategories:  EntryPoints(histories, ByCategory),
		StyleFlow:        StyleFlow(histories, ByStyle, cfg.FlowMinProbability),
		StageTransitions: stageFlow,
		Builders:         ConfidenceBuilders(histories, results, cfg.BuilderMinSupport),
		Warnings:         errs.CountByKind(ds.Warnings),
	}

	log.Info("journey analysis done",
		"run_id", report.RunID,
		"customers", len(results),
		"skipped", len(skipped),
		"orders", report.Orders,
		"warnings", len(ds.Warnings))
	return report, nil
}
