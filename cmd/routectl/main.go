package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"radiology-routing/internal/combining"
	"radiology-routing/internal/config"
	"radiology-routing/internal/models"
	"radiology-routing/internal/notify"
	"radiology-routing/internal/routing"
	"radiology-routing/internal/store"
	"radiology-routing/internal/workload"
)

type app struct {
	cfg    *config.Config
	store  *store.PostgresStore
	engine *routing.Engine
	log    *zap.Logger

	close func()
}

func newApp(configPath string) (*app, error) {
	log, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	conn, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pg := store.NewPostgresStore(conn)
	scorer := routing.NewScorer(pg, routing.ScorerConfig{
		HorizonDays:         cfg.CapacityHorizonDays,
		ReferenceWeeklyLoad: cfg.ReferenceWeeklyLoad,
	})
	notifier := notify.NewWebhookNotifier(cfg.WebhookURL, log)
	engine := routing.NewEngine(pg, scorer, notifier, log, cfg.ScorerConcurrency)
	return &app{
		cfg:    cfg,
		store:  pg,
		engine: engine,
		log:    log,
		close: func() {
			conn.Close()
			log.Sync()
		},
	}, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "routectl",
		Short:         "Route imaging work items to sites and inspect workload balance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("ROUTING_CONFIG"), "path to config file")

	withApp := func(run func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			defer a.close()
			return run(cmd.Context(), a, args)
		}
	}

	assign := &cobra.Command{
		Use:   "assign <order|requisition> <id>",
		Short: "Score all sites and assign one work item",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			kind := models.KindOrder
			if args[0] == "requisition" {
				kind = models.KindRequisition
			} else if args[0] != "order" {
				return fmt.Errorf("unknown work item kind %q", args[0])
			}
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[1])
			}
			result, err := a.engine.Assign(ctx, models.WorkItemRef{Kind: kind, ID: id})
			if err != nil {
				return err
			}
			return printJSON(result)
		}),
	}

	auto := &cobra.Command{
		Use:   "auto",
		Short: "Route every pending unassigned work item",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			outcomes, err := a.engine.AutoRoutePending(ctx)
			if err != nil {
				return err
			}
			return printJSON(outcomes)
		}),
	}

	urgent := &cobra.Command{
		Use:   "urgent",
		Short: "Route time-sensitive work items due within 24 hours",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			outcomes, err := a.engine.RouteTimeSensitive(ctx)
			if err != nil {
				return err
			}
			return printJSON(outcomes)
		}),
	}

	combinable := &cobra.Command{
		Use:   "combinable",
		Short: "List groups of pending orders that could share one visit",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			groups, err := combining.NewCombiner(a.store, a.log).FindCombinable(ctx)
			if err != nil {
				return err
			}
			return printJSON(groups)
		}),
	}

	optimize := &cobra.Command{
		Use:   "optimize",
		Short: "Report per-site workload balance and staffing recommendations",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			start := time.Now()
			result, err := workload.NewOptimizer(a.store, a.cfg.WorkloadBand, a.log).
				Optimize(ctx, start, start.AddDate(0, 0, 7))
			if err != nil {
				return err
			}
			return printJSON(result)
		}),
	}

	root.AddCommand(assign, auto, urgent, combinable, optimize)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
