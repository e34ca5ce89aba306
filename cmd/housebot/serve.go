package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"housebot/internal/backup"
	"housebot/internal/bot"
	"housebot/internal/building"
	"housebot/internal/dialog"
	"housebot/internal/i18n"
	"housebot/internal/metrics"
	"housebot/internal/render"
	"housebot/internal/telegram"
)

// sweepSchedule is how often idle dialog steps are expired.
const sweepSchedule = "@every 1m"

func (c *cli) serveCmd() *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.serve(ctx, seed)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", true, "generate an empty building when none is stored")
	return cmd
}

func (c *cli) serve(ctx context.Context, seed bool) error {
	cfg := c.cfg
	locale, err := i18n.Load(cfg.Language)
	if err != nil {
		return err
	}
	rec := metrics.New()

	var sink *backup.BlobSink
	storeOpts := []building.Option{building.WithMetrics(rec)}
	remote, err := c.openBackupStore(ctx)
	if err != nil {
		return err
	}
	if remote != nil {
		sink = backup.NewBlobSink(remote,
			backup.WithLogger(c.log.With("component", "backup")),
			backup.WithMetrics(rec))
		storeOpts = append(storeOpts, building.WithBackup(sink, cfg.Backup.Folder))
	}
	store, err := c.openBuilding(ctx, storeOpts...)
	if err != nil {
		return err
	}
	defer func() {
		if sink != nil {
			sink.Wait()
		}
		if err := store.Close(); err != nil {
			c.log.Warn("close building store", "error", err)
		}
	}()
	if seed {
		seeded, err := store.EnsureSeeded(ctx, cfg.FloorMin, cfg.FloorMax, render.MaxApartmentsPerFloor)
		if err != nil {
			return err
		}
		if seeded {
			c.log.Info("generated empty building", "file", cfg.BuildingFile)
		}
	}

	cache := render.NewCache(cfg.RenderCacheDir,
		render.NewRenderer(render.LocaleLabels(locale), render.DefaultColumns),
		c.rasterizer(), c.log.With("component", "render"))

	client, err := telegram.New(cfg.Token, telegram.WithLogger(c.log.With("component", "telegram")))
	if err != nil {
		return err
	}
	router, err := bot.NewRouter(bot.Config{
		Locale:            locale,
		FloorMin:          cfg.FloorMin,
		FloorMax:          cfg.FloorMax,
		ApartmentsPerPage: cfg.ApartmentsPerPage,
		DialogTimeout:     cfg.DialogTimeout,
	}, store, cache, client, bot.WithLogger(c.log.With("component", "bot")), bot.WithMetrics(rec))
	if err != nil {
		return err
	}

	sweeper := cron.New()
	if _, err := router.Tracker().Schedule(sweeper, sweepSchedule, func(key dialog.Key) {
		router.NotifyExpired(ctx, key)
	}); err != nil {
		return fmt.Errorf("schedule dialog sweep: %w", err)
	}
	sweeper.Start()
	defer func() { <-sweeper.Stop().Done() }()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := rec.Serve(ctx, cfg.MetricsAddr); err != nil {
				c.log.Error("metrics server stopped", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
		c.log.Info("metrics exposed", "addr", cfg.MetricsAddr)
	}

	c.log.Info("housebot started", "language", locale.Tag(), "storage", cfg.Storage.Driver, "bot", client.Username())
	err = client.Run(ctx, router)
	c.log.Info("housebot stopping")
	return err
}

// rasterizer returns the PNG converter, or nil when it is not installed.
func (c *cli) rasterizer() render.Rasterizer {
	if c.cfg.Rasterizer == "" {
		return nil
	}
	if _, err := exec.LookPath(c.cfg.Rasterizer); err != nil {
		c.log.Warn("rasterizer not found, plans are sent as SVG", "command", c.cfg.Rasterizer)
		return nil
	}
	return render.CommandRasterizer{Command: c.cfg.Rasterizer}
}
