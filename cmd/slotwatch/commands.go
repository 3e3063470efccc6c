package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/aleister1102/slotwatch/internal/adminapi"
	"github.com/aleister1102/slotwatch/internal/bot"
	"github.com/aleister1102/slotwatch/internal/metrics"
	"github.com/aleister1102/slotwatch/internal/notifier"
	"github.com/aleister1102/slotwatch/internal/scheduler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// RunCmd is the long-running service.
type RunCmd struct{}

func (c *RunCmd) Run(ctx context.Context, cli *CLI) error {
	a, err := newApp(cli)
	if err != nil {
		return err
	}
	defer a.close()

	tg, err := a.telegram()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheusRecorder(reg)

	sw, tn, closeEvents := a.sweeper(tg)
	defer closeEvents()
	sw.WithRecorder(recorder)

	sched, err := scheduler.NewScheduler(a.cfg.SchedulerConfig, sw, a.logger)
	if err != nil {
		return err
	}
	sched.WithRecorder(recorder)

	var wg sync.WaitGroup
	if a.cfg.TelegramConfig.EnableCommands {
		cb := bot.NewCommandBot(a.tracker(), tn, a.formatter, a.logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := cb.Run(ctx, tg); err != nil {
				a.logger.Error().Err(err).Msg("Telegram command bot stopped with error")
			}
		}()
	}

	if a.cfg.AdminConfig.Enabled {
		srv := adminapi.NewServer(a.store, sched, reg, a.logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Serve(ctx, a.cfg.AdminConfig.ListenAddr); err != nil {
				a.logger.Error().Err(err).Msg("Admin API stopped with error")
			}
		}()
	}

	if err := sched.Start(ctx); err != nil {
		return err
	}
	a.logger.Info().Int("interval_minutes", a.cfg.SchedulerConfig.IntervalMinutes).Msg("slotwatch is running")

	<-ctx.Done()
	a.logger.Info().Msg("Shutdown signal received")

	if err := sched.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close scheduler")
	}
	wg.Wait()
	a.logger.Info().Msg("slotwatch stopped")
	return nil
}

// SweepCmd runs one sweep and prints its report.
type SweepCmd struct {
	JSON bool `help:"Print the report as JSON"`
}

func (c *SweepCmd) Run(ctx context.Context, cli *CLI) error {
	a, err := newApp(cli)
	if err != nil {
		return err
	}
	defer a.close()

	tg, err := a.telegram()
	if err != nil {
		return err
	}
	sw, _, closeEvents := a.sweeper(tg)
	defer closeEvents()

	report, err := sw.Sweep(ctx)
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	fmt.Printf("Sweep %s finished in %s\n", report.SweepID, report.Duration())
	for _, r := range report.Resources {
		line := fmt.Sprintf("  [%s] #%d %s", r.Outcome, r.ResourceID, r.URL)
		if r.NewSlots > 0 {
			line += fmt.Sprintf(" (%d new)", r.NewSlots)
		}
		if r.Error != "" {
			line += ": " + r.Error
		}
		fmt.Println(line)
	}
	return nil
}

// AddCmd registers a URL the same way the /add chat command does.
type AddCmd struct {
	Owner int64  `arg:"" help:"Owner (Telegram chat) id"`
	URL   string `arg:"" help:"Interview scheduling URL"`
}

func (c *AddCmd) Run(ctx context.Context, cli *CLI) error {
	a, err := newApp(cli)
	if err != nil {
		return err
	}
	defer a.close()

	resource, slots, err := a.tracker().Track(ctx, c.Owner, c.URL)
	if err != nil {
		return err
	}
	fmt.Println(a.formatter.SlotSummary(resource.Label, resource.URL, slots))
	return nil
}

// RemoveCmd unregisters a URL.
type RemoveCmd struct {
	Owner int64  `arg:"" help:"Owner (Telegram chat) id"`
	URL   string `arg:"" help:"Tracked URL"`
}

func (c *RemoveCmd) Run(ctx context.Context, cli *CLI) error {
	a, err := newApp(cli)
	if err != nil {
		return err
	}
	defer a.close()

	removed, err := a.tracker().Untrack(ctx, c.Owner, c.URL)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("%s is not tracked by owner %d", c.URL, c.Owner)
	}
	fmt.Println(a.formatter.Removed(c.URL))
	return nil
}

// ListCmd prints an owner's tracked URLs.
type ListCmd struct {
	Owner int64 `arg:"" help:"Owner (Telegram chat) id"`
}

func (c *ListCmd) Run(ctx context.Context, cli *CLI) error {
	a, err := newApp(cli)
	if err != nil {
		return err
	}
	defer a.close()

	resources, err := a.tracker().List(ctx, c.Owner)
	if err != nil {
		return err
	}
	for _, r := range resources {
		fmt.Printf("#%d\t%s\t%s\t%s\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.DisplayLabel(), r.URL)
	}
	return nil
}

// SlotsCmd prints the stored slots of one resource.
type SlotsCmd struct {
	ResourceID int64 `arg:"" name:"resource-id" help:"Tracked resource id (see list)"`
}

func (c *SlotsCmd) Run(ctx context.Context, cli *CLI) error {
	a, err := newApp(cli)
	if err != nil {
		return err
	}
	defer a.close()

	slots, err := a.tracker().Slots(ctx, c.ResourceID)
	if err != nil {
		return err
	}
	for _, s := range slots {
		state := "pending"
		if s.Notified {
			state = "notified"
		}
		fmt.Printf("%s\t%s\n", notifier.FormatSlot(s), state)
	}
	return nil
}
