package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/cellsched/app"
	"github.com/kilianp07/cellsched/pkg/export"
)

var scheduleOpts struct {
	snapshot  string
	out       string
	format    string
	startDate string
	dryRun    bool
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Plan the snapshot once and persist the result",
	RunE:  runSchedule,
}

func init() {
	f := scheduleCmd.Flags()
	f.StringVar(&scheduleOpts.snapshot, "snapshot", "", "snapshot file (overrides snapshot.path)")
	f.StringVarP(&scheduleOpts.out, "out", "o", "", "write the schedule to this file instead of stdout")
	f.StringVar(&scheduleOpts.format, "format", "json", "output format: json or csv")
	f.StringVar(&scheduleOpts.startDate, "start", "", "run start date YYYY-MM-DD (overrides scheduler.start_date)")
	f.BoolVar(&scheduleOpts.dryRun, "dry-run", false, "do not persist allocations or the run log")
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, _ []string) (err error) {
	format, err := export.ParseFormat(scheduleOpts.format)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if scheduleOpts.snapshot != "" {
		cfg.Snapshot.Path = scheduleOpts.snapshot
	}
	if scheduleOpts.startDate != "" {
		cfg.Scheduler.StartDate = scheduleOpts.startDate
		if err := cfg.Scheduler.Validate(); err != nil {
			return err
		}
	}
	if scheduleOpts.dryRun {
		cfg.Store.Backend = "memory"
		cfg.RunLog.Backend = "none"
		cfg.MQTT.Enabled = false
	}

	ctx, stop := signalContext()
	defer stop()

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer closeService(svc)
	svc.Start(ctx)

	out, runErr := svc.RunOnce(ctx, app.TriggerCLI)
	if out == nil {
		return runErr
	}

	var w io.Writer = cmd.OutOrStdout()
	if scheduleOpts.out != "" {
		f, ferr := os.Create(scheduleOpts.out)
		if ferr != nil {
			return ferr
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		w = f
	}
	if err := export.WriteSchedule(w, format, export.NewSchedule(out.RunID, out.Result)); err != nil {
		return fmt.Errorf("write schedule: %w", err)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), out.Result.Summary())
	return runErr
}
