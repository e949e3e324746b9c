package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/cellsched/app"
	"github.com/kilianp07/cellsched/core/model"
	"github.com/kilianp07/cellsched/pkg/export"
)

var summaryOpts struct {
	from   string
	to     string
	cells  []string
	format string
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print cell utilisation over a date range",
	RunE:  runSummary,
}

func init() {
	f := summaryCmd.Flags()
	f.StringVar(&summaryOpts.from, "from", "", "first date YYYY-MM-DD (default today)")
	f.StringVar(&summaryOpts.to, "to", "", "last date YYYY-MM-DD (default from + 13 days)")
	f.StringSliceVar(&summaryOpts.cells, "cell", nil, "restrict to these cells")
	f.StringVar(&summaryOpts.format, "format", "json", "output format: json or csv")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	format, err := export.ParseFormat(summaryOpts.format)
	if err != nil {
		return err
	}
	from, to, err := summaryRange(summaryOpts.from, summaryOpts.to, time.Now())
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.MQTT.Enabled = false

	ctx, stop := signalContext()
	defer stop()

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer closeService(svc)

	rows, err := svc.Summary(ctx, from, to, summaryOpts.cells)
	if err != nil {
		return err
	}
	return export.WriteSummaries(cmd.OutOrStdout(), format, rows)
}

func summaryRange(fromStr, toStr string, now time.Time) (model.Date, model.Date, error) {
	from := model.DateOf(now)
	if fromStr != "" {
		d, err := model.ParseDate(fromStr)
		if err != nil {
			return model.Date{}, model.Date{}, err
		}
		from = d
	}
	to := from.AddDays(13)
	if toStr != "" {
		d, err := model.ParseDate(toStr)
		if err != nil {
			return model.Date{}, model.Date{}, err
		}
		to = d
	}
	return from, to, nil
}
