package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kilianp07/cellsched/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the auto-schedule trigger and the metrics endpoint",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()

		svc, err := app.New(cfg)
		if err != nil {
			return err
		}
		defer closeService(svc)
		return svc.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
