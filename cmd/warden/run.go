package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/intrntsrfr/warden"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to Discord and serve commands until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, log, err := loadConfig("warden")
		if err != nil {
			return err
		}
		defer log.Sync()

		db, err := warden.OpenDatabase(store.Config().Database, log)
		if err != nil {
			log.Error("failed to open database", zap.Error(err))
			return err
		}
		defer db.Close()

		b, err := warden.NewBot(&warden.Config{
			Store: store,
			DB:    db,
			Log:   log,
		})
		if err != nil {
			return err
		}
		defer b.Close()

		if err := b.Run(ctx); err != nil {
			return err
		}
		log.Info("running, press ctrl-c to stop")

		<-ctx.Done()
		log.Info("shutting down")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
