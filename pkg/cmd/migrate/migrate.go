package migrate

import (
	"github.com/spf13/cobra"

	"github.com/mpapenbr/racetiming-analytics/log"
	"github.com/mpapenbr/racetiming-analytics/pkg/cmd/util"
	"github.com/mpapenbr/racetiming-analytics/pkg/config"
	"github.com/mpapenbr/racetiming-analytics/pkg/db/migrate"
	"github.com/mpapenbr/racetiming-analytics/pkg/utils"
)

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "performs database migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startMigration()
		},
	}
	return cmd
}

func startMigration() error {
	if err := util.WaitForServices(utils.ExtractFromDBURL(config.DB)); err != nil {
		log.Error("database not ready", log.ErrorField(err))
		return err
	}
	version, err := migrate.MigrateDb(config.DB)
	if err != nil {
		log.Error("migration failed", log.ErrorField(err))
		return err
	}
	log.Info("database migrated", log.Uint("version", version))
	return nil
}
