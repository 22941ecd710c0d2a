package migrate

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/f1-race-engineer/log"
	"github.com/mpapenbr/f1-race-engineer/pkg/config"
	dbmigrate "github.com/mpapenbr/f1-race-engineer/pkg/db/migrate"
	"github.com/mpapenbr/f1-race-engineer/pkg/utils"
)

var ErrNoDB = errors.New("no database configured")

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "performs database migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startMigration(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&config.MigrationSourceURL,
		"migration-source-url",
		"m",
		"",
		"url to migration files, e.g. file:///migrations (default: embedded)")

	return cmd
}

func startMigration(ctx context.Context) error {
	if config.DB == "" {
		return ErrNoDB
	}
	if ctx == nil {
		ctx = context.Background()
	}
	// wait for database
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}
	postgresAddr := utils.ExtractFromDBURL(config.DB)
	if err = utils.WaitForTCP(ctx, postgresAddr, timeout); err != nil {
		log.Error("database not ready", log.ErrorField(err))
		return err
	}

	if config.MigrationSourceURL != "" {
		log.Info("Using migrations files at", log.String("source", config.MigrationSourceURL))
		err = dbmigrate.MigrateFrom(config.MigrationSourceURL, config.DB)
	} else {
		log.Info("Using embedded migrations")
		err = dbmigrate.MigrateDb(config.DB)
	}
	if err != nil {
		log.Error("migration failed", log.ErrorField(err))
		return err
	}
	log.Info("Database is up to date")
	return nil
}
