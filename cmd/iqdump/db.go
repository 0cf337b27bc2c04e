package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"iqdump-service/internal/database"
	"iqdump-service/internal/utils"
)

func dbCommand() *cli.Command {
	return &cli.Command{
		Name:  "db",
		Usage: "Manage the sweep history schema",
		Subcommands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Apply every pending migration",
				Action: withMigrator(func(c *cli.Context, m *database.Migrator) error {
					return m.Up()
				}),
			},
			{
				Name:  "rollback",
				Usage: "Revert every migration",
				Action: withMigrator(func(c *cli.Context, m *database.Migrator) error {
					return m.Down()
				}),
			},
			{
				Name:  "version",
				Usage: "Print the schema version",
				Action: withMigrator(func(c *cli.Context, m *database.Migrator) error {
					version, dirty, err := m.Version()
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "version=%d dirty=%t\n", version, dirty)
					return nil
				}),
			},
			{
				Name:  "force",
				Usage: "Set the schema version without running migrations",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "to", Required: true, Usage: "Schema version to record"},
				},
				Action: withMigrator(func(c *cli.Context, m *database.Migrator) error {
					return m.Force(c.Int("to"))
				}),
			},
		},
	}
}

// withMigrator connects to the configured database for the duration of fn
func withMigrator(fn func(*cli.Context, *database.Migrator) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, logger, err := loadConfig(c)
		if err != nil {
			return err
		}
		defer utils.CloseLogger(logger)

		db, err := database.NewConnection(&cfg.Database, logger)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		defer db.Close()

		if err := fn(c, database.NewMigrator(db, logger, &cfg.Database)); err != nil {
			return cli.Exit(err.Error(), 1)
		}
		return nil
	}
}
