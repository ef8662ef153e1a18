package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	lanternqueue "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/infrastructure/queue"
	lanternmigrations "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/infrastructure/repositories/migrations"
	"github.com/Black-And-White-Club/lantern-bot/config"
	"github.com/Black-And-White-Club/lantern-bot/internal/db/bundb"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"
)

func main() {
	var (
		cfg      *config.Config
		db       *bun.DB
		migrator *migrate.Migrator
	)

	cliApp := &cli.App{
		Name:  "bun",
		Usage: "lantern database migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: "config.yaml",
				Usage: "path to the configuration file",
			},
		},
		Before: func(c *cli.Context) error {
			var err error
			cfg, err = config.LoadConfig(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.Postgres.DSN == "" {
				return fmt.Errorf("postgres dsn is not configured")
			}
			db, err = bundb.Open(c.Context, cfg.Postgres.DSN)
			if err != nil {
				return err
			}
			migrator = migrate.NewMigrator(db, lanternmigrations.Migrations)
			return nil
		},
		After: func(*cli.Context) error {
			if db != nil {
				return db.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			newDBCommand(func() *migrate.Migrator { return migrator }, func() *config.Config { return cfg }),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newDBCommand(migrator func() *migrate.Migrator, cfg func() *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: func(c *cli.Context) error {
					return migrator().Init(c.Context)
				},
			},
			{
				Name:  "migrate",
				Usage: "migrate database",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "skip-river", Usage: "leave the river job tables alone"},
				},
				Action: func(c *cli.Context) error {
					group, err := migrator().Migrate(c.Context)
					if err != nil {
						return err
					}
					if group.IsZero() {
						fmt.Println("No new lantern migrations to run")
					} else {
						fmt.Printf("Migrated lantern to %s\n", group)
					}

					if c.Bool("skip-river") {
						return nil
					}
					if err := lanternqueue.Migrate(c.Context, cfg().Postgres.DSN); err != nil {
						return err
					}
					fmt.Println("River job tables are up to date")
					return nil
				},
			},
			{
				Name:  "rollback",
				Usage: "rollback the last migration group",
				Action: func(c *cli.Context) error {
					group, err := migrator().Rollback(c.Context)
					if err != nil {
						return err
					}
					if group.IsZero() {
						fmt.Println("No groups to roll back")
					} else {
						fmt.Printf("Rolled back %s\n", group)
					}
					return nil
				},
			},
			{
				Name:  "create_go",
				Usage: "create Go migration",
				Action: func(c *cli.Context) error {
					name := strings.Join(c.Args().Slice(), "_")
					mf, err := migrator().CreateGoMigration(c.Context, name)
					if err != nil {
						return err
					}
					fmt.Printf("Created migration %s (%s)\n", mf.Name, mf.Path)
					return nil
				},
			},
			{
				Name:  "create_sql",
				Usage: "create up and down SQL migrations",
				Action: func(c *cli.Context) error {
					name := strings.Join(c.Args().Slice(), "_")
					files, err := migrator().CreateSQLMigrations(c.Context, name)
					if err != nil {
						return err
					}
					for _, mf := range files {
						fmt.Printf("Created migration %s (%s)\n", mf.Name, mf.Path)
					}
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Action: func(c *cli.Context) error {
					ms, err := migrator().MigrationsWithStatus(c.Context)
					if err != nil {
						return err
					}
					fmt.Printf("Migrations: %s\n", ms)
					fmt.Printf("  Applied: %s\n", ms.Applied())
					fmt.Printf("  Unapplied: %s\n", ms.Unapplied())
					return nil
				},
			},
		},
	}
}
