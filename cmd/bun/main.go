package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"

	gamemigrations "github.com/pedrolmn/chess-report/app/modules/games/infrastructure/repositories/migrations"
	reportmigrations "github.com/pedrolmn/chess-report/app/modules/report/infrastructure/repositories/migrations"
	usermigrations "github.com/pedrolmn/chess-report/app/modules/users/infrastructure/repositories/migrations"
	"github.com/pedrolmn/chess-report/config"
)

// moduleMigrator pairs a module name with its migrator. Order matters:
// reports must exist before the tables that reference it.
type moduleMigrator struct {
	name     string
	migrator *migrate.Migrator
}

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	pgdb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN)))
	db := bun.NewDB(pgdb, pgdialect.New())
	defer db.Close()

	migrators := []moduleMigrator{
		{"report", migrate.NewMigrator(db, reportmigrations.Migrations)},
		{"games", migrate.NewMigrator(db, gamemigrations.Migrations)},
		{"users", migrate.NewMigrator(db, usermigrations.Migrations)},
	}

	cliApp := &cli.App{
		Name: "bun",
		Commands: []*cli.Command{
			newMultiModuleDBCommand(migrators),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func findMigrator(migrators []moduleMigrator, name string) (*migrate.Migrator, bool) {
	for _, m := range migrators {
		if m.name == name {
			return m.migrator, true
		}
	}
	return nil, false
}

func newMultiModuleDBCommand(migrators []moduleMigrator) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: func(c *cli.Context) error {
					for _, m := range migrators {
						fmt.Printf("Initializing migrations for module: %s\n", m.name)
						if err := m.migrator.Init(c.Context); err != nil {
							fmt.Printf("Error initializing migrations for module %s: %v\n", m.name, err)
							return err
						}
					}
					return nil
				},
			},
			{
				Name:  "migrate",
				Usage: "migrate database",
				Action: func(c *cli.Context) error {
					for _, m := range migrators {
						fmt.Printf("Running migrations for module: %s\n", m.name)
						group, err := m.migrator.Migrate(c.Context)
						if err != nil {
							return err
						}
						if group.IsZero() {
							fmt.Printf("No new migrations to run for module: %s\n", m.name)
						} else {
							fmt.Printf("Migrated module: %s to %s\n", m.name, group)
						}
					}
					return nil
				},
			},
			{
				Name:  "rollback",
				Usage: "rollback the last migration group",
				Action: func(c *cli.Context) error {
					for i := len(migrators) - 1; i >= 0; i-- {
						m := migrators[i]
						fmt.Printf("Rolling back migrations for module: %s\n", m.name)
						group, err := m.migrator.Rollback(c.Context)
						if err != nil {
							return err
						}
						if group.IsZero() {
							fmt.Printf("No groups to roll back for module: %s\n", m.name)
						} else {
							fmt.Printf("Rolled back module: %s to %s\n", m.name, group)
						}
					}
					return nil
				},
			},
			{
				Name:  "create_go",
				Usage: "create Go migration",
				Action: func(c *cli.Context) error {
					moduleName := c.Args().First()
					migrator, ok := findMigrator(migrators, moduleName)
					if !ok {
						return fmt.Errorf("invalid module name: %s", moduleName)
					}

					name := strings.Join(c.Args().Tail(), "_")
					mf, err := migrator.CreateGoMigration(c.Context, name)
					if err != nil {
						return err
					}
					fmt.Printf("Created migration for module %s: %s (%s)\n", moduleName, mf.Name, mf.Path)
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Action: func(c *cli.Context) error {
					for _, m := range migrators {
						ms, err := m.migrator.MigrationsWithStatus(c.Context)
						if err != nil {
							return err
						}
						fmt.Printf("Migrations for module: %s\n", m.name)
						fmt.Printf("  %s\n", ms)
						fmt.Printf("  Applied: %s\n", ms.Applied())
						fmt.Printf("  Unapplied: %s\n", ms.Unapplied())
					}
					return nil
				},
			},
		},
	}
}
