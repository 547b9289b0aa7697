package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"tenf/portal/internal/api"
	"tenf/portal/internal/config"
	"tenf/portal/internal/constants"
	"tenf/portal/internal/db"
	"tenf/portal/internal/logging"
	"tenf/portal/internal/metrics"
)

// Audit entries written by the CLI carry this actor.
const cliActor = "tenfctl"

func main() {
	app := &cli.App{
		Name:  "tenfctl",
		Usage: "maintenance tasks for the TENF portal",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "path to the configuration file", EnvVars: []string{"CONFIG_PATH"}},
		},
		Commands: []*cli.Command{
			migrateCommand(),
			syncCommand(),
			exportCommand(),
			importMembersCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type runtime struct {
	conns    *api.Connections
	services *api.Services
}

func (r *runtime) close() {
	_ = r.conns.SQL.Close()
	_ = r.conns.Redis.Close()
}

func open(c *cli.Context) (*runtime, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	if err := logging.Init(cfg.Server.AppEnv); err != nil {
		return nil, err
	}
	m := metrics.NewMetricsRegistry(prometheus.NewRegistry())
	conns, err := api.OpenConnections(c.Context, cfg, m)
	if err != nil {
		return nil, err
	}
	_, svcs := api.NewServices(c.Context, cfg, conns, m)
	return &runtime{conns: conns, services: svcs}, nil
}

func withRuntime(fn func(ctx context.Context, c *cli.Context, rt *runtime) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		rt, err := open(c)
		if err != nil {
			return err
		}
		defer rt.close()
		defer logging.Close()
		return fn(c.Context, c, rt)
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "create or update the relational schema",
		Action: withRuntime(func(ctx context.Context, c *cli.Context, rt *runtime) error {
			if err := db.AutoMigrate(rt.conns.ORM); err != nil {
				return err
			}
			fmt.Println("Schema is up to date")
			return nil
		}),
	}
}

func syncCommand() *cli.Command {
	entityFlag := &cli.StringSliceFlag{Name: "entity", Usage: "limit to these entities (default: all)"}
	return &cli.Command{
		Name:  "sync",
		Usage: "compare and reconcile the blob and relational stores",
		Subcommands: []*cli.Command{
			{
				Name:  "check",
				Usage: "report blob records missing from Postgres",
				Flags: []cli.Flag{entityFlag},
				Action: withRuntime(func(ctx context.Context, c *cli.Context, rt *runtime) error {
					report, err := rt.services.Consistency.Check(ctx, c.StringSlice("entity")...)
					if err != nil {
						return err
					}
					for _, e := range report.Entities {
						fmt.Printf("%-12s blob=%d relational=%d missing=%d\n", e.Entity, e.BlobCount, e.RelationalCount, len(e.MissingInRelational))
					}
					if report.Diverged() {
						return cli.Exit("stores diverged", 2)
					}
					return nil
				}),
			},
			{
				Name:      "import",
				Usage:     "copy missing blob records into Postgres",
				ArgsUsage: "<entity>...",
				Action: withRuntime(func(ctx context.Context, c *cli.Context, rt *runtime) error {
					targets := c.Args().Slice()
					if len(targets) == 0 {
						targets = constants.DualStoreEntities
					}
					for _, entity := range targets {
						res, err := rt.services.Consistency.ImportMissing(ctx, cliActor, entity)
						if err != nil {
							return fmt.Errorf("%s: %w", entity, err)
						}
						fmt.Printf("%-12s imported=%d failed=%d\n", res.Entity, res.Imported, len(res.Failed))
					}
					return nil
				}),
			},
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export-evaluations",
		Usage:     "write a month's evaluations to an xlsx file",
		ArgsUsage: "<YYYY-MM>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file (default: evaluations-<month>.xlsx)"},
		},
		Action: withRuntime(func(ctx context.Context, c *cli.Context, rt *runtime) error {
			month := c.Args().First()
			data, err := rt.services.Evaluations.ExportMonth(ctx, month)
			if err != nil {
				return err
			}
			out := c.String("out")
			if out == "" {
				out = fmt.Sprintf("evaluations-%s.xlsx", month)
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Printf("Wrote %s\n", out)
			return nil
		}),
	}
}

func importMembersCommand() *cli.Command {
	return &cli.Command{
		Name:      "import-members",
		Usage:     "create or update members from a csv or xlsx file",
		ArgsUsage: "<file>",
		Action: withRuntime(func(ctx context.Context, c *cli.Context, rt *runtime) error {
			path := c.Args().First()
			if path == "" {
				return cli.Exit("missing file argument", 1)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			report, err := rt.services.Members.Import(ctx, cliActor, path, data)
			if err != nil {
				return err
			}
			fmt.Printf("created=%d updated=%d errors=%d\n", report.Created, report.Updated, len(report.Errors))
			for _, e := range report.Errors {
				fmt.Println("  " + e)
			}
			return nil
		}),
	}
}
