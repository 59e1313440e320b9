package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/worldcoin/world-id-example-airdrop/artifacts"
	"github.com/worldcoin/world-id-example-airdrop/config"
)

var BuildCmd = &cli.Command{
	Name:  "build",
	Usage: "Compile the Foundry project",
	Action: func(c *cli.Context) error {
		return runBuild(c.Context, artifacts.NewForge(cfg.ProjectDir), c.App.Writer)
	},
}

func runBuild(ctx context.Context, forge *artifacts.Forge, out io.Writer) error {
	fmt.Fprintf(out, "Building contracts in %s...\n", forge.Dir)
	output, err := forge.Build(ctx)
	if err != nil {
		return err
	}
	if cfg.Verbose {
		fmt.Fprintf(out, "%s", output)
	}
	fmt.Fprintln(out, "Build succeeded")
	return nil
}

var ConfigCmd = &cli.Command{
	Name:  "config",
	Usage: "Inspect the persisted deployment configuration",
	Subcommands: []*cli.Command{
		{
			Name:  "show",
			Usage: "Print the saved configuration with secrets masked",
			Action: func(c *cli.Context) error {
				rec, err := config.NewStore(cfg.ConfigFile, logger).Load()
				if err != nil {
					return err
				}
				return showRecord(c.App.Writer, cfg.ConfigFile, rec)
			},
		},
		{
			Name:  "plans",
			Usage: "List the built-in deployment plans",
			Action: func(c *cli.Context) error {
				for _, name := range config.BuiltinPlanNames() {
					plan, err := config.BuiltinPlan(name)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "%s\n", name)
					for _, step := range plan.Steps {
						fmt.Fprintf(c.App.Writer, "  %-26s %s\n", step.Name, step.Contract)
					}
				}
				return nil
			},
		},
	},
}

func showRecord(out io.Writer, path string, rec config.Record) error {
	if len(rec) == 0 {
		fmt.Fprintf(out, "No configuration saved at %s\n", path)
		return nil
	}
	fmt.Fprintf(out, "Configuration at %s:\n", path)
	for _, key := range rec.Keys() {
		value := rec.Get(key)
		if config.IsSecret(key) {
			value = config.Mask(value)
		}
		fmt.Fprintf(out, "  %-26s %s\n", key, value)
	}
	return nil
}
