package cmd

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/worldcoin/world-id-example-airdrop/config"
)

var (
	cfg    *config.Config
	logger log.Logger = log.Root()
)

// NewApp creates a new CLI app
func NewApp() *cli.App {
	app := &cli.App{
		Name:  "airdrop-deployer",
		Usage: "Interactive deployment of the World ID airdrop contracts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-file",
				Usage:   "Persisted deployment configuration (env: DEPLOY_CONFIG_FILE)",
				EnvVars: []string{"DEPLOY_CONFIG_FILE"},
			},
			&cli.StringFlag{
				Name:    "artifacts",
				Usage:   "Foundry build output directory (env: ARTIFACTS_DIR)",
				EnvVars: []string{"ARTIFACTS_DIR"},
			},
			&cli.StringFlag{
				Name:    "project",
				Usage:   "Foundry project directory (env: PROJECT_DIR)",
				EnvVars: []string{"PROJECT_DIR"},
			},
			&cli.StringFlag{
				Name:    "network",
				Usage:   "Chain transport: ethereum or filecoin (env: NETWORK)",
				EnvVars: []string{"NETWORK"},
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Lotus JWT token for the filecoin network (env: FILECOIN_TOKEN)",
				EnvVars: []string{"FILECOIN_TOKEN"},
			},
			&cli.BoolFlag{
				Name:  "yes",
				Usage: "Never prompt; accept defaults and fail on missing values",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Verbose output (env: VERBOSE)",
				EnvVars: []string{"VERBOSE"},
			},
			&cli.BoolFlag{
				Name:    "antithesis",
				Usage:   "Enable deployment property assertions (env: ANTITHESIS)",
				EnvVars: []string{"ANTITHESIS"},
			},
		},
		Before: func(c *cli.Context) error {
			// A missing .env is not an error.
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to load .env: %w", err)
			}

			cfg = config.Load()

			if c.IsSet("config-file") {
				cfg.ConfigFile = c.String("config-file")
			}
			if c.IsSet("artifacts") {
				cfg.ArtifactsDir = c.String("artifacts")
			}
			if c.IsSet("project") {
				cfg.ProjectDir = c.String("project")
			}
			if c.IsSet("network") {
				cfg.Network = c.String("network")
			}
			if c.IsSet("token") {
				cfg.Token = c.String("token")
			}
			if c.IsSet("verbose") {
				cfg.Verbose = c.Bool("verbose")
			}
			if c.IsSet("antithesis") {
				cfg.Antithesis = c.Bool("antithesis")
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			setupLogging(cfg.Verbose)
			config.SetAntithesisMode(cfg.Antithesis)
			return nil
		},
		Commands: []*cli.Command{
			DeployAirdropCmd,
			DeployMultiAirdropCmd,
			MockAirdropCmd,
			MockMultiAirdropCmd,
			SetAllowanceCmd,
			DeployPlanCmd,
			BuildCmd,
			ConfigCmd,
		},
	}
	return app
}

func setupLogging(verbose bool) {
	level := log.LevelInfo
	if verbose {
		level = log.LevelDebug
	}
	logger = log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, level, true))
	log.SetDefault(logger)
}

func Execute() {
	if err := NewApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
