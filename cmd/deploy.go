package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/worldcoin/world-id-example-airdrop/artifacts"
	"github.com/worldcoin/world-id-example-airdrop/client"
	"github.com/worldcoin/world-id-example-airdrop/config"
	"github.com/worldcoin/world-id-example-airdrop/orchestrator"
)

var (
	buildFlag = &cli.BoolFlag{
		Name:  "build",
		Usage: "Run forge build before deploying",
	}
	verifyFlag = &cli.BoolFlag{
		Name:  "verify",
		Usage: "Verify deployed contracts on Etherscan",
	}
)

var (
	DeployAirdropCmd      = planCommand(config.PlanAirdrop, "Interactively deploys the WorldIDAirdrop contract.")
	DeployMultiAirdropCmd = planCommand(config.PlanMultiAirdrop, "Interactively deploys the WorldIDMultiAirdrop contract.")
	MockAirdropCmd        = planCommand(config.PlanMockAirdrop, "Interactively deploys WorldIDRouterMock alongside WorldIDAirdrop for testing.")
	MockMultiAirdropCmd   = planCommand(config.PlanMockMultiAirdrop, "Interactively deploys WorldIDRouterMock alongside WorldIDMultiAirdrop for testing.")
)

var DeployPlanCmd = &cli.Command{
	Name:  "deploy-plan",
	Usage: "Deploy the steps of a JSON plan file",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "plan",
			Usage:    "Path to the plan file",
			Required: true,
		},
		useConfigFlag,
		buildFlag,
		verifyFlag,
	},
	Action: func(c *cli.Context) error {
		plan, err := config.LoadPlan(c.String("plan"))
		if err != nil {
			return err
		}
		return runPlan(c, plan)
	},
}

func planCommand(name, usage string) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: []cli.Flag{useConfigFlag, buildFlag, verifyFlag},
		Action: func(c *cli.Context) error {
			plan, err := config.BuiltinPlan(name)
			if err != nil {
				return err
			}
			return runPlan(c, plan)
		},
	}
}

func runPlan(c *cli.Context, plan *config.Plan) error {
	ctx := c.Context
	s, err := newSession(c)
	if err != nil {
		return err
	}

	conn, cl, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer cl.Close()

	keys := plan.RequiredKeys()
	if err := s.resolve(keys...); err != nil {
		return err
	}
	if err := config.Require(s.rec, keys...); err != nil {
		return err
	}

	forge := artifacts.NewForge(cfg.ProjectDir)
	if c.Bool(buildFlag.Name) {
		if err := runBuild(ctx, forge, s.out); err != nil {
			return err
		}
	}

	store := artifacts.NewStore(artifactsDir())
	orch := orchestrator.New(newSubmitter(cl, conn), store,
		orchestrator.WithLogger(logger),
		orchestrator.WithCheckpoint(s.store.Save),
		orchestrator.WithObserver(progressPrinter(s.out)),
	)

	fmt.Fprintf(s.out, "Running %s (%d steps) from %s\n", plan.Name, len(plan.Steps), conn.From.Hex())
	if cl.Network() == config.NetworkFilecoin {
		if filAddr, err := client.DelegatedAddress(conn.From); err == nil {
			fmt.Fprintf(s.out, "Deployer filecoin address: %s\n", filAddr)
		}
	}
	results, runErr := orch.Run(ctx, plan, s.rec)
	printSummary(ctx, s.out, cl, results)
	if runErr != nil {
		return runErr
	}

	if c.Bool(verifyFlag.Name) {
		verifyResults(ctx, s.out, forge, store, cl, conn, results)
	}

	return s.save()
}

func progressPrinter(out io.Writer) func(orchestrator.StepEvent) {
	return func(e orchestrator.StepEvent) {
		switch e.State {
		case orchestrator.Submitting:
			fmt.Fprintf(out, "  %s: deploying...\n", e.Step)
		case orchestrator.Failed:
			fmt.Fprintf(out, "  %s: failed: %v\n", e.Step, e.Err)
		}
	}
}

func printSummary(ctx context.Context, out io.Writer, cl chainBackend, results []orchestrator.StepResult) {
	if len(results) == 0 {
		return
	}
	fmt.Fprintf(out, "\nDeployments:\n")
	for _, r := range results {
		status := "deployed"
		if r.Skipped {
			status = "already deployed"
		}
		fmt.Fprintf(out, "  %-28s %s  %s (%s)\n", r.Step, r.Address.Hex(), r.Contract, status)
		if r.TxHash != (common.Hash{}) {
			fmt.Fprintf(out, "  %-28s tx %s\n", "", r.TxHash.Hex())
		}
		if r.Skipped || r.TxHash == (common.Hash{}) {
			continue
		}
		msgCid, err := cl.MessageCID(ctx, r.TxHash)
		if err != nil {
			logger.Warn("Failed to look up message CID", "step", r.Step, "err", err)
			continue
		}
		if msgCid.Defined() {
			fmt.Fprintf(out, "  %-28s message %s\n", "", msgCid)
		}
	}
}

// verifyResults submits every contract deployed in this run for source
// verification. Failures are reported and never fail the command.
func verifyResults(ctx context.Context, out io.Writer, forge *artifacts.Forge, store *artifacts.Store, cl chainBackend, conn *config.Connection, results []orchestrator.StepResult) {
	chainID, err := cl.ChainID(ctx)
	if err != nil {
		logger.Warn("Skipping verification, chain ID unavailable", "err", err)
		return
	}

	for _, r := range results {
		if r.Skipped {
			continue
		}
		art, err := store.Load(r.Contract)
		if err != nil {
			logger.Warn("Skipping verification", "step", r.Step, "err", err)
			continue
		}
		_, err = forge.Verify(ctx, artifacts.VerifyRequest{
			Address:         r.Address,
			SourceID:        art.SourceID(),
			ChainID:         chainID.Uint64(),
			ConstructorArgs: r.ConstructorArgs,
			EtherscanAPIKey: conn.EtherscanAPIKey,
			RPCURL:          conn.RPCURL,
		})
		if err != nil {
			fmt.Fprintf(out, "Warning: verification of %s failed: %v\n", r.Step, err)
			continue
		}
		fmt.Fprintf(out, "Verified %s at %s\n", r.Contract, r.Address.Hex())
	}
}
