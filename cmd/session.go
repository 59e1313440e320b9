package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ipfs/go-cid"
	"github.com/urfave/cli/v2"

	"github.com/worldcoin/world-id-example-airdrop/client"
	"github.com/worldcoin/world-id-example-airdrop/config"
	"github.com/worldcoin/world-id-example-airdrop/deployer"
)

var useConfigFlag = &cli.BoolFlag{
	Name:  "use-config",
	Usage: "Offer to load the configuration saved by prior runs",
	Value: true,
}

// chainBackend is what the commands need from a connected chain client.
type chainBackend interface {
	deployer.Backend
	Network() string
	MessageCID(ctx context.Context, txHash common.Hash) (cid.Cid, error)
	Close()
}

// dialBackend connects to the configured network. Tests replace it.
var dialBackend = func(ctx context.Context, cfg *config.Config, rpcURL string) (chainBackend, error) {
	cl, err := client.New(ctx, cfg, rpcURL)
	if err != nil {
		return nil, err
	}
	return cl, nil
}

// session is the per-command state: the persisted record, the resolver
// that fills it, and the store it is saved back to.
type session struct {
	store    *config.Store
	resolver *config.Resolver
	rec      config.Record
	out      io.Writer
}

func newSession(c *cli.Context) (*session, error) {
	out := c.App.Writer
	if out == nil {
		out = os.Stdout
	}
	in := c.App.Reader
	if in == nil {
		in = os.Stdin
	}

	s := &session{
		store:    config.NewStore(cfg.ConfigFile, logger),
		resolver: config.NewResolver(os.LookupEnv, newLinePrompter(in, out), !c.Bool("yes")),
		rec:      config.Record{},
		out:      out,
	}

	if !c.Bool(useConfigFlag.Name) {
		return s, nil
	}
	if !s.resolver.Confirm("Do you want to load configuration from prior runs?", true) {
		fmt.Fprintln(out, "Configuration not loaded")
		return s, nil
	}

	rec, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	if len(rec) == 0 {
		fmt.Fprintln(out, "No configuration from prior runs available: continuing")
	} else {
		fmt.Fprintf(out, "Configuration loaded from %s\n", s.store.Path())
	}
	s.rec = rec
	return s, nil
}

// resolve fills keys and persists whatever was gathered, so answers
// survive a failure later in the run.
func (s *session) resolve(keys ...config.Key) error {
	s.resolver.ResolveAll(s.rec, keys...)
	return s.save()
}

func (s *session) save() error {
	if err := s.store.Save(s.rec); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	return nil
}

// connect resolves and validates the connection keys, then dials the chain.
func (s *session) connect(ctx context.Context) (*config.Connection, chainBackend, error) {
	if err := s.resolve(config.ConnectionKeys...); err != nil {
		return nil, nil, err
	}
	conn, err := config.ValidateConnection(s.rec)
	if err != nil {
		return nil, nil, err
	}

	cl, err := dialBackend(ctx, cfg, conn.RPCURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Connected", "network", cl.Network(), "rpc", conn.RPCURL, "from", conn.From)
	return conn, cl, nil
}

func newSubmitter(cl deployer.Backend, conn *config.Connection) *deployer.Submitter {
	return deployer.NewSubmitter(cl, deployer.NewKeySigner(conn.PrivateKey), deployer.Options{
		GasLimit:     cfg.GasLimit,
		PollInterval: cfg.PollInterval,
		Timeout:      cfg.ContractTimeout,
		Logger:       logger,
	})
}

func artifactsDir() string {
	if filepath.IsAbs(cfg.ArtifactsDir) {
		return cfg.ArtifactsDir
	}
	return filepath.Join(cfg.ProjectDir, cfg.ArtifactsDir)
}
