// Package orchestrator runs deployment plans step by step, linking
// libraries, submitting contracts and recording their addresses.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/worldcoin/world-id-example-airdrop/config"
	"github.com/worldcoin/world-id-example-airdrop/deployer"
	"github.com/worldcoin/world-id-example-airdrop/linker"
)

type Option func(*Orchestrator)

func WithLogger(logger log.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithCheckpoint persists the record after every confirmed step.
func WithCheckpoint(fn func(config.Record) error) Option {
	return func(o *Orchestrator) { o.checkpoint = fn }
}

func WithObserver(fn func(StepEvent)) Option {
	return func(o *Orchestrator) { o.observer = fn }
}

type Orchestrator struct {
	deployer   Deployer
	artifacts  ArtifactSource
	logger     log.Logger
	checkpoint func(config.Record) error
	observer   func(StepEvent)
}

func New(d Deployer, source ArtifactSource, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		deployer:  d,
		artifacts: source,
		logger:    log.Root(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes plan against rec. Steps whose address is already in rec are
// skipped. The first failure stops the run; results for the steps before it
// are returned alongside a *StepError.
func (o *Orchestrator) Run(ctx context.Context, plan *config.Plan, rec config.Record) ([]StepResult, error) {
	if err := config.ValidatePlan(plan); err != nil {
		return nil, err
	}

	results := make([]StepResult, 0, len(plan.Steps))
	for _, step := range plan.Steps {
		o.notify(step.Name, Pending, nil)

		if recorded := rec.Get(step.AddressKey()); recorded != "" {
			result, err := o.skip(step, rec)
			if err != nil {
				return results, o.fail(step, Pending, err)
			}
			results = append(results, result)
			continue
		}

		result, err := o.deploy(ctx, plan, step, rec)
		if err != nil {
			return results, err
		}
		results = append(results, *result)
	}

	return results, nil
}

func (o *Orchestrator) skip(step config.Step, rec config.Record) (StepResult, error) {
	recorded := rec.Get(step.AddressKey())
	valid := common.IsHexAddress(recorded)
	config.AssertAlways(valid, "A recorded step address is a valid address", map[string]interface{}{
		"step":     step.Name,
		"recorded": recorded,
	})
	if !valid {
		return StepResult{}, fmt.Errorf("recorded %s is not an address: %q", step.AddressKey(), recorded)
	}

	o.logger.Info("Skipping step with recorded address", "step", step.Name, "address", recorded)
	o.notify(step.Name, Confirmed, nil)
	return StepResult{
		Step:     step.Name,
		Contract: step.Contract,
		Address:  common.HexToAddress(recorded),
		TxHash:   common.HexToHash(rec.Get(step.TxHashKey())),
		State:    Confirmed,
		Skipped:  true,
	}, nil
}

func (o *Orchestrator) deploy(ctx context.Context, plan *config.Plan, step config.Step, rec config.Record) (*StepResult, error) {
	start := time.Now()
	logger := o.logger.New("step", step.Name, "contract", step.Contract)

	// Steps without libraries go straight to preparing the submission.
	prepare := Submitting
	if len(step.Libraries) > 0 {
		prepare = Linking
	}
	o.notify(step.Name, prepare, nil)

	art, err := o.artifacts.Load(step.Contract)
	if err != nil {
		return nil, o.fail(step, prepare, err)
	}

	refs, err := o.libraryRefs(plan, step, rec)
	if err != nil {
		return nil, o.fail(step, prepare, err)
	}

	code, err := linker.LinkAll(art.Bytecode.Object, refs)
	if err != nil {
		var linkErr *linker.LinkError
		if errors.As(err, &linkErr) {
			linkErr.Step = step.Name
		}
		config.AssertUnreachable("Plan step left an unresolved library placeholder", map[string]interface{}{
			"step":  step.Name,
			"error": err.Error(),
		})
		return nil, o.fail(step, prepare, err)
	}
	if len(refs) > 0 {
		logger.Debug("Linked libraries", "count", len(refs))
	}

	if prepare == Linking {
		o.notify(step.Name, Submitting, nil)
	}
	args, err := config.ResolveArgs(step, rec, plan)
	if err != nil {
		return nil, o.fail(step, Submitting, err)
	}
	encoded, err := art.EncodeConstructor(args)
	if err != nil {
		return nil, o.fail(step, Submitting, err)
	}

	logger.Info("Deploying contract", "args", len(args))
	receipt, err := o.deployer.Submit(ctx, deployer.Payload{Bytecode: code, Args: encoded})
	if err != nil {
		return nil, o.fail(step, Submitting, err)
	}

	rec.Set(step.AddressKey(), receipt.Address.Hex())
	rec.Set(step.TxHashKey(), receipt.TxHash.Hex())
	if o.checkpoint != nil {
		if err := o.checkpoint(rec); err != nil {
			return nil, o.fail(step, Confirmed, fmt.Errorf("deployed at %s but failed to save record: %w", receipt.Address.Hex(), err))
		}
	}

	config.AssertSometimes(true, "Plan step confirmed", map[string]interface{}{
		"step":    step.Name,
		"address": receipt.Address.Hex(),
	})
	logger.Info("Contract deployed", "address", receipt.Address, "tx", receipt.TxHash, "block", receipt.BlockNumber)
	o.notify(step.Name, Confirmed, nil)

	return &StepResult{
		Step:            step.Name,
		Contract:        step.Contract,
		Address:         receipt.Address,
		TxHash:          receipt.TxHash,
		State:           Confirmed,
		ConstructorArgs: encoded,
		Duration:        time.Since(start),
	}, nil
}

// libraryRefs maps every placeholder form of each linked library to the
// address its step recorded.
func (o *Orchestrator) libraryRefs(plan *config.Plan, step config.Step, rec config.Record) ([]linker.Ref, error) {
	if len(step.Libraries) == 0 {
		return nil, nil
	}
	art, err := o.artifacts.Load(step.Contract)
	if err != nil {
		return nil, err
	}

	var refs []linker.Ref
	for _, name := range step.Libraries {
		lib, ok := plan.Step(name)
		if !ok {
			return nil, fmt.Errorf("unknown library step %s", name)
		}
		recorded := rec.Get(lib.AddressKey())
		if !common.IsHexAddress(recorded) {
			return nil, fmt.Errorf("library step %s has no recorded address", name)
		}
		addr := common.HexToAddress(recorded)

		placeholders := art.Placeholders(lib.Contract)
		if libArt, err := o.artifacts.Load(lib.Contract); err == nil && libArt.SourceID() != "" {
			placeholders = appendUnique(placeholders, linker.Placeholder(libArt.SourceID()))
		}
		for _, p := range placeholders {
			refs = append(refs, linker.Ref{Library: lib.Contract, Placeholder: p, Address: addr})
		}
	}
	return refs, nil
}

func (o *Orchestrator) fail(step config.Step, state StepState, err error) error {
	o.logger.Error("Step failed", "step", step.Name, "state", state, "err", err)
	o.notify(step.Name, Failed, err)
	return &StepError{Step: step.Name, State: state, Err: err}
}

func (o *Orchestrator) notify(step string, state StepState, err error) {
	if o.observer != nil {
		o.observer(StepEvent{Step: step, State: state, Err: err})
	}
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
