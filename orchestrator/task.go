package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/worldcoin/world-id-example-airdrop/artifacts"
	"github.com/worldcoin/world-id-example-airdrop/deployer"
)

// StepState is the lifecycle position of one deployment step.
type StepState int

const (
	Pending StepState = iota
	Linking
	Submitting
	Confirmed
	Failed
)

func (s StepState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Linking:
		return "linking"
	case Submitting:
		return "submitting"
	case Confirmed:
		return "confirmed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("StepState(%d)", int(s))
	}
}

// StepResult is the outcome of one step. Skipped steps were confirmed by
// an earlier run and carry only what the record remembers.
type StepResult struct {
	Step            string
	Contract        string
	Address         common.Address
	TxHash          common.Hash
	State           StepState
	Skipped         bool
	ConstructorArgs []byte
	Duration        time.Duration
}

// StepEvent is emitted on every state transition.
type StepEvent struct {
	Step  string
	State StepState
	Err   error
}

// StepError carries the step name and the state it failed in.
type StepError struct {
	Step  string
	State StepState
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed while %s: %v", e.Step, e.State, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Deployer submits contract creations.
type Deployer interface {
	Submit(ctx context.Context, payload deployer.Payload) (*deployer.Receipt, error)
}

// ArtifactSource loads compiled contracts by name.
type ArtifactSource interface {
	Load(contract string) (*artifacts.Artifact, error)
}
