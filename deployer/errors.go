package deployer

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ErrSubmission marks every failure to get a transaction confirmed.
var ErrSubmission = errors.New("transaction submission failed")

// Stage names the point in the submission pipeline where a failure occurred.
type Stage string

const (
	StagePrepare Stage = "prepare"
	StageSign    Stage = "sign"
	StageSend    Stage = "send"
	StageReceipt Stage = "receipt"
	StageRevert  Stage = "revert"
)

// SubmissionError reports a failed transaction. TxHash is zero when the
// transaction never reached the network.
type SubmissionError struct {
	Stage  Stage
	TxHash common.Hash
	Err    error
}

func (e *SubmissionError) Error() string {
	if e.TxHash == (common.Hash{}) {
		return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s failed for tx %s: %v", e.Stage, e.TxHash.Hex(), e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

func (e *SubmissionError) Is(target error) bool {
	return target == ErrSubmission
}
