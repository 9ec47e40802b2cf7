package bcao

import (
	"context"
	"sync"

	"github.com/tintun2602/eduwallet-sub000/pkg/errorcode"
)

// OperationStatus is the terminal status of a submitted operation.
type OperationStatus int

const (
	Confirmed OperationStatus = iota + 1
	Failed
)

func (s OperationStatus) String() string {
	switch s {
	case Confirmed:
		return "confirmed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is what a pending operation resolves to.
type Outcome struct {
	Status OperationStatus
	Reason string // Only set when Failed
	*TransactionCreationInfo
}

// PendingOperation is a handle on a submitted operation. It resolves exactly once.
type PendingOperation struct {
	ID      string
	Kind    OperationKind
	done    chan struct{}
	once    sync.Once
	outcome Outcome
}

// NewPendingOperation creates an unresolved handle. Gateways resolve it with `Resolve`.
func NewPendingOperation(id string, kind OperationKind) *PendingOperation {
	return &PendingOperation{
		ID:   id,
		Kind: kind,
		done: make(chan struct{}),
	}
}

// Resolve records the outcome. Only the first call has an effect; it reports whether this call resolved the handle.
func (p *PendingOperation) Resolve(outcome Outcome) bool {
	resolved := false
	p.once.Do(func() {
		p.outcome = outcome
		close(p.done)
		resolved = true
	})

	return resolved
}

// Confirm resolves the handle as Confirmed.
func (p *PendingOperation) Confirm(info *TransactionCreationInfo) bool {
	return p.Resolve(Outcome{Status: Confirmed, TransactionCreationInfo: info})
}

// Fail resolves the handle as Failed.
func (p *PendingOperation) Fail(reason string) bool {
	return p.Resolve(Outcome{Status: Failed, Reason: reason})
}

// Done is closed once the operation is resolved.
func (p *PendingOperation) Done() <-chan struct{} {
	return p.done
}

// Outcome returns the outcome. The second value is false while the operation is unresolved.
func (p *PendingOperation) Outcome() (Outcome, bool) {
	select {
	case <-p.done:
		return p.outcome, true
	default:
		return Outcome{}, false
	}
}

// Wait blocks until the operation resolves or ctx ends. A Failed outcome is returned as a
// `*errorcode.LedgerSubmissionFailure`. Giving up on ctx does not cancel the submission.
func (p *PendingOperation) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-p.done:
		if p.outcome.Status == Failed {
			return p.outcome, p.Failure()
		}
		return p.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Failure converts a Failed outcome to an error. It returns nil for unresolved or confirmed operations.
func (p *PendingOperation) Failure() error {
	outcome, ok := p.Outcome()
	if !ok || outcome.Status != Failed {
		return nil
	}

	return &errorcode.LedgerSubmissionFailure{
		OperationID: p.ID,
		Kind:        string(p.Kind),
		Reason:      outcome.Reason,
	}
}
