package service

import (
	"context"
	"errors"
	"sync"

	"github.com/tintun2602/eduwallet-sub000/pkg/models/permission"
)

// ErrorTransitionRolledBack is reported by `Transition.Wait` when the transition was rolled back locally before the
// ledger answered.
var ErrorTransitionRolledBack = errors.New("permission change rolled back locally")

// TransitionKind is the holder action behind a transition.
type TransitionKind string

const (
	TransitionApprove TransitionKind = "approve"
	TransitionRevoke  TransitionKind = "revoke"
)

// TransitionStatus is where a transition stands in its reconciliation.
type TransitionStatus int

const (
	TransitionPending TransitionStatus = iota
	TransitionConfirmed
	TransitionRolledBack
)

func (s TransitionStatus) String() string {
	switch s {
	case TransitionPending:
		return "pending"
	case TransitionConfirmed:
		return "confirmed"
	case TransitionRolledBack:
		return "rolled back"
	default:
		return "unknown"
	}
}

// Transition is one entry of the permission transition log. Pre and Post are the states of Key before and after the
// action; nil means absent. Pre and Post never change after creation.
type Transition struct {
	ID   string // Ledger operation ID
	Kind TransitionKind
	Key  permission.Key
	Pre  *permission.Permission
	Post *permission.Permission

	preSeq    uint64
	settleSeq uint64 // Guarded by the owning ledger's lock

	mu     sync.Mutex
	status TransitionStatus
	err    error
	done   chan struct{}
}

// TransitionRecord is a read-only copy of a transition.
type TransitionRecord struct {
	ID     string                 `json:"id"`
	Kind   TransitionKind         `json:"kind"`
	Pre    *permission.Permission `json:"pre,omitempty"`
	Post   *permission.Permission `json:"post,omitempty"`
	Status string                 `json:"status"`
	Error  string                 `json:"error,omitempty"`
}

func newTransition(id string, kind TransitionKind, key permission.Key, pre *permission.Permission, preSeq uint64, post *permission.Permission) *Transition {
	t := &Transition{
		ID:     id,
		Kind:   kind,
		Key:    key,
		preSeq: preSeq,
		status: TransitionPending,
		done:   make(chan struct{}),
	}

	if pre != nil {
		preCopy := *pre
		t.Pre = &preCopy
	}
	if post != nil {
		postCopy := *post
		t.Post = &postCopy
	}

	return t
}

// Status returns the current status.
func (t *Transition) Status() TransitionStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.status
}

// Done is closed once the transition is confirmed or rolled back.
func (t *Transition) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the transition settles or ctx ends. It returns nil when the ledger confirmed the change, a
// `*errorcode.LedgerSubmissionFailure` when the ledger rejected it (the view is already restored), or
// `ErrorTransitionRolledBack` after a local rollback.
func (t *Transition) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// finish settles the transition. Only the first call has an effect.
func (t *Transition) finish(status TransitionStatus, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != TransitionPending {
		return
	}

	t.status = status
	t.err = err
	close(t.done)
}

func (t *Transition) record() TransitionRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	r := TransitionRecord{
		ID:     t.ID,
		Kind:   t.Kind,
		Pre:    t.Pre,
		Post:   t.Post,
		Status: t.status.String(),
	}
	if t.err != nil {
		r.Error = t.err.Error()
	}

	return r
}
