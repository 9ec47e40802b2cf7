package service

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tintun2602/eduwallet-sub000/internal/blockchain/bcao"
	"github.com/tintun2602/eduwallet-sub000/pkg/errorcode"
	"github.com/tintun2602/eduwallet-sub000/pkg/models/permission"
	"github.com/tintun2602/eduwallet-sub000/pkg/sm2keyutils"
	"golang.org/x/sync/errgroup"
)

// PermissionLedger is the holder's view of the permissions counterparties hold or ask for.
//
// Approve and Revoke change the view immediately and then reconcile it with the ledger: a failed submission restores
// the state the key had before the action. Every action is recorded as a `Transition` holding its pre-state, so a
// rollback never depends on what the view happens to contain at that moment.
//
// At most one submission per key is outstanding; a second action fails with `errorcode.ErrorTransitionInFlight`
// until the ledger has answered the first one, even if that one was rolled back locally.
type PermissionLedger struct {
	gateway       bcao.ILedgerGateway
	identity      *sm2keyutils.SigningIdentity
	recordAddress string

	mu          sync.Mutex
	needsReload bool
	view        map[permission.Key]viewEntry
	seq         uint64
	inFlight    map[permission.Key]*Transition // Keyed until the ledger's verdict arrives
	transitions []*Transition

	// Transitions confirmed while a load is reading the ledger, stamped with settleSeq. A load applies the ones
	// stamped after it started, since its reads may predate them.
	loads            int
	settleSeq        uint64
	confirmedInLoads []*Transition
}

// MaxTransitionLog bounds the transition log of a ledger. Beyond it the oldest settled entries are dropped.
const MaxTransitionLog = 256

type viewEntry struct {
	perm permission.Permission
	seq  uint64 // Display order
}

// The four ledger queries and the phase/capability each one yields.
var permissionQueries = []struct {
	kind       bcao.QueryKind
	capability permission.Capability
	phase      permission.Phase
}{
	{bcao.QueryReadRequests, permission.Read, permission.Requested},
	{bcao.QueryWriteRequests, permission.Write, permission.Requested},
	{bcao.QueryActiveReads, permission.Read, permission.Granted},
	{bcao.QueryActiveWrites, permission.Write, permission.Granted},
}

// NewPermissionLedger creates an empty view. Call `LoadAll` to fill it.
func NewPermissionLedger(gateway bcao.ILedgerGateway, identity *sm2keyutils.SigningIdentity, recordAddress string) *PermissionLedger {
	return &PermissionLedger{
		gateway:       gateway,
		identity:      identity,
		recordAddress: recordAddress,
		needsReload:   true,
		view:          make(map[permission.Key]viewEntry),
		inFlight:      make(map[permission.Key]*Transition),
	}
}

// LoadAll returns the partitioned permissions. The ledger is read only on the first call and after `Invalidate`;
// other calls return the cached view, including optimistic changes.
func (l *PermissionLedger) LoadAll(ctx context.Context) (permission.Sets, error) {
	l.mu.Lock()
	if !l.needsReload {
		defer l.mu.Unlock()
		return l.partitionLocked(), nil
	}
	l.loads++
	startSeq := l.settleSeq
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.loads--
		if l.loads == 0 {
			l.confirmedInLoads = nil
		}
		l.mu.Unlock()
	}()

	fetched := make([][]string, len(permissionQueries))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range permissionQueries {
		i, q := i, q
		g.Go(func() error {
			state, err := readState(gctx, l.gateway, q.kind, l.identity.Address(), l.recordAddress)
			if err != nil {
				return errors.Wrapf(err, "cannot read %v %v permissions", q.capability, q.phase)
			}

			return state.Decode("counterparties", &fetched[i])
		})
	}
	if err := g.Wait(); err != nil {
		return permission.Sets{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.needsReload {
		// A concurrent load won.
		return l.partitionLocked(), nil
	}

	l.view = make(map[permission.Key]viewEntry)
	for i, q := range permissionQueries {
		for _, counterparty := range fetched[i] {
			perm := permission.Permission{Counterparty: counterparty, Capability: q.capability, Phase: q.phase}
			if existing, ok := l.view[perm.Key()]; ok {
				// Queries are ordered requests first, so a grant replaces a stale request.
				log.WithField("permission", perm.Key()).Warnf("ledger reports the permission as both %v and %v", existing.perm.Phase, perm.Phase)
			}
			l.putLocked(perm, 0)
		}
	}

	// Changes confirmed after the reads started may be missing from what was read.
	for _, t := range l.confirmedInLoads {
		if t.settleSeq > startSeq {
			l.applyPostLocked(t)
		}
	}

	// Keep outstanding optimistic changes visible on top of the fresh ledger state. Locally rolled back ones stay
	// as the ledger reports them.
	for _, t := range l.inFlight {
		if t.Status() == TransitionPending {
			l.applyPostLocked(t)
		}
	}

	l.needsReload = false
	return l.partitionLocked(), nil
}

// Invalidate makes the next `LoadAll` read the ledger again.
func (l *PermissionLedger) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.needsReload = true
}

// Approve grants a pending request. The request leaves `requests` and a grant enters `read` or `write` before this
// method returns; the returned transition reports the ledger's verdict.
//
// Parameters:
//
//	the Requested permission to approve
//
// Returns:
//
//	the transition handle
func (l *PermissionLedger) Approve(ctx context.Context, p permission.Permission) (*Transition, error) {
	if err := p.Capability.Validate(); err != nil {
		return nil, err
	}
	if p.Phase != permission.Requested {
		return nil, errors.Wrapf(errorcode.ErrorIllegalTransition, "only a requested permission can be approved, got %v", p.Phase)
	}

	granted := permission.NewGrant(p.Counterparty, p.Capability)
	return l.transition(ctx, TransitionApprove, p, &granted, bcao.OpGrantPermission)
}

// Revoke removes a permission. A Granted permission is revoked; a Requested one is denied. The permission leaves its
// set before this method returns; the returned transition reports the ledger's verdict.
//
// Parameters:
//
//	the permission to remove
//
// Returns:
//
//	the transition handle
func (l *PermissionLedger) Revoke(ctx context.Context, p permission.Permission) (*Transition, error) {
	if err := p.Capability.Validate(); err != nil {
		return nil, err
	}
	if p.Phase != permission.Requested && p.Phase != permission.Granted {
		return nil, errors.Wrapf(errorcode.ErrorIllegalTransition, "cannot revoke a permission in phase %v", p.Phase)
	}

	return l.transition(ctx, TransitionRevoke, p, nil, bcao.OpRevokePermission)
}

// Revert puts p back into the set matching its phase. It reinserts rather than toggles: afterwards the view holds
// exactly one copy of p, whatever it held before.
func (l *PermissionLedger) Revert(p permission.Permission) error {
	if err := p.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	seq := uint64(0)
	if existing, ok := l.view[p.Key()]; ok {
		seq = existing.seq
	}
	l.putLocked(p, seq)

	return nil
}

// Rollback undoes the local effect of a pending transition without waiting for the ledger. The submission itself
// cannot be withdrawn: the key accepts no new action until the ledger answers it, and that answer is then ignored.
func (l *PermissionLedger) Rollback(transitionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, t := range l.transitions {
		if t.ID != transitionID {
			continue
		}

		if t.Status() != TransitionPending {
			return errors.Wrapf(errorcode.ErrorIllegalTransition, "transition '%v' is already %v", t.ID, t.Status())
		}

		// The key stays busy until reconcile hears from the ledger.
		l.restoreLocked(t)
		t.finish(TransitionRolledBack, ErrorTransitionRolledBack)
		permissionTransitionsTotal.WithLabelValues(string(t.Kind), "rolled_back").Inc()
		return nil
	}

	return errorcode.ErrorNotFound
}

// Transitions returns a copy of the transition log, oldest first.
func (l *PermissionLedger) Transitions() []TransitionRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	records := make([]TransitionRecord, 0, len(l.transitions))
	for _, t := range l.transitions {
		records = append(records, t.record())
	}

	return records
}

func (l *PermissionLedger) transition(ctx context.Context, kind TransitionKind, pre permission.Permission, post *permission.Permission, opKind bcao.OperationKind) (*Transition, error) {
	key := pre.Key()
	args := (&bcao.PermissionArgs{Counterparty: key.Counterparty, Capability: key.Capability.String()}).ToArgs()

	op, err := bcao.NewOperation(opKind, l.identity.Address(), l.recordAddress, args)
	if err != nil {
		return nil, err
	}
	signedOp, err := bcao.SignOperation(l.identity, op)
	if err != nil {
		return nil, err
	}

	// Optimistic step.
	l.mu.Lock()
	if l.needsReload {
		l.mu.Unlock()
		return nil, errors.Wrap(errorcode.ErrorIllegalTransition, "permissions are not loaded")
	}
	if _, busy := l.inFlight[key]; busy {
		l.mu.Unlock()
		return nil, errors.Wrapf(errorcode.ErrorTransitionInFlight, "'%v'", key)
	}
	current, ok := l.view[key]
	if !ok || current.perm.Phase != pre.Phase {
		l.mu.Unlock()
		return nil, errors.Wrapf(errorcode.ErrorIllegalTransition, "'%v' is not %v", key, pre.Phase)
	}

	t := newTransition(op.ID, kind, key, &current.perm, current.seq, post)
	if post != nil {
		l.putLocked(*post, 0)
	} else {
		delete(l.view, key)
	}
	l.inFlight[key] = t
	l.appendTransitionLocked(t)
	l.mu.Unlock()

	pending, err := l.gateway.Submit(ctx, signedOp)
	if err != nil {
		failure := &errorcode.LedgerSubmissionFailure{OperationID: op.ID, Kind: string(opKind), Reason: err.Error()}

		l.mu.Lock()
		l.restoreLocked(t)
		l.releaseLocked(t)
		t.finish(TransitionRolledBack, failure)
		l.mu.Unlock()

		permissionTransitionsTotal.WithLabelValues(string(kind), "failed").Inc()
		return nil, failure
	}

	log.WithFields(log.Fields{"transition": t.ID, "kind": kind, "permission": key}).Debug("permission change applied optimistically")

	go l.reconcile(t, pending)
	return t, nil
}

// reconcile waits for the ledger's verdict on a transition and rolls it back on failure.
func (l *PermissionLedger) reconcile(t *Transition, pending *bcao.PendingOperation) {
	<-pending.Done()
	outcome, _ := pending.Outcome()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.releaseLocked(t)

	if t.Status() != TransitionPending {
		// Already rolled back locally; the late verdict only frees the key.
		log.WithFields(log.Fields{"transition": t.ID, "outcome": outcome.Status}).Debug("ignoring ledger outcome of a rolled back transition")
		return
	}

	if outcome.Status == bcao.Confirmed {
		if l.loads > 0 {
			l.settleSeq++
			t.settleSeq = l.settleSeq
			l.confirmedInLoads = append(l.confirmedInLoads, t)
		}
		t.finish(TransitionConfirmed, nil)
		permissionTransitionsTotal.WithLabelValues(string(t.Kind), "confirmed").Inc()
		return
	}

	l.restoreLocked(t)
	log.WithFields(log.Fields{"transition": t.ID, "permission": t.Key, "reason": outcome.Reason}).Warn("ledger rejected permission change, rolled back")
	t.finish(TransitionRolledBack, pending.Failure())
	permissionTransitionsTotal.WithLabelValues(string(t.Kind), "failed").Inc()
}

// restoreLocked puts the transition's key back in its pre-state. The caller must hold l.mu.
func (l *PermissionLedger) restoreLocked(t *Transition) {
	if t.Pre != nil {
		l.putLocked(*t.Pre, t.preSeq)
	} else {
		delete(l.view, t.Key)
	}
}

// applyPostLocked puts the transition's key in its post-state. The caller must hold l.mu.
func (l *PermissionLedger) applyPostLocked(t *Transition) {
	if t.Post != nil {
		l.putLocked(*t.Post, 0)
	} else {
		delete(l.view, t.Key)
	}
}

// releaseLocked frees the transition's key for the next action. The caller must hold l.mu.
func (l *PermissionLedger) releaseLocked(t *Transition) {
	if l.inFlight[t.Key] == t {
		delete(l.inFlight, t.Key)
	}
}

// appendTransitionLocked logs t and drops the oldest settled entries beyond `MaxTransitionLog`. Pending entries are
// never dropped. The caller must hold l.mu.
func (l *PermissionLedger) appendTransitionLocked(t *Transition) {
	l.transitions = append(l.transitions, t)

	excess := len(l.transitions) - MaxTransitionLog
	if excess <= 0 {
		return
	}

	kept := l.transitions[:0]
	for _, tr := range l.transitions {
		if excess > 0 && tr.Status() != TransitionPending {
			excess--
			continue
		}
		kept = append(kept, tr)
	}
	for i := len(kept); i < len(l.transitions); i++ {
		l.transitions[i] = nil
	}
	l.transitions = kept
}

// putLocked stores p under its key. A zero seq appends it at the end of the display order. The caller must hold l.mu.
func (l *PermissionLedger) putLocked(p permission.Permission, seq uint64) {
	if seq == 0 {
		l.seq++
		seq = l.seq
	}

	l.view[p.Key()] = viewEntry{perm: p, seq: seq}
}

// The caller must hold l.mu.
func (l *PermissionLedger) partitionLocked() permission.Sets {
	entries := make([]viewEntry, 0, len(l.view))
	for _, e := range l.view {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	sets := permission.Sets{
		Requests: []permission.Permission{},
		Read:     []permission.Permission{},
		Write:    []permission.Permission{},
	}
	for _, e := range entries {
		switch {
		case e.perm.Phase == permission.Requested:
			sets.Requests = append(sets.Requests, e.perm)
		case e.perm.Capability == permission.Read:
			sets.Read = append(sets.Read, e.perm)
		default:
			sets.Write = append(sets.Write, e.perm)
		}
	}

	return sets
}
