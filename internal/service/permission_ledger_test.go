package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tintun2602/eduwallet-sub000/internal/blockchain/bcao"
	"github.com/tintun2602/eduwallet-sub000/internal/blockchain/bcao/memorybcao"
	"github.com/tintun2602/eduwallet-sub000/pkg/errorcode"
	"github.com/tintun2602/eduwallet-sub000/pkg/models/permission"
)

// newRequestedWorld returns a manually confirmed world in which the university has requested Read access, and a
// logged in holder whose permissions are loaded.
func newRequestedWorld(t *testing.T) (*testWorld, *Session, *PermissionLedger) {
	w := newTestWorld(t, memorybcao.WithManualConfirmation())
	require.NoError(t, w.settle(w.authority.RequestPermission(context.Background(), w.university, w.recordAddress, permission.Read)))

	session := w.login()
	ledger := session.Permissions()

	sets, err := ledger.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, sets.Requests, 1)

	return w, session, ledger
}

func loadSets(t *testing.T, ledger *PermissionLedger) permission.Sets {
	sets, err := ledger.LoadAll(context.Background())
	require.NoError(t, err)
	return sets
}

func assertNoKeyInTwoSets(t *testing.T, sets permission.Sets) {
	seen := make(map[permission.Key]bool)
	for _, set := range [][]permission.Permission{sets.Requests, sets.Read, sets.Write} {
		for _, p := range set {
			assert.False(t, seen[p.Key()], "permission '%v' is listed twice", p.Key())
			seen[p.Key()] = true
		}
	}
}

func TestEndToEndApproveThenLedgerFailure(t *testing.T) {
	w, session, ledger := newRequestedWorld(t)
	defer session.Close()

	// A second, independent session derives the same identity.
	other := w.login()
	defer other.Close()
	assert.True(t, session.Identity().Equal(other.Identity()))

	request := loadSets(t, ledger).Requests[0]
	assert.Equal(t, w.university.Address(), request.Counterparty)
	assert.Equal(t, permission.Read, request.Capability)
	assert.Equal(t, permission.Requested, request.Phase)

	tr, err := ledger.Approve(context.Background(), request)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	// Optimistic view before the ledger answers
	sets := loadSets(t, ledger)
	assert.Empty(t, sets.Requests)
	if assert.Len(t, sets.Read, 1) {
		assert.Equal(t, permission.Granted, sets.Read[0].Phase)
	}
	assertNoKeyInTwoSets(t, sets)

	w.ledger.Reject(tr.ID, "endorsement failed")
	err = waitTransition(t, tr)
	assert.True(t, errorcode.IsLedgerSubmissionFailure(err))
	assert.Equal(t, TransitionRolledBack, tr.Status())

	sets = loadSets(t, ledger)
	assert.Len(t, sets.Requests, 1)
	assert.Empty(t, sets.Read)
	assert.Equal(t, request, sets.Requests[0])
}

func TestApproveConfirmedKeepsOptimisticState(t *testing.T) {
	w, session, ledger := newRequestedWorld(t)
	defer session.Close()

	request := loadSets(t, ledger).Requests[0]
	tr, err := ledger.Approve(context.Background(), request)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	optimistic := loadSets(t, ledger)

	w.ledger.Confirm(tr.ID)
	assert.NoError(t, waitTransition(t, tr))
	assert.Equal(t, TransitionConfirmed, tr.Status())
	assert.Equal(t, optimistic, loadSets(t, ledger))

	// The authority agrees after a reload.
	ledger.Invalidate()
	reloaded := loadSets(t, ledger)
	assert.Empty(t, reloaded.Requests)
	assert.Len(t, reloaded.Read, 1)

	// The university can now read the record.
	_, err = w.authority.ReadResults(context.Background(), w.university, w.recordAddress)
	assert.NoError(t, err)
}

func TestRevokeAndDeny(t *testing.T) {
	w, session, ledger := newRequestedWorld(t)
	defer session.Close()
	ctx := context.Background()

	require.NoError(t, w.settle(w.authority.RequestPermission(ctx, w.university, w.recordAddress, permission.Write)))
	ledger.Invalidate()
	sets := loadSets(t, ledger)
	require.Len(t, sets.Requests, 2)

	var readRequest, writeRequest permission.Permission
	for _, p := range sets.Requests {
		if p.Capability == permission.Read {
			readRequest = p
		} else {
			writeRequest = p
		}
	}

	// Deny the write request.
	deny, err := ledger.Revoke(ctx, writeRequest)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	w.ledger.Confirm(deny.ID)
	assert.NoError(t, waitTransition(t, deny))

	// Grant then revoke the read request.
	grant, err := ledger.Approve(ctx, readRequest)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	w.ledger.Confirm(grant.ID)
	assert.NoError(t, waitTransition(t, grant))

	granted := loadSets(t, ledger).Read[0]
	revoke, err := ledger.Revoke(ctx, granted)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, 0, loadSets(t, ledger).Len())

	w.ledger.Confirm(revoke.ID)
	assert.NoError(t, waitTransition(t, revoke))

	ledger.Invalidate()
	assert.Equal(t, 0, loadSets(t, ledger).Len())

	records := ledger.Transitions()
	if assert.Len(t, records, 3) {
		assert.Equal(t, TransitionRevoke, records[0].Kind)
		assert.Nil(t, records[0].Post)
		assert.Equal(t, TransitionApprove, records[1].Kind)
		assert.Equal(t, "confirmed", records[2].Status)
	}
}

func TestRevokeFailureRestoresGrant(t *testing.T) {
	w, session, ledger := newRequestedWorld(t)
	defer session.Close()
	ctx := context.Background()

	grant, err := ledger.Approve(ctx, loadSets(t, ledger).Requests[0])
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	w.ledger.Confirm(grant.ID)
	require.NoError(t, waitTransition(t, grant))

	granted := loadSets(t, ledger).Read[0]
	w.ledger.FailNext(bcao.OpRevokePermission, "authority unavailable")
	revoke, err := ledger.Revoke(ctx, granted)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Empty(t, loadSets(t, ledger).Read)

	w.ledger.Confirm(revoke.ID)
	assert.True(t, errorcode.IsLedgerSubmissionFailure(waitTransition(t, revoke)))

	sets := loadSets(t, ledger)
	assert.Equal(t, []permission.Permission{granted}, sets.Read)
	assert.Empty(t, sets.Requests)
}

func TestSecondActionOnBusyKeyIsRejected(t *testing.T) {
	w, session, ledger := newRequestedWorld(t)
	defer session.Close()
	ctx := context.Background()

	request := loadSets(t, ledger).Requests[0]
	tr, err := ledger.Approve(ctx, request)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	before := loadSets(t, ledger)

	_, err = ledger.Revoke(ctx, permission.NewGrant(request.Counterparty, request.Capability))
	assert.Equal(t, errorcode.ErrorTransitionInFlight, errors.Cause(err))
	_, err = ledger.Approve(ctx, request)
	assert.Equal(t, errorcode.ErrorTransitionInFlight, errors.Cause(err))
	assert.Equal(t, before, loadSets(t, ledger))

	// Once resolved, the key accepts actions again.
	w.ledger.Confirm(tr.ID)
	require.NoError(t, waitTransition(t, tr))
	_, err = ledger.Revoke(ctx, permission.NewGrant(request.Counterparty, request.Capability))
	assert.NoError(t, err)
}

func TestIllegalTransitions(t *testing.T) {
	_, session, ledger := newRequestedWorld(t)
	defer session.Close()
	ctx := context.Background()

	request := loadSets(t, ledger).Requests[0]

	// Granted cannot be approved; an absent key cannot be revoked.
	_, err := ledger.Approve(ctx, permission.NewGrant(request.Counterparty, request.Capability))
	assert.Equal(t, errorcode.ErrorIllegalTransition, errors.Cause(err))
	_, err = ledger.Revoke(ctx, permission.NewGrant(request.Counterparty, request.Capability))
	assert.Equal(t, errorcode.ErrorIllegalTransition, errors.Cause(err))
	_, err = ledger.Revoke(ctx, permission.NewRequest("0x0000000000000000000000000000000000000000", permission.Write))
	assert.Equal(t, errorcode.ErrorIllegalTransition, errors.Cause(err))

	_, err = ledger.Approve(ctx, permission.Permission{Counterparty: request.Counterparty, Capability: permission.Capability(7), Phase: permission.Requested})
	assert.Equal(t, errorcode.ErrorInvalidCapability, errors.Cause(err))

	assert.Empty(t, ledger.Transitions())
}

func TestActionsRequireLoadedView(t *testing.T) {
	w := newTestWorld(t, memorybcao.WithManualConfirmation())
	session := w.login()
	defer session.Close()

	_, err := session.Permissions().Approve(context.Background(), permission.NewRequest(w.university.Address(), permission.Read))
	assert.Equal(t, errorcode.ErrorIllegalTransition, errors.Cause(err))
}

func TestRevertIsIdempotent(t *testing.T) {
	_, session, ledger := newRequestedWorld(t)
	defer session.Close()

	request := loadSets(t, ledger).Requests[0]

	// Already present: still exactly one copy.
	assert.NoError(t, ledger.Revert(request))
	assert.NoError(t, ledger.Revert(request))
	assert.Equal(t, []permission.Permission{request}, loadSets(t, ledger).Requests)

	grant := permission.NewGrant("0x1111111111111111111111111111111111111111", permission.Write)
	assert.NoError(t, ledger.Revert(grant))
	assert.NoError(t, ledger.Revert(grant))
	sets := loadSets(t, ledger)
	assert.Equal(t, []permission.Permission{grant}, sets.Write)
	assertNoKeyInTwoSets(t, sets)

	err := ledger.Revert(permission.Permission{Counterparty: "0x1", Capability: permission.Capability(0), Phase: permission.Granted})
	assert.Equal(t, errorcode.ErrorInvalidCapability, errors.Cause(err))
}

func TestLateConfirmationAfterLocalRollbackIsIgnored(t *testing.T) {
	w, session, ledger := newRequestedWorld(t)
	defer session.Close()

	request := loadSets(t, ledger).Requests[0]
	tr, err := ledger.Approve(context.Background(), request)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	assert.NoError(t, ledger.Rollback(tr.ID))
	assert.Equal(t, ErrorTransitionRolledBack, waitTransition(t, tr))
	assert.Equal(t, []permission.Permission{request}, loadSets(t, ledger).Requests)

	// Rolling back twice is refused.
	err = ledger.Rollback(tr.ID)
	assert.Equal(t, errorcode.ErrorIllegalTransition, errors.Cause(err))
	assert.Equal(t, errorcode.ErrorNotFound, ledger.Rollback("unknown"))

	// The submission still lands on the ledger; the local view does not move.
	w.ledger.Confirm(tr.ID)
	assert.Never(t, func() bool {
		sets, err := ledger.LoadAll(context.Background())
		return err != nil || len(sets.Read) != 0 || len(sets.Requests) != 1
	}, 200*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, TransitionRolledBack, tr.Status())

	// Only a reload shows the ledger's view.
	ledger.Invalidate()
	assert.Len(t, loadSets(t, ledger).Read, 1)
}

func TestReloadKeepsInFlightChanges(t *testing.T) {
	w, session, ledger := newRequestedWorld(t)
	defer session.Close()

	request := loadSets(t, ledger).Requests[0]
	tr, err := ledger.Approve(context.Background(), request)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	ledger.Invalidate()
	sets := loadSets(t, ledger)
	assert.Empty(t, sets.Requests)
	assert.Len(t, sets.Read, 1)

	w.ledger.Confirm(tr.ID)
	assert.NoError(t, waitTransition(t, tr))
}

type rejectingGateway struct {
	bcao.ILedgerGateway
}

func (g *rejectingGateway) Submit(ctx context.Context, signedOp *bcao.SignedOperation) (*bcao.PendingOperation, error) {
	return nil, errors.New("peer unreachable")
}

func TestSubmitErrorRollsBackImmediately(t *testing.T) {
	w, session, _ := newRequestedWorld(t)
	defer session.Close()

	ledger := NewPermissionLedger(&rejectingGateway{ILedgerGateway: w.ledger}, session.Identity(), session.RecordAddress())
	request := loadSets(t, ledger).Requests[0]

	tr, err := ledger.Approve(context.Background(), request)
	assert.Nil(t, tr)
	assert.True(t, errorcode.IsLedgerSubmissionFailure(err))

	sets := loadSets(t, ledger)
	assert.Equal(t, []permission.Permission{request}, sets.Requests)
	assert.Empty(t, sets.Read)
	if records := ledger.Transitions(); assert.Len(t, records, 1) {
		assert.Equal(t, "rolled back", records[0].Status)
	}
}

// heldReadGateway answers reads from the wrapped ledger but, once hold is set, keeps each answer back until hold is
// closed.
type heldReadGateway struct {
	bcao.ILedgerGateway
	hold    chan struct{}
	started chan struct{}
}

func (g *heldReadGateway) Read(ctx context.Context, query *bcao.Query) (bcao.AuthorityState, error) {
	state, err := g.ILedgerGateway.Read(ctx, query)
	if g.hold != nil {
		g.started <- struct{}{}
		<-g.hold
	}
	return state, err
}

func TestReloadKeepsChangesConfirmedDuringReads(t *testing.T) {
	w, session, _ := newRequestedWorld(t)
	defer session.Close()
	ctx := context.Background()

	gateway := &heldReadGateway{ILedgerGateway: w.ledger, started: make(chan struct{}, len(permissionQueries))}
	ledger := NewPermissionLedger(gateway, session.Identity(), session.RecordAddress())
	request := loadSets(t, ledger).Requests[0]

	tr, err := ledger.Approve(ctx, request)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	// The reads see the ledger before the grant lands.
	gateway.hold = make(chan struct{})
	ledger.Invalidate()
	loaded := make(chan permission.Sets, 1)
	go func() {
		sets, err := ledger.LoadAll(ctx)
		assert.NoError(t, err)
		loaded <- sets
	}()
	for range permissionQueries {
		<-gateway.started
	}

	w.ledger.Confirm(tr.ID)
	require.NoError(t, waitTransition(t, tr))
	close(gateway.hold)

	sets := <-loaded
	assert.Empty(t, sets.Requests)
	assert.Equal(t, []permission.Permission{permission.NewGrant(request.Counterparty, permission.Read)}, sets.Read)
	assert.Equal(t, sets, loadSets(t, ledger))

	// A later reload reads the granted state from the ledger itself.
	ledger.Invalidate()
	assert.Equal(t, sets, loadSets(t, ledger))
}

func TestKeyStaysBusyAfterLocalRollbackUntilLedgerAnswers(t *testing.T) {
	w, session, ledger := newRequestedWorld(t)
	defer session.Close()
	ctx := context.Background()

	request := loadSets(t, ledger).Requests[0]
	tr, err := ledger.Approve(ctx, request)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	require.NoError(t, ledger.Rollback(tr.ID))
	assert.Equal(t, []permission.Permission{request}, loadSets(t, ledger).Requests)

	_, err = ledger.Approve(ctx, request)
	assert.Equal(t, errorcode.ErrorTransitionInFlight, errors.Cause(err))
	_, err = ledger.Revoke(ctx, request)
	assert.Equal(t, errorcode.ErrorTransitionInFlight, errors.Cause(err))
	assert.Len(t, w.ledger.PendingIDs(), 1)

	// The verdict on the first submission frees the key without touching the view.
	w.ledger.Confirm(tr.ID)
	var second *Transition
	assert.Eventually(t, func() bool {
		second, err = ledger.Approve(ctx, request)
		return errors.Cause(err) != errorcode.ErrorTransitionInFlight
	}, 2*time.Second, 10*time.Millisecond)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, []string{second.ID}, w.ledger.PendingIDs())
}

func TestTransitionLogIsBounded(t *testing.T) {
	ledger := NewPermissionLedger(nil, nil, "")
	key := permission.Key{Counterparty: "0x1", Capability: permission.Read}

	pending := newTransition("pending", TransitionApprove, key, nil, 0, nil)
	ledger.mu.Lock()
	ledger.appendTransitionLocked(pending)
	for i := 0; i < MaxTransitionLog+10; i++ {
		settled := newTransition(fmt.Sprintf("settled-%v", i), TransitionRevoke, key, nil, 0, nil)
		settled.finish(TransitionConfirmed, nil)
		ledger.appendTransitionLocked(settled)
	}
	ledger.mu.Unlock()

	records := ledger.Transitions()
	if assert.Len(t, records, MaxTransitionLog) {
		assert.Equal(t, "pending", records[0].ID)
		assert.Equal(t, fmt.Sprintf("settled-%v", MaxTransitionLog+9), records[len(records)-1].ID)
	}
	assert.Equal(t, errorcode.ErrorNotFound, ledger.Rollback("settled-0"))
}
