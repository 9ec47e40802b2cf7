package bcao

import "context"

// ILedgerGateway is the boundary to the external ledger and the on-chain authority. Every mutating action (register,
// enroll, evaluate, request, grant, revoke) goes through `Submit`; every state read goes through `Read`.
//
// Implementations own timeouts: a submission that never confirms must eventually resolve as failed.
type ILedgerGateway interface {
	// Submit sends a signed operation to the ledger.
	//
	// Returns:
	//   a handle that resolves to Confirmed or Failed once the ledger decides
	Submit(ctx context.Context, op *SignedOperation) (*PendingOperation, error)

	// Read queries authoritative state. The caller identifies itself with the address of its signing identity.
	//
	// Returns:
	//   the raw authority state (decode it with `AuthorityState.Decode`)
	Read(ctx context.Context, query *Query) (AuthorityState, error)
}
