package service

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tintun2602/eduwallet-sub000/internal/blockchain/bcao"
	"github.com/tintun2602/eduwallet-sub000/pkg/sm2keyutils"
)

// submitSigned builds, signs and submits an operation on behalf of the signer.
//
// Parameters:
//
//	the gateway to submit to
//	the signing identity of the actor
//	the operation kind
//	the record address the operation acts on ("" if none)
//	the operation arguments
//
// Returns:
//
//	the pending operation
func submitSigned(ctx context.Context, gateway bcao.ILedgerGateway, signer *sm2keyutils.SigningIdentity, kind bcao.OperationKind, target string, args map[string]interface{}) (*bcao.PendingOperation, error) {
	op, err := bcao.NewOperation(kind, signer.Address(), target, args)
	if err != nil {
		return nil, err
	}

	signedOp, err := bcao.SignOperation(signer, op)
	if err != nil {
		return nil, err
	}

	pending, err := gateway.Submit(ctx, signedOp)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot submit ledger operation '%v'", kind)
	}

	log.WithFields(log.Fields{
		"operation": op.ID,
		"kind":      kind,
		"signer":    signer.Address(),
	}).Debug("ledger operation submitted")

	return pending, nil
}

// readState issues a query as the given caller.
func readState(ctx context.Context, gateway bcao.ILedgerGateway, kind bcao.QueryKind, caller string, target string) (bcao.AuthorityState, error) {
	return gateway.Read(ctx, &bcao.Query{
		Kind:   kind,
		Caller: caller,
		Target: target,
	})
}
