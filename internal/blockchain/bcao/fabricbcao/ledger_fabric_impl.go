package fabricbcao

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hyperledger/fabric-sdk-go/pkg/client/channel"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/providers/fab"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tintun2602/eduwallet-sub000/internal/blockchain/bcao"
	"github.com/tintun2602/eduwallet-sub000/internal/blockchain/chaincodectx"
)

// LedgerFabricImpl implements `bcao.ILedgerGateway` on top of the wallet chaincode. Each mutating operation is a
// chaincode invocation named after its kind; each query is a chaincode query named after its kind.
type LedgerFabricImpl struct {
	ctx *chaincodectx.FabricChaincodeCtx
}

func NewLedgerFabricImpl(ctx *chaincodectx.FabricChaincodeCtx) *LedgerFabricImpl {
	return &LedgerFabricImpl{
		ctx: ctx,
	}
}

// Submit sends the operation for endorsement and ordering in the background. The returned handle resolves once the
// transaction is committed, rejected, or the confirmation timeout expires. ctx only bounds the hand-off.
func (o *LedgerFabricImpl) Submit(ctx context.Context, signedOp *bcao.SignedOperation) (*bcao.PendingOperation, error) {
	if signedOp == nil {
		return nil, fmt.Errorf("signed operation cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	chaincodeFcn := string(signedOp.Operation.Kind)
	channelReq := channel.Request{
		ChaincodeID: o.ctx.ChaincodeID,
		Fcn:         chaincodeFcn,
		Args:        [][]byte{signedOp.Payload, signedOp.Signature, signedOp.PublicKey},
	}

	var options []channel.RequestOption
	if o.ctx.ConfirmationTimeout > 0 {
		options = append(options, channel.WithTimeout(fab.Execute, o.ctx.ConfirmationTimeout))
	}

	pending := bcao.NewPendingOperation(signedOp.Operation.ID, signedOp.Operation.Kind)
	go func() {
		resp, err := executeChannelRequestWithTimer(o.ctx.ChannelClient, &channelReq, "ledger operation "+chaincodeFcn, options...)
		if err != nil {
			classifiedErr := bcao.GetClassifiedError(chaincodeFcn, err)
			log.WithFields(log.Fields{"operation": pending.ID, "kind": chaincodeFcn}).WithError(classifiedErr).Warn("ledger operation failed")
			pending.Fail(classifiedErr.Error())
			return
		}

		if resp.TxValidationCode != 0 {
			pending.Fail(fmt.Sprintf("transaction invalidated with code %v", resp.TxValidationCode))
			return
		}

		info := &bcao.TransactionCreationInfo{TransactionID: string(resp.TransactionID)}
		if o.ctx.LedgerClient != nil {
			if blockHash, err := getBlockHashFromTxID(o.ctx.LedgerClient, resp.TransactionID); err == nil {
				info.BlockID = blockHash
			} else {
				log.WithError(err).Debug("cannot look up the block of a committed transaction")
			}
		}

		pending.Confirm(info)
	}()

	return pending, nil
}

// Read queries the chaincode. The chaincode answers with a JSON object which becomes the authority state.
func (o *LedgerFabricImpl) Read(ctx context.Context, query *bcao.Query) (bcao.AuthorityState, error) {
	chaincodeFcn := string(query.Kind)
	channelReq := channel.Request{
		ChaincodeID: o.ctx.ChaincodeID,
		Fcn:         chaincodeFcn,
		Args:        [][]byte{[]byte(query.Caller), []byte(query.Target)},
	}

	resp, err := o.ctx.ChannelClient.Query(channelReq, channel.WithParentContext(ctx))
	if err != nil {
		return nil, bcao.GetClassifiedError(chaincodeFcn, err)
	}

	var state bcao.AuthorityState
	if err = json.Unmarshal(resp.Payload, &state); err != nil {
		return nil, errors.Wrap(err, "cannot parse authority state")
	}

	return state, nil
}
