package chaincodectx

import (
	"time"

	"github.com/hyperledger/fabric-sdk-go/pkg/client/channel"
	"github.com/hyperledger/fabric-sdk-go/pkg/client/ledger"
)

// FabricChaincodeCtx identifies the wallet chaincode and the clients used to reach it.
type FabricChaincodeCtx struct {
	ChannelID           string
	OrgName             string
	Username            string
	ChaincodeID         string
	ChannelClient       *channel.Client
	LedgerClient        *ledger.Client // Optional. Used to look up the block of a committed transaction.
	ConfirmationTimeout time.Duration  // Upper bound for a submission to be endorsed and committed
}
