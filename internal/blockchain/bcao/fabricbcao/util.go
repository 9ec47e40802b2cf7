package fabricbcao

import (
	"encoding/hex"

	"github.com/hyperledger/fabric-sdk-go/pkg/client/channel"
	"github.com/hyperledger/fabric-sdk-go/pkg/client/ledger"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/providers/fab"
	"github.com/tintun2602/eduwallet-sub000/internal/utils/timingutils"
)

func executeChannelRequestWithTimer(channelClient *channel.Client, channelRequest *channel.Request, timerMsg string, options ...channel.RequestOption) (resp channel.Response, err error) {
	defer timingutils.GetDeferrableTimingLogger(timerMsg)()

	resp, err = channelClient.Execute(*channelRequest, options...)
	return
}

func getBlockHashFromTxID(ledgerClient *ledger.Client, txID fab.TransactionID) (string, error) {
	block, err := ledgerClient.QueryBlockByTxID(txID)
	if err != nil {
		return "", err
	}

	blockHashAsHex := hex.EncodeToString(block.GetHeader().GetDataHash())
	return blockHashAsHex, nil
}
