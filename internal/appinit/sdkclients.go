package appinit

import (
	"github.com/hyperledger/fabric-sdk-go/pkg/client/channel"
	"github.com/hyperledger/fabric-sdk-go/pkg/client/ledger"
	"github.com/hyperledger/fabric-sdk-go/pkg/core/config"
	"github.com/hyperledger/fabric-sdk-go/pkg/fabsdk"
	errors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tintun2602/eduwallet-sub000/internal/blockchain/chaincodectx"
)

// SetupSDK creates a Fabric SDK instance from the specified config file. The caller closes it.
//
// Parameters:
//
//	the path to the config file
//
// Returns:
//
//	the SDK instance
func SetupSDK(configFilePath string) (*fabsdk.FabricSDK, error) {
	sdk, err := fabsdk.New(config.FromFile(configFilePath))
	if err != nil {
		return nil, errors.Wrap(err, "cannot create Fabric SDK instance")
	}

	return sdk, nil
}

// NewFabricChaincodeCtx creates the channel client and the ledger client of the configured user and bundles them with
// the wallet chaincode ID.
//
// Parameters:
//
//	initialized Fabric SDK instance
//	the ledger section of the server config
//
// Returns:
//
//	the chaincode context
func NewFabricChaincodeCtx(sdk *fabsdk.FabricSDK, info *LedgerInfo) (*chaincodectx.FabricChaincodeCtx, error) {
	// Channel clients can query chaincode, execute chaincode and register chaincode events on specific channel.
	clientCtx := sdk.ChannelContext(info.ChannelID, fabsdk.WithUser(info.UserID), fabsdk.WithOrg(info.OrgName))
	channelClient, err := channel.New(clientCtx)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot create channel client on channel '%v' for %v@%v", info.ChannelID, info.UserID, info.OrgName)
	}
	log.Infof("created channel client on channel '%v' for %v@%v", info.ChannelID, info.UserID, info.OrgName)

	// Ledger clients can query blocks and transactions on the channel.
	ledgerClient, err := ledger.New(clientCtx)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot create ledger client on channel '%v' for %v@%v", info.ChannelID, info.UserID, info.OrgName)
	}

	return &chaincodectx.FabricChaincodeCtx{
		ChannelID:           info.ChannelID,
		OrgName:             info.OrgName,
		Username:            info.UserID,
		ChaincodeID:         info.ChaincodeID,
		ChannelClient:       channelClient,
		LedgerClient:        ledgerClient,
		ConfirmationTimeout: info.ConfirmationTimeout(),
	}, nil
}
