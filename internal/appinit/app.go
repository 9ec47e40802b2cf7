package appinit

import (
	errors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tintun2602/eduwallet-sub000/internal/blobstore"
	"github.com/tintun2602/eduwallet-sub000/internal/blockchain/bcao"
	"github.com/tintun2602/eduwallet-sub000/internal/blockchain/bcao/fabricbcao"
	"github.com/tintun2602/eduwallet-sub000/internal/blockchain/bcao/memorybcao"
	"github.com/tintun2602/eduwallet-sub000/internal/db"
	"github.com/tintun2602/eduwallet-sub000/internal/service"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// App holds the services of a running wallet server, wired from the server config.
type App struct {
	Gateway   bcao.ILedgerGateway
	BlobStore blobstore.IBlobStore
	Registry  *service.SessionRegistry
	Resolver  *service.CounterpartyResolver
	Authority *service.AuthorityService

	closers []func()
}

// NewApp wires the ledger gateway, the blob store and the counterparty cache selected by serverInfo.
//
// Parameters:
//
//	the server config
//	the path to the Fabric SDK config (used by the fabric backend only)
//
// Returns:
//
//	the wired app; call `Close` when done
func NewApp(serverInfo *ServerInfo, sdkConfigPath string) (*App, error) {
	app := &App{}

	gateway, err := app.newGateway(serverInfo.Ledger, sdkConfigPath)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Gateway = gateway

	if serverInfo.IPFS.URL != "" {
		app.BlobStore = blobstore.NewIPFSStore(serverInfo.IPFS.URL)
		log.Infof("publishing certificates to IPFS at %v", serverInfo.IPFS.URL)
	} else {
		app.BlobStore = blobstore.NewMemoryStore()
	}

	store, err := app.newCounterpartyStore(serverInfo.DB)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Registry = service.NewSessionRegistry(&service.IdentityService{Gateway: gateway})
	app.Resolver = &service.CounterpartyResolver{Gateway: gateway, Store: store}
	app.Authority = &service.AuthorityService{Gateway: gateway, BlobStore: app.BlobStore}
	app.closers = append(app.closers, app.Registry.EndAll)

	return app, nil
}

func (a *App) newGateway(info *LedgerInfo, sdkConfigPath string) (bcao.ILedgerGateway, error) {
	if info.Backend == BackendMemory {
		log.Warn("using the in-memory ledger; nothing survives a restart")
		return memorybcao.NewLedgerMemoryImpl(memorybcao.WithConfirmationTimeout(info.ConfirmationTimeout())), nil
	}

	sdk, err := SetupSDK(sdkConfigPath)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, sdk.Close)

	chaincodeCtx, err := NewFabricChaincodeCtx(sdk, info)
	if err != nil {
		return nil, err
	}

	return fabricbcao.NewLedgerFabricImpl(chaincodeCtx), nil
}

func (a *App) newCounterpartyStore(info *DBInfo) (service.CounterpartyStore, error) {
	if info.DSN == "" {
		return db.NewMemoryCounterpartyStore(), nil
	}

	gormDB, err := gorm.Open(mysql.Open(info.DSN), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, errors.Wrap(err, "cannot connect to the database")
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, errors.Wrap(err, "cannot get the database handle")
	}
	a.closers = append(a.closers, func() { _ = sqlDB.Close() })

	return db.NewGormCounterpartyStore(gormDB)
}

// Close ends all sessions and releases the SDK and the database, in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
