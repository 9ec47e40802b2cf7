package appinit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseServerInfoDefaults(t *testing.T) {
	info, err := ParseServerInfo([]byte("logLevel: debug\n"))
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	assert.Equal(t, 8081, info.Port)
	assert.Equal(t, BackendMemory, info.Ledger.Backend)
	assert.Equal(t, 30*time.Second, info.Ledger.ConfirmationTimeout())
	assert.Equal(t, "", info.IPFS.URL)
	assert.Equal(t, "", info.DB.DSN)
}

func TestParseServerInfoFabric(t *testing.T) {
	yamlStr := `
port: 9000
ledger:
  backend: fabric
  channelID: mychannel
  chaincodeID: eduwalletCc
  orgName: Org1
  userID: User1
  confirmationTimeoutSeconds: 10
ipfs:
  url: localhost:5001
`
	info, err := ParseServerInfo([]byte(yamlStr))
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	assert.Equal(t, 9000, info.Port)
	assert.Equal(t, "eduwalletCc", info.Ledger.ChaincodeID)
	assert.Equal(t, 10*time.Second, info.Ledger.ConfirmationTimeout())
	assert.Equal(t, "localhost:5001", info.IPFS.URL)

	_, err = ParseServerInfo([]byte("ledger:\n  backend: fabric\n"))
	assert.Error(t, err)

	_, err = ParseServerInfo([]byte("ledger:\n  backend: ethereum\n"))
	assert.Error(t, err)
}

func TestNewAppWithMemoryBackends(t *testing.T) {
	info, err := ParseServerInfo([]byte("ledger:\n  backend: memory\n"))
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.NoError(t, SetupLogger(&info))

	app, err := NewApp(&info, "")
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	defer app.Close()

	assert.NotNil(t, app.Gateway)
	assert.NotNil(t, app.Registry)
	assert.NotNil(t, app.Resolver)
	assert.NotNil(t, app.Authority)
}

func TestSetupLoggerRejectsUnknownValues(t *testing.T) {
	assert.Error(t, SetupLogger(&ServerInfo{LogLevel: "loud"}))
	assert.Error(t, SetupLogger(&ServerInfo{LogFormat: "xml"}))
}

func TestSeedMemoryLedger(t *testing.T) {
	yamlStr := `
seed:
  counterparties:
    - identifier: uni-1
      secret: uni-secret
      name: University of Test
      shortName: UT
      holders:
        - identifier: "1"
          secret: pw1
          name: Ada
          surname: Lovelace
          birthDate: "1990-12-10"
          requests: [read]
`
	info, err := ParseServerInfo([]byte(yamlStr))
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	app, err := NewApp(&info, "")
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	defer app.Close()

	ctx := context.Background()
	if isNoError := assert.NoError(t, app.Seed(ctx, info.Seed)); !isNoError {
		t.FailNow()
	}

	session, err := app.Registry.Start(ctx, "1", "pw1")
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, "Ada", session.Snapshot().Profile.Name)

	sets, err := session.Permissions().LoadAll(ctx)
	assert.NoError(t, err)
	assert.Len(t, sets.Requests, 1)
}
