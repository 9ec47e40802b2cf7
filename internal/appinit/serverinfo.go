package appinit

import (
	"io/ioutil"
	"time"

	errors "github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// Ledger backends.
const (
	BackendFabric = "fabric"
	BackendMemory = "memory"
)

// ServerInfo is the Go struct for contents in server.yaml.
type ServerInfo struct {
	Port           int         `yaml:"port"`
	LogLevel       string      `yaml:"logLevel"`
	LogFormat      string      `yaml:"logFormat"` // "text" or "json"
	ShowTimingLogs bool        `yaml:"showTimingLogs"`
	Ledger         *LedgerInfo `yaml:"ledger"`
	IPFS           *IPFSInfo   `yaml:"ipfs"`
	DB             *DBInfo     `yaml:"db"`
	Seed           *SeedInfo   `yaml:"seed"` // Memory backend only
}

// LedgerInfo selects and configures the ledger backend.
type LedgerInfo struct {
	Backend                    string `yaml:"backend"` // "fabric" or "memory"
	ChannelID                  string `yaml:"channelID"`
	ChaincodeID                string `yaml:"chaincodeID"`
	OrgName                    string `yaml:"orgName"`
	UserID                     string `yaml:"userID"`
	ConfirmationTimeoutSeconds int    `yaml:"confirmationTimeoutSeconds"`
}

// IPFSInfo locates the IPFS API used to publish certificates. An empty URL keeps certificates in memory.
type IPFSInfo struct {
	URL string `yaml:"url"`
}

// DBInfo locates the MySQL database caching counterparty profiles. An empty DSN keeps the cache in memory.
type DBInfo struct {
	DSN string `yaml:"dsn"`
}

// ConfirmationTimeout returns the configured confirmation timeout, 30 seconds if unset.
func (i *LedgerInfo) ConfirmationTimeout() time.Duration {
	if i.ConfirmationTimeoutSeconds <= 0 {
		return 30 * time.Second
	}

	return time.Duration(i.ConfirmationTimeoutSeconds) * time.Second
}

// LoadServerInfo loads the server config file (in YAML) which contains info needed to start a server.
//
// Parameters:
//
//	the path to the config file
//
// Returns:
//
//	the `ServerInfo` struct containing the info needed to start a server
func LoadServerInfo(configFilePath string) (ret ServerInfo, err error) {
	yamlStr, err := ioutil.ReadFile(configFilePath)
	if err != nil {
		err = errors.Wrap(err, "cannot read server config file")
		return
	}

	ret, err = ParseServerInfo(yamlStr)
	return
}

// ParseServerInfo parses and validates a server config, filling in defaults.
func ParseServerInfo(yamlStr []byte) (ret ServerInfo, err error) {
	err = yaml.Unmarshal(yamlStr, &ret)
	if err != nil {
		err = errors.Wrap(err, "cannot parse YAML config")
		return
	}

	if ret.Port == 0 {
		ret.Port = 8081
	}
	if ret.Ledger == nil {
		ret.Ledger = &LedgerInfo{Backend: BackendMemory}
	}
	if ret.IPFS == nil {
		ret.IPFS = &IPFSInfo{}
	}
	if ret.DB == nil {
		ret.DB = &DBInfo{}
	}

	switch ret.Ledger.Backend {
	case "":
		ret.Ledger.Backend = BackendMemory
	case BackendMemory:
	case BackendFabric:
		if ret.Ledger.ChannelID == "" || ret.Ledger.ChaincodeID == "" || ret.Ledger.OrgName == "" || ret.Ledger.UserID == "" {
			err = errors.New("the fabric ledger needs channelID, chaincodeID, orgName and userID")
			return
		}
	default:
		err = errors.Errorf("unknown ledger backend '%v'", ret.Ledger.Backend)
		return
	}

	return
}
