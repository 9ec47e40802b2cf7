package appinit

import (
	"os"
	"strings"

	errors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tintun2602/eduwallet-sub000/internal/utils/timingutils"
)

// SetupLogger configures the standard logrus logger from the server config.
func SetupLogger(serverInfo *ServerInfo) error {
	level := log.InfoLevel
	if serverInfo.LogLevel != "" {
		parsed, err := log.ParseLevel(serverInfo.LogLevel)
		if err != nil {
			return errors.Wrap(err, "invalid log level")
		}
		level = parsed
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)

	switch strings.ToLower(serverInfo.LogFormat) {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return errors.Errorf("unknown log format '%v'", serverInfo.LogFormat)
	}

	timingutils.SetShowTimingLogs(serverInfo.ShowTimingLogs)

	return nil
}
