package timingutils

import (
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

var showTimingLogs int32

// SetShowTimingLogs turns the timing logs produced by `GetDeferrableTimingLogger` on or off.
func SetShowTimingLogs(enabled bool) {
	var v int32
	if enabled {
		v = 1
	}
	atomic.StoreInt32(&showTimingLogs, v)
}

// GetDeferrableTimingLogger creates a logger function that starts a timer when called and ends the timer when the calling function ends and logs (at debug level) the time diff.
func GetDeferrableTimingLogger(message string) func() {
	if atomic.LoadInt32(&showTimingLogs) == 0 {
		return func() {}
	}

	start := time.Now()
	return func() {
		log.WithField("elapsed", time.Since(start)).Debug(message)
	}
}
