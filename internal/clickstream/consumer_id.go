package clickstream

import (
	"fmt"
	"os"
	"time"
)

// NewConsumerID names a consumer within the hit writer group. The name
// is unique per process start on purpose: a restarted worker joins the
// group as a fresh consumer, and whatever its predecessor left pending
// is picked up by the idle-entry reclaim sweep rather than inherited.
func NewConsumerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "hitwriter"
	}
	return fmt.Sprintf("%s.%d.%d", host, os.Getpid(), time.Now().UnixNano())
}
