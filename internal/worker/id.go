package worker

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// NewID returns an identifier unique across hosts sharing a table:
// <hostname>-<pid>-<random suffix>.
func NewID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d-%s", host, os.Getpid(), uuid.NewString()[:8])
}
