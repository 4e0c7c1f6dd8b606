package testutil

import (
	"log"
	"os"
	"testing"
)

// TestLogger returns a logger matching the server's format, silenced
// to stderr once the test finishes.
func TestLogger(t *testing.T) *log.Logger {
	logger := log.New(os.Stdout, "[study-stream-test] ", log.LstdFlags)
	t.Cleanup(func() {
		logger.SetOutput(os.Stderr)
	})
	return logger
}
