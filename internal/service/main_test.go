package service

import (
	"os"
	"testing"

	"github.com/bitway/bitway-api/internal/testutil/dblock"
)

// TestMain holds the shared database lock only when integration tests will actually run.
func TestMain(m *testing.M) {
	if os.Getenv("DATABASE_URL") == "" {
		os.Exit(m.Run())
	}
	release := dblock.Acquire()
	code := m.Run()
	release()
	os.Exit(code)
}
