// Package dblock serialises integration tests across packages that share one Postgres database.
package dblock

import (
	"net"
	"os"
	"time"
)

const defaultAddr = "127.0.0.1:47321"

// Acquire blocks until this process owns the loopback listener named by BITWAY_TEST_LOCK_ADDR
// (or the default) and returns the func that releases it.
func Acquire() func() {
	addr := os.Getenv("BITWAY_TEST_LOCK_ADDR")
	if addr == "" {
		addr = defaultAddr
	}
	backoff := 25 * time.Millisecond
	for {
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return func() { _ = ln.Close() }
		}
		time.Sleep(backoff)
		if backoff < 500*time.Millisecond {
			backoff *= 2
		}
	}
}
