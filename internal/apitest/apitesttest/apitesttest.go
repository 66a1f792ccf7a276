// Package apitesttest starts apitest backends for tests in other packages.
package apitesttest

import (
	"testing"

	"evsched/internal/apitest"
)

// Start runs a fresh backend on a random loopback port for the test's
// lifetime.
func Start(tb testing.TB, cfg apitest.Config) *apitest.Server {
	tb.Helper()
	s, err := apitest.Listen("127.0.0.1:0", apitest.New(cfg))
	if err != nil {
		tb.Fatalf("listen: %v", err)
	}
	tb.Cleanup(s.Close)
	return s
}
