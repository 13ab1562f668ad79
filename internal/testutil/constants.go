// Package testutil provides common constants and utilities for tests
package testutil

import "time"

const (
	// TestTimeout is the default timeout for test operations
	TestTimeout = 30 * time.Second

	// ShortTestTimeout is a shorter timeout for quick operations
	ShortTestTimeout = 5 * time.Second

	// TestLatency is the simulated latency used by workspace tests
	TestLatency = 5 * time.Millisecond

	// TestWorkers is a common number of concurrent workers
	TestWorkers = 8
)

// Common test values
const (
	// TestQueryID is a default user query identifier
	TestQueryID = "11111111-2222-3333-4444-555555555555"

	// TestQueryTitle is a default query title
	TestQueryTitle = "Test Query"

	// TestQueryDescription is a default query description
	TestQueryDescription = "Query used by unit tests"

	// TestQueryText is a default SQL body
	TestQueryText = "SELECT 1;"
)

// TestTime is a fixed instant for deterministic timestamps
var TestTime = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
