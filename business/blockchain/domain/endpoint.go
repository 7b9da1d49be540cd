// Package domain contains the core domain types for the blockchain context.
package domain

import "time"

// Endpoint is one upstream RPC node.
type Endpoint struct {
	URL                 string
	Healthy             bool
	ConsecutiveFailures int
	Latency             time.Duration
	BlockHeight         uint64
	LastChecked         time.Time
}

// ProbeResult is the outcome of a liveness check.
type ProbeResult struct {
	ChainID     uint64
	BlockHeight uint64
	Latency     time.Duration
}

// PoolStatus is a point-in-time view of the endpoint pool.
type PoolStatus struct {
	Active      string
	ActiveIndex int
	Size        int
	Healthy     int
	Failovers   uint64
	Endpoints   []Endpoint
}
