package tlock

import "context"

// Beacon is one signed round of the randomness chain (spec §3 "Beacon").
type Beacon struct {
	Round     uint64
	Signature []byte
}

// Network is the consumer-facing interface to a beacon chain (spec §6
// "External Interfaces"). Implementations live under networks/http (a live
// drand-compatible HTTP client) and networks/fixed (a static, offline
// stand-in for tests and air-gapped decryption).
type Network interface {
	// ChainInfo returns the chain's static parameters: scheme_id, period,
	// genesis time, chain hash, and group public key.
	ChainInfo(ctx context.Context) (*ChainInfo, error)
	// Beacon returns the signed beacon for round, or a *TooEarlyError if
	// round has not yet been produced.
	Beacon(ctx context.Context, round uint64) (*Beacon, error)
}
