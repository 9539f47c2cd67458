// Package fixed is a static, offline Network (spec §6 "External
// Interfaces"): chain info and a fixed set of beacons are supplied up front,
// with no dialing out, for air-gapped decryption and for tests.
package fixed

import (
	"context"

	"github.com/anisharma07/tlock"
)

// Client is a tlock.Network backed by a caller-supplied ChainInfo and a
// fixed map of already-known beacons.
type Client struct {
	info    tlock.ChainInfo
	beacons map[uint64]tlock.Beacon
}

// New returns a Client that serves info and the given beacons, indexed by
// round, and reports any other round as not yet available.
func New(info tlock.ChainInfo, beacons ...tlock.Beacon) *Client {
	c := &Client{info: info, beacons: make(map[uint64]tlock.Beacon, len(beacons))}
	for _, b := range beacons {
		c.beacons[b.Round] = b
	}
	return c
}

// ChainInfo implements tlock.Network.
func (c *Client) ChainInfo(_ context.Context) (*tlock.ChainInfo, error) {
	info := c.info
	return &info, nil
}

// Beacon implements tlock.Network. A round absent from the fixed set is
// reported as too early, since a Client can never learn of a round it
// wasn't constructed with.
func (c *Client) Beacon(_ context.Context, round uint64) (*tlock.Beacon, error) {
	b, ok := c.beacons[round]
	if !ok {
		return nil, &tlock.TooEarlyError{Round: round, UnlockAt: c.info.TimeForRound(round)}
	}
	return &b, nil
}

// AddBeacon records a beacon the caller has obtained out of band (e.g. from
// a chain explorer, or copy-pasted from another machine), so a later
// Beacon(round) call can succeed.
func (c *Client) AddBeacon(b tlock.Beacon) {
	c.beacons[b.Round] = b
}
