// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package verifier

import (
	"context"
	"net/netip"
	"slices"
	"sync"

	"github.com/siemens/urlhost/types"
)

// NamedAddressCache caches the qualities of endpoints so that unnecessary
// duplicate endpoint validations can be avoided, yet validation results get
// distributed at once to all hosts pending on the same endpoint.
type NamedAddressCache struct {
	mu sync.Mutex
	m  map[netip.AddrPort]*endpointState // endpoint -> quality and pending hosts
}

// NewNamedAddressCache returns a new NamedAddressCache object.
func NewNamedAddressCache() *NamedAddressCache {
	return &NamedAddressCache{
		m: map[netip.AddrPort]*endpointState{},
	}
}

// endpointState is the most recent quality of an endpoint, together with the
// hosts resolving to this endpoint that still wait for the final verdict.
type endpointState struct {
	q       types.Quality
	err     error    // optional error reason for invalid quality
	waiting []string // hosts waiting for the final verdict.
}

// Update checks the specified named endpoint to see if it is a new
// (unverified) endpoint which isn't yet cached. In this case it returns true to
// signal a new endpoint to the caller, so that the caller, for instance, can
// start validating the new endpoint. Update returns false if the endpoint has
// already been seen.
//
// Quality updates are passed on to all hosts waiting on the endpoint once the
// endpoint reaches a final verdict of Verified or Invalid. A host turning up
// late for an endpoint with a final verdict immediately gets that verdict.
func (c *NamedAddressCache) Update(ctx context.Context, namaddr types.NamedAddress, news chan<- types.NamedAddress) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	endpoint := namaddr.Endpoint()
	host := namaddr.Name()
	state, ok := c.m[endpoint]
	if !ok {
		// We assume that a new endpoint always enters in qualities Unverified
		// or Verifying, so there will always be a later quality update to be
		// expected.
		c.m[endpoint] = &endpointState{
			q:       namaddr.Qual(),
			waiting: []string{host},
		}
		send(ctx, news, namaddr)
		return true
	}
	known := slices.Contains(state.waiting, host)
	if namaddr.Qual() <= state.q {
		// stale news: only a host we didn't know about yet needs to learn
		// about the most recent quality.
		if !known {
			if state.q.IsPending() {
				state.waiting = append(state.waiting, host)
			}
			send(ctx, news, namaddr.WithNewQuality(state.q, state.err).(types.NamedAddress))
		}
		return false
	}
	state.q = namaddr.Qual()
	state.err = namaddr.Err()
	var notify []string
	if state.q.IsPending() {
		if !known {
			state.waiting = append(state.waiting, host)
		}
		notify = state.waiting
	} else {
		// final verdict: notify everyone and forget about the waiting hosts,
		// as later arrivals get served immediately.
		notify, state.waiting = state.waiting, nil
	}
	for _, waiting := range notify {
		na := namaddr.NA()
		na.Host = waiting
		if !send(ctx, news, &na) {
			return false
		}
	}
	return false
}

// send the specified named endpoint, unless the context is done first.
// Returns true if the named endpoint was sent.
func send(ctx context.Context, news chan<- types.NamedAddress, namaddr types.NamedAddress) bool {
	select {
	case news <- namaddr:
		return true
	case <-ctx.Done():
		return false
	}
}
