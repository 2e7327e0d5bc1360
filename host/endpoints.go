// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package host

import (
	"context"
	"fmt"
	"net/netip"
)

// Resolver resolves a domain into the endpoints for the specified port. The
// order of the returned endpoints is kept by [Resolve].
type Resolver interface {
	LookupEndpoints(ctx context.Context, domain string, port uint16) ([]netip.AddrPort, error)
}

// ResolverFunc adapts an ordinary function to the [Resolver] interface.
type ResolverFunc func(ctx context.Context, domain string, port uint16) ([]netip.AddrPort, error)

// LookupEndpoints calls f.
func (f ResolverFunc) LookupEndpoints(ctx context.Context, domain string, port uint16) ([]netip.AddrPort, error) {
	return f(ctx, domain, port)
}

type endpointsState int

const (
	endpointsDone endpointsState = iota
	endpointsList                // yielding from the resolved list
	endpointsOne                 // about to yield the single IP literal endpoint
)

// Endpoints is a lazy, single-pass sequence of the network endpoints of a
// host and port. Once exhausted, an Endpoints sequence stays exhausted. The
// zero value is an exhausted sequence.
//
// Endpoints must not be pulled from multiple goroutines at the same time
// without external synchronization.
type Endpoints struct {
	state endpointsState
	list  []netip.AddrPort
	one   netip.AddrPort
}

// EndpointsOf returns a sequence yielding the specified endpoints in order.
// The returned sequence takes ownership of the list.
func EndpointsOf(list []netip.AddrPort) *Endpoints {
	return &Endpoints{
		state: endpointsList,
		list:  list,
	}
}

// SingleEndpoint returns a sequence yielding only the specified endpoint.
func SingleEndpoint(endpoint netip.AddrPort) *Endpoints {
	return &Endpoints{
		state: endpointsOne,
		one:   endpoint,
	}
}

// Next returns the next endpoint and true, or the zero netip.AddrPort and
// false after the sequence has been exhausted.
func (e *Endpoints) Next() (netip.AddrPort, bool) {
	switch e.state {
	case endpointsList:
		if len(e.list) == 0 {
			e.state, e.list = endpointsDone, nil
			return netip.AddrPort{}, false
		}
		endpoint := e.list[0]
		e.list = e.list[1:]
		return endpoint, true
	case endpointsOne:
		e.state = endpointsDone
		return e.one, true
	}
	return netip.AddrPort{}, false
}

// Remaining returns the number of endpoints not yet pulled.
func (e *Endpoints) Remaining() int {
	switch e.state {
	case endpointsList:
		return len(e.list)
	case endpointsOne:
		return 1
	}
	return 0
}

// Collect pulls all remaining endpoints, exhausting the sequence.
func (e *Endpoints) Collect() []netip.AddrPort {
	endpoints := make([]netip.AddrPort, 0, e.Remaining())
	for endpoint, ok := e.Next(); ok; endpoint, ok = e.Next() {
		endpoints = append(endpoints, endpoint)
	}
	return endpoints
}

// Resolve returns the endpoints of the specified host and port. IP address
// hosts result in exactly one endpoint without consulting the resolver, while
// domains are resolved using r.
func Resolve(ctx context.Context, hp HostAndPort, r Resolver) (*Endpoints, error) {
	switch h := hp.Host.(type) {
	case IPv4:
		return SingleEndpoint(netip.AddrPortFrom(h.Addr(), hp.Port)), nil
	case IPv6:
		return SingleEndpoint(netip.AddrPortFrom(h.Addr(), hp.Port)), nil
	case Domain:
		if r == nil {
			return nil, fmt.Errorf("cannot resolve %q: no resolver", string(h))
		}
		list, err := r.LookupEndpoints(ctx, string(h), hp.Port)
		if err != nil {
			return nil, fmt.Errorf("cannot resolve %q: %w", string(h), err)
		}
		return EndpointsOf(list), nil
	}
	return nil, ErrEmptyHost
}
