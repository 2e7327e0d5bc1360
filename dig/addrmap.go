// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package dig

import (
	"context"
	"sort"
	"sync"

	"github.com/siemens/urlhost/types"
)

// NamedAddressSet is a URL host and port together with a list of
// associated/resolved qualified endpoints.
type NamedAddressSet struct {
	Host      string                        `json:"host"`            // canonical host and port
	Addresses []types.QualifiedAddressValue `json:"endpoints"`       // associated endpoint(s)
	Error     string                        `json:"error,omitempty"` // resolution error, if any
}

// NamedAddressesMap maps URL hosts to their corresponding lists of qualified
// endpoints. A typical use case for a NamedAddressesMap is to consume
// host-endpoint information from an event stream (channel) sending updates as
// hosts are dug, resolved into the corresponding endpoints, and finally
// (in)validated.
type NamedAddressesMap struct {
	m  map[string]*namedEndpoints
	mu sync.Mutex
}

type namedEndpoints struct {
	endpoints []types.QualifiedAddressValue
	err       error
}

// NewNamedAddressesMap returns a new and properly initialized
// NamedAddressesMap.
func NewNamedAddressesMap() *NamedAddressesMap {
	return &NamedAddressesMap{
		m: map[string]*namedEndpoints{},
	}
}

// Get returns all named endpoints from the map, sorted by host.
func (m *NamedAddressesMap) Get() []NamedAddressSet {
	m.mu.Lock()
	defer m.mu.Unlock()
	sets := make([]NamedAddressSet, 0, len(m.m))
	for name, named := range m.m {
		set := NamedAddressSet{
			Host:      name,
			Addresses: append([]types.QualifiedAddressValue{}, named.endpoints...),
		}
		if named.err != nil {
			set.Error = named.err.Error()
		}
		sets = append(sets, set)
	}
	sort.Slice(sets, func(a, b int) bool { return sets[a].Host < sets[b].Host })
	return sets
}

// Update the map with a NamedAddress, augmenting endpoints in case they are
// yet unknown. Known endpoints are updated in case they have quality changing
// as follows:
//   - from unverified to verifying
//   - from verifying to either verified or invalid
//
// A NamedAddress without endpoint, but with an error, marks its host as
// having failed resolution.
func (m *NamedAddressesMap) Update(namaddr types.NamedAddress) {
	if namaddr == nil {
		return
	}
	name := namaddr.Name()
	if name == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	named, ok := m.m[name]
	if !ok {
		named = &namedEndpoints{endpoints: []types.QualifiedAddressValue{}}
		m.m[name] = named
	}
	endpoint := namaddr.Endpoint()
	if !endpoint.IsValid() {
		if err := namaddr.Err(); err != nil {
			named.err = err
		}
		return
	}
	for idx := range named.endpoints {
		if named.endpoints[idx].Address == endpoint {
			if namaddr.Qual() > named.endpoints[idx].Quality { // slightly simplified "update" rule
				named.endpoints[idx] = namaddr.QA()
			}
			return
		}
	}
	named.endpoints = append(named.endpoints, namaddr.QA())
}

// Track NamedAddress updates received from the specified update channel until
// the channel is closed or the context done. Track only returns after
// processing all updates or when the context is done.
func (m *NamedAddressesMap) Track(ctx context.Context, news <-chan types.NamedAddress) error {
	for {
		select {
		case namaddr, ok := <-news:
			if !ok {
				return nil
			}
			m.Update(namaddr)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
