// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"net"
	"net/netip"
	"sort"
	"strings"

	"github.com/siemens/urlhost/dig"
	"github.com/siemens/urlhost/types"
)

// renderer renders the terminal display, based on named+qualified endpoint
// information passed to its Render method.
type renderer struct {
	Indentation int
	vantage     string // where we're digging from
	w           io.Writer
	spinner     *spinner
}

// newRenderer returns a renderer rendering to the specified io.Writer.
// vantage describes from where the hosts are dug and verified.
func newRenderer(w io.Writer, vantage string) *renderer {
	sp := newSpinner(brailleSpin)
	sp.Start(*spinnerInterval)
	return &renderer{
		vantage: vantage,
		w:       w,
		spinner: sp,
	}
}

// Stop the renderer's background spinner.
func (r *renderer) Stop() {
	r.spinner.Stop()
}

// Render the given named+qualified endpoints.
func (r *renderer) Render(na []dig.NamedAddressSet) {
	groups := groupHosts(na)
	// If we don't have any host+endpoint information yet, show a proxy
	// message.
	if len(groups) == 0 {
		fmt.Fprintf(r.w, "digging from %s...\n", r.vantage)
		return
	}
	// For neat display, determine the length of the longest host in the data
	// to display, so that the endpoints column doesn't zig-zag around across
	// different groups.
	maxlen := 0
	for _, group := range groups {
		for _, set := range group {
			if l := len(set.Host); l > maxlen {
				maxlen = l
			}
		}
	}
	fmt.Fprintf(r.w, "endpoints as seen from %s\n", r.vantage)
	for _, group := range groups {
		switch gn := groupName(group[0].Host); gn {
		case "":
			fmt.Fprint(r.w, "IP addresses and single-label hosts\n")
		default:
			fmt.Fprintf(r.w, "hosts in %s\n", groupNameStyle.Styled(gn))
		}
		for _, set := range group {
			r.renderGroupDetails(maxlen, set)
		}
	}
}

// renderGroupDetails renders a host and its qualified endpoints.
func (r *renderer) renderGroupDetails(hostwidth int, set dig.NamedAddressSet) {
	fmt.Fprintf(r.w, "%-*s%-*s", r.Indentation, "", hostwidth, set.Host)
	if set.Error != "" {
		fmt.Fprint(r.w, invalidAddressStyle.Styled(" × "+set.Error+" "))
	}
	for idx, qa := range set.Addresses {
		if idx > 0 {
			fmt.Fprint(r.w, " ")
		}
		endpoint := qa.Address.String()
		switch qa.Quality {
		case types.Unverified:
			fmt.Fprintf(r.w, " ? %s", endpoint)
		case types.Verifying:
			fmt.Fprint(r.w, verifyingAddressStyle.Styled(" "+r.spinner.Spinner()+endpoint+" "))
		case types.Verified:
			fmt.Fprint(r.w, validAddressStyle.Styled(" ✔ "+endpoint+" "))
		case types.Invalid:
			fmt.Fprint(r.w, invalidAddressStyle.Styled(" × "+endpoint+" "))
		}
	}
	fmt.Fprintln(r.w)
}

// sortQualifiedAddresses sorts a slice of qualified endpoints in place, IPv4
// before IPv6, then by address and finally port.
func sortQualifiedAddresses(qas []types.QualifiedAddressValue) {
	sort.Slice(qas, func(a, b int) bool {
		if c := qas[a].Address.Addr().Compare(qas[b].Address.Addr()); c != 0 {
			return c < 0
		}
		return qas[a].Address.Port() < qas[b].Address.Port()
	})
}

// sortHosts sorts a slice of named endpoints in place according to their
// grouped labels. That is, sorting order is not lexicographically on the
// hosts, but instead first according to their parent domains (if not present,
// then assumed to be ""), and second according to their first labels.
func sortHosts(sets []dig.NamedAddressSet) {
	sort.SliceStable(sets, func(a, b int) bool {
		gA, lA := groupAndLabel(sets[a].Host)
		gB, lB := groupAndLabel(sets[b].Host)
		return (gA < gB) || ((gA == gB) && (lA < lB))
	})
}

// groupAndLabel returns the parent domain and the first label separately,
// given a canonical “host:port”. IP address literals as well as single-label
// domains are taken to be in the "" group.
func groupAndLabel(hostport string) (group string, label string) {
	h, _, err := net.SplitHostPort(hostport)
	if err != nil {
		h = hostport
	}
	if _, err := netip.ParseAddr(h); err == nil {
		return "", h
	}
	h = strings.TrimSuffix(h, ".")
	if label, group, ok := strings.Cut(h, "."); ok {
		return group, label
	}
	return "", h
}

// groupName returns the parent domain of a host, or "" if there is none.
func groupName(hostport string) string {
	group, _ := groupAndLabel(hostport)
	return group
}

// Note: groupHosts modifies the passed sets in place.
func groupHosts(sets []dig.NamedAddressSet) [][]dig.NamedAddressSet {
	sortHosts(sets)
	groups := [][]dig.NamedAddressSet{}
	var recentGroup []dig.NamedAddressSet
	for _, set := range sets {
		gn := groupName(set.Host)
		// if this is the first group ever or we have wandered off into a new
		// group, then allocate a new group.
		if recentGroup == nil || gn != groupName(recentGroup[0].Host) {
			if recentGroup != nil {
				groups = append(groups, recentGroup)
			}
			recentGroup = []dig.NamedAddressSet{}
		}
		sortQualifiedAddresses(set.Addresses)
		recentGroup = append(recentGroup, set)
	}
	if recentGroup != nil {
		groups = append(groups, recentGroup)
	}
	return groups
}
