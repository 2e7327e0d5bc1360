// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package probe

import (
	"fmt"
	"strings"
)

// Method specifies how a [Prober] checks endpoints for reachability.
type Method int

const (
	// ICMP pings the IP address of an endpoint, ignoring the port.
	ICMP Method = iota
	// TCP opens (and immediately closes again) TCP connections to an
	// endpoint's IP address and port.
	TCP
)

// String returns the name of the method, as also understood by
// [ParseMethod].
func (m Method) String() string {
	switch m {
	case ICMP:
		return "icmp"
	case TCP:
		return "tcp"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod returns the Method for the specified name ("icmp" or "tcp",
// case-insensitive).
func ParseMethod(name string) (Method, error) {
	switch strings.ToLower(name) {
	case "icmp":
		return ICMP, nil
	case "tcp":
		return TCP, nil
	}
	return 0, fmt.Errorf("unknown probing method %q, must be either icmp or tcp", name)
}
