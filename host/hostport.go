// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package host

import (
	"fmt"
	"strconv"
	"strings"
)

// HostAndPort pairs a [Host] with a port number.
type HostAndPort struct {
	Host Host   `json:"host"`
	Port uint16 `json:"port"`
}

// Clone returns a copy of hp that doesn't share any memory with the text its
// host was parsed from.
func (hp HostAndPort) Clone() HostAndPort {
	return HostAndPort{
		Host: Clone(hp.Host),
		Port: hp.Port,
	}
}

// String returns the canonical “host:port” text, with IPv6 hosts in brackets.
func (hp HostAndPort) String() string {
	if hp.Host == nil {
		return ":" + strconv.FormatUint(uint64(hp.Port), 10)
	}
	return hp.Host.String() + ":" + strconv.FormatUint(uint64(hp.Port), 10)
}

// MarshalText implements [encoding.TextMarshaler].
func (hp HostAndPort) MarshalText() ([]byte, error) {
	return []byte(hp.String()), nil
}

// ParseHostAndPort parses “host:port” text, where the “:port” part is
// optional and defaults to defaultPort. IPv6 hosts need to be in square
// brackets.
func ParseHostAndPort(s string, defaultPort uint16) (HostAndPort, error) {
	hostText, portText := s, ""
	hasPort := false
	if strings.HasPrefix(s, "[") {
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return HostAndPort{}, fmt.Errorf("%w: missing closing bracket in %q", ErrInvalidIPv6Address, s)
		}
		hostText = s[:end+1]
		if rest := s[end+1:]; rest != "" {
			if rest[0] != ':' {
				return HostAndPort{}, fmt.Errorf("%w: unexpected %q after IPv6 address", ErrInvalidPort, rest)
			}
			portText, hasPort = rest[1:], true
		}
	} else if idx := strings.LastIndexByte(s, ':'); idx >= 0 {
		hostText, portText, hasPort = s[:idx], s[idx+1:], true
	}
	if hostText == "" {
		return HostAndPort{}, fmt.Errorf("%w in %q", ErrEmptyHost, s)
	}
	port := defaultPort
	if hasPort && portText != "" {
		p, err := strconv.ParseUint(portText, 10, 16)
		if err != nil {
			return HostAndPort{}, fmt.Errorf("%w: %q", ErrInvalidPort, portText)
		}
		port = uint16(p)
	}
	h, err := Parse(hostText)
	if err != nil {
		return HostAndPort{}, err
	}
	return HostAndPort{Host: h, Port: port}, nil
}
