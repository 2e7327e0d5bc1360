// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package host

import (
	"fmt"
	"net/netip"
	"strings"
)

// Host is the host component of a URL: either a [Domain], an [IPv4] address,
// or an [IPv6] address. No other types can implement Host.
type Host interface {
	fmt.Stringer
	Kind() Kind
	sealed()
}

// Kind tells the three variants of a [Host] apart without a type switch.
type Kind int

// The kinds of hosts.
const (
	KindDomain Kind = iota // DNS domain name
	KindIPv4               // IPv4 address literal
	KindIPv6               // bracketed IPv6 address literal
)

// String returns the clear-text representation of a Kind value.
func (k Kind) String() string {
	switch k {
	case KindDomain:
		return "domain"
	case KindIPv4:
		return "ipv4"
	case KindIPv6:
		return "ipv6"
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// MarshalText implements [encoding.TextMarshaler].
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Domain is a DNS domain name consisting of '.' dot-separated labels, with
// non-ASCII labels already encoded in punycode.
type Domain string

// IPv4 is an IPv4 address, in network byte order.
type IPv4 [4]byte

// IPv6 is an IPv6 address as its eight 16 bit groups.
type IPv6 [8]uint16

var (
	_ Host = Domain("")
	_ Host = IPv4{}
	_ Host = IPv6{}
)

func (Domain) sealed() {}
func (IPv4) sealed()   {}
func (IPv6) sealed()   {}

// Kind returns KindDomain.
func (Domain) Kind() Kind { return KindDomain }

// Kind returns KindIPv4.
func (IPv4) Kind() Kind { return KindIPv4 }

// Kind returns KindIPv6.
func (IPv6) Kind() Kind { return KindIPv6 }

// String returns the domain name unchanged.
func (d Domain) String() string { return string(d) }

// MarshalText implements [encoding.TextMarshaler].
func (d Domain) MarshalText() ([]byte, error) { return []byte(d), nil }

// String returns the address in dotted decimal notation.
func (a IPv4) String() string { return a.Addr().String() }

// MarshalText implements [encoding.TextMarshaler].
func (a IPv4) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// Addr returns the address as a [netip.Addr].
func (a IPv4) Addr() netip.Addr { return netip.AddrFrom4(a) }

// Uint32 returns the address as a 32 bit number in host byte order.
func (a IPv4) Uint32() uint32 {
	return uint32(a[0])<<24 | uint32(a[1])<<16 | uint32(a[2])<<8 | uint32(a[3])
}

// IPv4FromUint32 returns the IPv4 address for a 32 bit number.
func IPv4FromUint32(n uint32) IPv4 {
	return IPv4{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
}

// String returns the address in brackets, compressing the longest run of zero
// groups.
func (a IPv6) String() string {
	var b strings.Builder
	b.Grow(2 + 8*5)
	b.WriteByte('[')
	writeIPv6(&b, a)
	b.WriteByte(']')
	return b.String()
}

// MarshalText implements [encoding.TextMarshaler].
func (a IPv6) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// Addr returns the address as a [netip.Addr].
func (a IPv6) Addr() netip.Addr {
	var b [16]byte
	for i, group := range a {
		b[2*i] = byte(group >> 8)
		b[2*i+1] = byte(group)
	}
	return netip.AddrFrom16(b)
}

// FromAddr returns the Host for the specified IP address, dropping any IPv6
// zone. IPv4-mapped IPv6 addresses stay IPv6 hosts. FromAddr returns nil for
// the zero netip.Addr.
func FromAddr(addr netip.Addr) Host {
	switch {
	case addr.Is4():
		return IPv4(addr.As4())
	case addr.Is6():
		b := addr.As16()
		var a IPv6
		for i := range a {
			a[i] = uint16(b[2*i])<<8 | uint16(b[2*i+1])
		}
		return a
	}
	return nil
}

// Parse parses a URL host: either an IPv6 address in “[]” square brackets, an
// IPv4 address, or otherwise a domain.
//
// Non-bracketed input is percent-decoded and then IDNA-normalized before
// checking for IPv4 syntax; errors of the IDNA normalization are returned
// unchanged. The returned Domain might share memory with input; use [Clone]
// where the host must not keep a larger input alive.
func Parse(input string) (Host, error) {
	if strings.HasPrefix(input, "[") {
		if !strings.HasSuffix(input, "]") {
			return nil, fmt.Errorf("%w: missing closing bracket in %q", ErrInvalidIPv6Address, input)
		}
		addr, err := parseIPv6(input[1 : len(input)-1])
		if err != nil {
			return nil, fmt.Errorf("%w: %q", err, input)
		}
		return addr, nil
	}
	domain, err := toASCII(percentDecode(input))
	if err != nil {
		return nil, err
	}
	if idx := strings.IndexFunc(domain, isForbiddenDomainRune); idx >= 0 {
		return nil, fmt.Errorf("%w %q in %q", ErrInvalidDomainCharacter, domain[idx], input)
	}
	addr, ok, err := parseIPv4(domain)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, input)
	}
	if ok {
		return addr, nil
	}
	return Domain(domain), nil
}

// ParseBytes works like [Parse], but for callers that hold the host as raw
// bytes.
func ParseBytes(input []byte) (Host, error) {
	return Parse(string(input))
}

// Clone returns a copy of h that doesn't share any memory with the text h was
// parsed from.
func Clone(h Host) Host {
	if d, ok := h.(Domain); ok {
		return Domain(strings.Clone(string(d)))
	}
	return h
}

func isForbiddenDomainRune(r rune) bool {
	switch r {
	case 0, '\t', '\n', '\r', ' ', '#', '%', '/', ':', '?', '@', '[', '\\', ']':
		return true
	}
	return false
}
