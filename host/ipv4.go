// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package host

import (
	"strconv"
	"strings"
)

// parseIPv4 parses the (already normalized) text as an IPv4 address in one of
// the legacy notations. It returns false without an error when the text isn't
// shaped like an IPv4 address at all, so the caller should treat it as a
// domain instead. Only IPv4-shaped text with out-of-range numbers results in
// an error.
func parseIPv4(s string) (IPv4, bool, error) {
	if s == "" {
		return IPv4{}, false, nil
	}
	parts := strings.Split(s, ".")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	if len(parts) > 4 {
		return IPv4{}, false, nil
	}
	var numbers [4]uint32
	for idx, part := range parts {
		if part == "" {
			return IPv4{}, false, nil
		}
		n, ok := parseIPv4Number(part)
		if !ok {
			return IPv4{}, false, nil
		}
		numbers[idx] = n
	}
	// s is non-empty, so there's at least one (non-empty) part here.
	leading := numbers[:len(parts)-1]
	tail := numbers[len(parts)-1]
	if uint64(tail) >= uint64(1)<<(32-8*len(leading)) {
		return IPv4{}, false, ErrInvalidIPv4Address
	}
	for _, n := range leading {
		if n > 255 {
			return IPv4{}, false, ErrInvalidIPv4Address
		}
	}
	addr := tail
	for idx, n := range leading {
		addr += n << (8 * (3 - idx))
	}
	return IPv4FromUint32(addr), true, nil
}

// parseIPv4Number parses a single non-empty number of an IPv4 address, which
// is hexadecimal when prefixed with “0x” or “0X”, octal when prefixed with
// “0”, and decimal otherwise. A bare prefix is zero.
func parseIPv4Number(s string) (uint32, bool) {
	radix := 10
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		s, radix = s[2:], 16
	case len(s) >= 2 && s[0] == '0':
		s, radix = s[1:], 8
	}
	if s == "" {
		return 0, true
	}
	if s[0] == '+' || s[0] == '-' {
		return 0, false
	}
	n, err := strconv.ParseUint(s, radix, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}
