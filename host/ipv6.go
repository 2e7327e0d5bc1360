// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package host

import (
	"strconv"
	"strings"
)

// parseIPv6 parses the text between the brackets of an IPv6 host. It scans
// the input byte by byte, filling the eight groups from the left. A “::” marks
// the compression point; after the scan all groups following the compression
// point get moved to the end of the address, leaving zeros in between. The
// final two groups might be given in dotted decimal IPv4 notation instead.
func parseIPv6(input string) (IPv6, error) {
	var pieces IPv6
	n := len(input)
	if n < 2 {
		return IPv6{}, ErrInvalidIPv6Address
	}
	pieceIdx := 0
	compress := -1 // no “::” seen yet
	i := 0

	if input[0] == ':' {
		if input[1] != ':' {
			return IPv6{}, ErrInvalidIPv6Address
		}
		i = 2
		pieceIdx = 1
		compress = 1
	}

	ipv4Tail := false
	for i < n {
		if pieceIdx == 8 {
			return IPv6{}, ErrInvalidIPv6Address
		}
		if input[i] == ':' {
			if compress >= 0 {
				return IPv6{}, ErrInvalidIPv6Address
			}
			i++
			pieceIdx++
			compress = pieceIdx
			continue
		}
		start := i
		end := start + 4
		if end > n {
			end = n
		}
		var value uint16
		for i < end {
			digit, ok := hexDigit(input[i])
			if !ok {
				break
			}
			value = value<<4 | digit
			i++
		}
		if i < n {
			switch input[i] {
			case '.':
				if i == start {
					return IPv6{}, ErrInvalidIPv6Address
				}
				// rescan the digits just read as the first IPv4 number.
				i = start
				ipv4Tail = true
			case ':':
				i++
				if i == n {
					return IPv6{}, ErrInvalidIPv6Address
				}
			default:
				return IPv6{}, ErrInvalidIPv6Address
			}
		}
		if ipv4Tail {
			break
		}
		pieces[pieceIdx] = value
		pieceIdx++
	}

	if ipv4Tail {
		if pieceIdx > 6 {
			return IPv6{}, ErrInvalidIPv6Address
		}
		numbersSeen := 0
		for i < n {
			if numbersSeen > 0 {
				if input[i] != '.' || numbersSeen >= 4 {
					return IPv6{}, ErrInvalidIPv6Address
				}
				i++
			}
			if i == n || !isDecDigit(input[i]) {
				return IPv6{}, ErrInvalidIPv6Address
			}
			value := -1
			for i < n && isDecDigit(input[i]) {
				digit := int(input[i] - '0')
				switch value {
				case -1:
					value = digit
				case 0:
					return IPv6{}, ErrInvalidIPv6Address // leading zero
				default:
					value = value*10 + digit
				}
				if value > 255 {
					return IPv6{}, ErrInvalidIPv6Address
				}
				i++
			}
			pieces[pieceIdx] = pieces[pieceIdx]<<8 | uint16(value)
			numbersSeen++
			if numbersSeen == 2 || numbersSeen == 4 {
				pieceIdx++
			}
		}
		if numbersSeen != 4 {
			return IPv6{}, ErrInvalidIPv6Address
		}
	}

	if compress >= 0 {
		swaps := pieceIdx - compress
		pieceIdx = 7
		for pieceIdx != 0 && swaps > 0 {
			from := compress + swaps - 1
			pieces[pieceIdx], pieces[from] = pieces[from], pieces[pieceIdx]
			pieceIdx--
			swaps--
		}
	} else if pieceIdx != 8 {
		return IPv6{}, ErrInvalidIPv6Address
	}
	return pieces, nil
}

func hexDigit(c byte) (uint16, bool) {
	switch {
	case c >= '0' && c <= '9':
		return uint16(c - '0'), true
	case c >= 'a' && c <= 'f':
		return uint16(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return uint16(c-'A') + 10, true
	}
	return 0, false
}

func isDecDigit(c byte) bool { return c >= '0' && c <= '9' }

// writeIPv6 writes the groups of an IPv6 address without brackets, replacing
// the longest run of zero groups with “::”.
func writeIPv6(b *strings.Builder, pieces IPv6) {
	start, end := longestZeroRun(pieces)
	for i := 0; i < 8; i++ {
		if i == start {
			b.WriteByte(':')
			if i == 0 {
				b.WriteByte(':')
			}
			if end >= 8 {
				break
			}
			i = end
		}
		b.WriteString(strconv.FormatUint(uint64(pieces[i]), 16))
		if i < 7 {
			b.WriteByte(':')
		}
	}
}

// longestZeroRun returns the half-open index range [start, end) of the
// leftmost longest run of zero groups, or -1, -1 if there are no zero groups
// at all. Runs of a single zero group qualify too.
func longestZeroRun(pieces IPv6) (start, end int) {
	start, end = -1, -1
	runStart := -1
	for i := 0; i <= len(pieces); i++ {
		if i < len(pieces) && pieces[i] == 0 {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		if runStart >= 0 && i-runStart > end-start {
			start, end = runStart, i
		}
		runStart = -1
	}
	return start, end
}
