// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package host

import "errors"

// Errors returned when parsing hosts and host-port pairs. Use [errors.Is] to
// check for them, as the returned errors usually carry the offending input as
// additional context.
var (
	ErrInvalidIPv6Address     = errors.New("invalid IPv6 address")
	ErrInvalidIPv4Address     = errors.New("invalid IPv4 address")
	ErrInvalidDomainCharacter = errors.New("invalid domain character")
	ErrInvalidPort            = errors.New("invalid port number")
	ErrEmptyHost              = errors.New("empty host")
)
