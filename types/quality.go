// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package types

import "fmt"

// Quality indicates the "quality" of a network endpoint, such as unverified,
// verified, et cetera.
type Quality int

// The validation qualities of a network endpoint, in the order they can
// progress.
const (
	Unverified Quality = iota // endpoint neither in verification nor verified.
	Verifying                 // endpoint in verification.
	Invalid                   // endpoint could not be successfully verified.
	Verified                  // endpoint successfully verified.
)

// String returns the clear-text representation of a Quality value.
func (q Quality) String() string {
	switch q {
	case Unverified:
		return "unverified"
	case Verifying:
		return "verifying"
	case Verified:
		return "verified"
	case Invalid:
		return "invalid"
	}
	return fmt.Sprintf("Quality(%d)", q)
}

// MarshalText implements [encoding.TextMarshaler], so qualities show up in
// their clear-text form in JSON output.
func (q Quality) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

// IsPending returns true as long as an endpoint hasn't been either
// successfully or unsuccessfully verified.
func (q Quality) IsPending() bool {
	switch q {
	case Unverified, Verifying:
		return true
	default:
		return false
	}
}
