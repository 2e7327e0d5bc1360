// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package host

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

// idnaProfile maps domains for lookup, following UTS #46 non-transitional
// processing without the STD3 ASCII rules and hyphen checks, as browsers do.
// Characters not allowed in domains are then caught by Parse itself.
var idnaProfile = idna.New(
	idna.MapForLookup(),
	idna.BidiRule(),
	idna.Transitional(false),
	idna.StrictDomainName(false),
	idna.CheckHyphens(false),
)

// toASCII returns the IDNA ASCII form of a domain.
func toASCII(domain string) (string, error) {
	return idnaProfile.ToASCII(domain)
}

// percentDecode replaces all “%xx” sequences with the bytes they encode and
// leaves invalid sequences untouched. Invalid UTF-8 in the result gets
// replaced by U+FFFD.
func percentDecode(s string) string {
	if strings.IndexByte(s, '%') < 0 {
		if utf8.ValidString(s) {
			return s
		}
		return strings.ToValidUTF8(s, string(utf8.RuneError))
	}
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			hi, hiok := hexDigit(s[i+1])
			lo, look := hexDigit(s[i+2])
			if hiok && look {
				b = append(b, byte(hi<<4|lo))
				i += 2
				continue
			}
		}
		b = append(b, s[i])
	}
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}
