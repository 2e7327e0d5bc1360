/*
Package host parses and canonically serializes the host component of URLs, as
defined by the WHATWG URL standard: DNS domain names, IPv4 address literals,
and bracketed IPv6 address literals.

A parsed [Host] is exactly one of [Domain], [IPv4], or [IPv6]. The Host
interface is sealed, so type switches over these three types are exhaustive.
All three are plain comparable values, so two hosts are equal if and only if
they compare equal using “==”.

	h, err := host.Parse("0x7f.1")
	// h == host.IPv4{127, 0, 0, 1}, h.String() == "127.0.0.1"

	h, err = host.Parse("[2001:DB8:0:0:1:0:0:1]")
	// h.String() == "[2001:db8::1:0:0:1]"

# Legacy IPv4 Notations

For web compatibility, IPv4 literals may use hexadecimal (“0x”) or octal
(leading “0”) numbers, and fewer than four numbers, where the last number then
fills all remaining low-order bytes: “1.2.3” is 1.2.0.3, and “0x7f000001” is
127.0.0.1. Inputs with more than four dot-separated numbers, or with numbers
that don't parse at all, are not IPv4 addresses: they silently become domains.
In contrast, inputs that look like IPv4 addresses but overflow, such as
“256.0.0.1”, are rejected with [ErrInvalidIPv4Address].

# Serialization

IPv6 addresses are rendered in brackets, using lowercase hexadecimal groups
and compressing the longest run of zero groups into “::”. When there are
multiple longest runs, the leftmost one gets compressed. Please note that even
a single zero group gets compressed when there is no longer run; this slightly
deviates from RFC 5952 but matches the serialization of existing URL
implementations.

# Endpoints

[Resolve] combines a [HostAndPort] with a [Resolver] into a lazy, single-pass
[Endpoints] sequence. IP literal hosts never reach the resolver.

# Collaborators

Before a non-bracketed host gets checked for IPv4 syntax it is percent-decoded
and then normalized into its ASCII form using IDNA (UTS #46, non-transitional
processing, as implemented by [golang.org/x/net/idna]). IDNA errors are passed
through unchanged.
*/
package host
