/*
Package types defines urlhost's information model for resolved and verified
endpoints. It mainly revolves around [QualifiedAddress] and [NamedAddress], as
well as the verification [Quality] of endpoints. A [NamedAddress] is a
[QualifiedAddress] with the additional canonical URL host the endpoint was
resolved from.

# Extending QualifiedAddress

Probers accept anything that satisfies the [QualifiedAddress] interface, so
applications can attach their own information to endpoints under
verification.

In case an implementation chooses to embed [QualifiedAddressValue] into its own
type, it is essential to (re)implement the
[QualifiedAddressValue.WithNewQuality] method. Failing to do so will cause the
embedded QualifiedAddressValue.WithNewQuality method to be promoted to the new
type, returning only a stock QualifiedAddressValue and loosing the additional
information in the process.

# Design Rationale

Endpoints are passed around as interface pointers through channels between
concurrently running diggers, probers, and verifiers. To keep value semantics
and immutability, the [QualifiedAddress] interface offers only getters, and
quality updates always return new values via WithNewQuality. This avoids a
locking mess as well as many subtle bugs.
*/
package types
