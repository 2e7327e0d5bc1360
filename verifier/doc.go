/*
Package verifier implements an endpoint verifier with caching in order to
avoid expensive duplicate endpoint verification when several hosts resolve to
the same endpoints.

The concrete endpoint verification is then carried out by a [probe.Prober].
*/
package verifier
