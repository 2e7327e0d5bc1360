/*
Package dig implements a URL host-to-endpoint digger with optional
(in)validation of the endpoints dug out. Optionally, the digging and
validation is done from within a specific network namespace, such as that of
a Docker container.

The digging and verification steps run concurrently, but under the
constraints of limited goroutines. That is, the maximum number of each worker
set is limited for name-to-endpoint resolution, as well as for endpoint
validation.

Digging is implemented in pure Go, leveraging the incredible Go module
[miekg/dns].

# Notes

A good source for how Docker's/Moby's embedded DNS resolver works is
https://github.com/moby/libnetwork/blob/master/resolver.go.

[miekg/dns]: https://github.com/miekg/dns
*/
package dig
