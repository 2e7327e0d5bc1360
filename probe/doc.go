/*
Package probe implements a network endpoint (in)validator, either pinging an
endpoint's IP address via ICMP(v4/v6) or connecting to the endpoint's TCP
port.

[Prober] objects support concurrent endpoint validation jobs with maximum
goroutine limits. Individual verdicts are streamed as they are decided, to a
channel returned when creating a new Prober object. Here, a
[types.QualifiedAddress] consists of (at least) an endpoint as well as the
[types.Quality] state, notably [types.Verified] and [types.Invalid], but also
[types.Verifying] and (initially) [types.Unverified].

	                 +---+
	netip.AddrPort-->| P +-->ch QualifiedAddress
	                 +---+

⚠ Please note that a [Prober] initially emits any newly submitted endpoint
before it undergoes verification (with its quality set to “verifying”), as well
as later the final verdict. The rationale is that especially interactive
clients can more easily manage their display so that all enqueued
verifications are early visible.

Probers can be operated in a pipeline in that they read the endpoints to be
validated from an input channel and then stream the results to the Prober's
output channel.

	                       +---+
	ch QualifiedAddress -->| P +-->ch QualifiedAddress
	                       +---+

# Acknowledgements

Under its hood, [Prober] leverages [gammazero/workerpool] as the limiting
goroutine pool and [go-ping/ping] for sending ICMP echo requests.

[gammazero/workerpool]: https://github.com/gammazero/workerpool
[go-ping/ping]: https://github.com/go-ping/ping
*/
package probe
