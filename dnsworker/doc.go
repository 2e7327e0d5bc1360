/*
Package dnsworker implements a simple limiting DNS client-request execution
pool. The [DnsPool] keeps a fixed number of “DNS workers” with their own
client connections to the same resolver, for A/AAAA lookups as well as any
other DNS request. Please note that the A/AAAA queries for a single name are
not concurrent.

A [DnsPool] also is a [host.Resolver], so it can be handed to [host.Resolve]
to turn a parsed host and port into its endpoints.

Usage

	dnsclnt := dns.Client{}
	workers, err := dnsworker.New(
	    context.Background(),
	    4,                    // number of parallel DNS connections and thus workers
	    &dnsclnt,             // DNS client
	    "127.0.0.1:53",       // address of server/resolver
	)
	workers.ResolveName(ctx,
	    "foobar.example.org",
	    func(addrs []netip.Addr, err error){
	        // do something with addrs, unless there's an error reported
	    })
	endpoints, err := workers.LookupEndpoints(ctx, "foobar.example.org", 443)
	workers.Submit(func(conn *dns.Conn){
	    // do something with the DNS connection
	})

# Acknowledgements

Under its hood, [DnsPool] leverages [gammazero/workerpool] as
the limiting goroutine pool.

[gammazero/workerpool]: https://github.com/gammazero/workerpool
*/
package dnsworker
