/*
Package test provides an in-process DNS server for unit tests that need a
resolver to talk to, without depending on the network configuration of the
host running the tests.

	srv, err := test.NewDNSServer(map[string][]netip.Addr{
	    "foo.example": {netip.MustParseAddr("10.0.0.1")},
	})
	defer srv.Close()
	pool, err := dnsworker.New(ctx, 1, &dns.Client{}, srv.Addr())
*/
package test
