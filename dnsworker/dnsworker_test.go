// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package dnsworker

import (
	"context"
	"net/netip"
	"os"
	"sync"
	"time"

	"github.com/siemens/urlhost/host"
	"github.com/siemens/urlhost/test"

	"github.com/miekg/dns"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gleak"
	. "github.com/thediveo/namspill"
	. "github.com/thediveo/success"
)

var _ = Describe("DNS client connection pool", func() {

	var dnssrv *test.DNSServer

	BeforeEach(func() {
		goodgos := Goroutines()
		DeferCleanup(func() {
			Eventually(Goroutines).WithTimeout(3 * time.Second).WithPolling(250 * time.Millisecond).
				ShouldNot(HaveLeaked(goodgos))
			Expect(Tasks()).To(BeUniformlyNamespaced())
		})
		dnssrv = Successful(test.NewDNSServer(map[string][]netip.Addr{
			"foo.example": {
				netip.MustParseAddr("10.0.0.1"),
				netip.MustParseAddr("10.0.0.2"),
				netip.MustParseAddr("fe80::1"),
			},
			"bar.example": {
				netip.MustParseAddr("2001:db8::42"),
			},
		}))
		DeferCleanup(func() { dnssrv.Close() })
	})

	It("rejects invalid pool sizes", func(ctx context.Context) {
		Expect(New(ctx, 0, &dns.Client{}, dnssrv.Addr())).Error().To(HaveOccurred())
	})

	It("runs a goroutine-limited set of DNS tasks", NodeTimeout(30*time.Second), func(ctx context.Context) {
		const poolsize = 3

		dnsclnt := dns.Client{}
		pool := Successful(New(ctx, poolsize, &dnsclnt, dnssrv.Addr()))

		dnsconns := map[*dns.Conn]int{}
		var mu sync.Mutex
		taskfn := func(conn *dns.Conn) {
			mu.Lock()
			defer mu.Unlock()
			count := dnsconns[conn]
			dnsconns[conn] = count + 1
			time.Sleep(100 * time.Millisecond)
		}

		numtasks := poolsize * 2
		for i := 0; i < numtasks; i++ {
			pool.Submit(taskfn)
		}

		pool.StopWait()

		total := 0
		for _, count := range dnsconns {
			total += count
		}
		Expect(total).To(Equal(numtasks), "number of submitted and executed tasks mismatch")
		Expect(len(dnsconns)).To(BeNumerically("<=", poolsize))
	})

	It("resolves a name into IPv4 addresses first, then IPv6", NodeTimeout(30*time.Second), func(ctx context.Context) {
		pool := Successful(New(ctx, 1, &dns.Client{}, dnssrv.Addr()))
		defer pool.StopWait()
		ch := make(chan []netip.Addr, 1)

		pool.ResolveName(ctx,
			"foo.example",
			func(addrs []netip.Addr, err error) {
				defer GinkgoRecover()
				Expect(err).NotTo(HaveOccurred())
				ch <- addrs
			})
		Eventually(ch).Should(Receive(HaveExactElements(
			netip.MustParseAddr("10.0.0.1"),
			netip.MustParseAddr("10.0.0.2"),
			netip.MustParseAddr("fe80::1"),
		)))
	})

	It("resolves over TCP", NodeTimeout(30*time.Second), func(ctx context.Context) {
		pool := Successful(New(ctx, 2, &dns.Client{Net: "tcp"}, dnssrv.Addr()))
		defer pool.StopWait()
		Expect(pool.LookupEndpoints(ctx, "BAR.example.", 443)).To(HaveExactElements(
			netip.MustParseAddrPort("[2001:db8::42]:443")))
	})

	It("reports names without answers", NodeTimeout(30*time.Second), func(ctx context.Context) {
		pool := Successful(New(ctx, 1, &dns.Client{}, dnssrv.Addr()))
		defer pool.StopWait()
		Expect(pool.LookupEndpoints(ctx, "tld.rottennet", 80)).Error().To(MatchError(ErrNoAnswers))
	})

	It("reports resolution failures", NodeTimeout(30*time.Second), func(ctx context.Context) {
		dnsclnt := dns.Client{Net: "udp", Timeout: 500 * time.Millisecond}
		pool := Successful(New(ctx, 1, &dnsclnt, "127.0.0.1:1"))
		ch := make(chan struct{})

		pool.ResolveName(ctx,
			"tld.rottennet.",
			func(addrs []netip.Addr, err error) {
				defer GinkgoRecover()
				Expect(err).To(HaveOccurred())
				Expect(addrs).To(BeEmpty())
				close(ch)
			})
		Eventually(ch).Should(BeClosed())
		pool.StopWait()
	})

	It("doesn't resolve when the context is already cancelled", NodeTimeout(30*time.Second), func(ctx context.Context) {
		pool := Successful(New(ctx, 1, &dns.Client{}, dnssrv.Addr()))
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		queries := dnssrv.Queries()
		Expect(pool.LookupEndpoints(cctx, "foo.example", 80)).Error().To(MatchError(context.Canceled))
		pool.StopWait()
		Expect(dnssrv.Queries()).To(Equal(queries))
	})

	It("serves as a resolver for endpoints", NodeTimeout(30*time.Second), func(ctx context.Context) {
		pool := Successful(New(ctx, 2, &dns.Client{}, dnssrv.Addr()))
		defer pool.StopWait()

		hp := Successful(host.ParseHostAndPort("Foo.Example:8080", 80))
		eps := Successful(host.Resolve(ctx, hp, pool))
		Expect(eps.Collect()).To(HaveExactElements(
			netip.MustParseAddrPort("10.0.0.1:8080"),
			netip.MustParseAddrPort("10.0.0.2:8080"),
			netip.MustParseAddrPort("[fe80::1]:8080"),
		))

		queries := dnssrv.Queries()
		hp = Successful(host.ParseHostAndPort("[::1]", 80))
		eps = Successful(host.Resolve(ctx, hp, pool))
		Expect(eps.Collect()).To(HaveExactElements(netip.MustParseAddrPort("[::1]:80")))
		Expect(dnssrv.Queries()).To(Equal(queries))
	})

	It("resolves from inside a network namespace", NodeTimeout(30*time.Second), func(ctx context.Context) {
		if os.Getuid() != 0 {
			Skip("needs root")
		}
		// our own network namespace is as good as any other here, as we only
		// want to see the namespace switching in action.
		pool := Successful(New(ctx, 1, &dns.Client{}, dnssrv.Addr(),
			InNetworkNamespace("/proc/self/ns/net")))
		defer pool.StopWait()
		Expect(pool.LookupEndpoints(ctx, "foo.example", 53)).To(HaveLen(3))
	})

})
