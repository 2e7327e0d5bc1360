// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package verifier

import (
	"context"
	"net"
	"net/netip"
	"time"

	"github.com/siemens/urlhost/probe"
	"github.com/siemens/urlhost/types"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gleak"
	. "github.com/thediveo/success"
)

var _ = Describe("verifier", func() {

	var listening, closed netip.AddrPort

	BeforeEach(func() {
		goodgos := Goroutines()
		DeferCleanup(func() {
			Eventually(Goroutines).WithTimeout(3 * time.Second).WithPolling(250 * time.Millisecond).
				ShouldNot(HaveLeaked(goodgos))
		})

		l := Successful(net.Listen("tcp", "127.0.0.1:0"))
		go func() {
			for {
				conn, err := l.Accept()
				if err != nil {
					return
				}
				conn.Close()
			}
		}()
		DeferCleanup(func() { l.Close() })
		listening = netip.MustParseAddrPort(l.Addr().String())

		l2 := Successful(net.Listen("tcp", "127.0.0.1:0"))
		closed = netip.MustParseAddrPort(l2.Addr().String())
		Expect(l2.Close()).To(Succeed())
	})

	It("verifies endpoints once, but for all hosts", NodeTimeout(30*time.Second), func(ctx context.Context) {
		v, news := New(2,
			probe.WithMethod(probe.TCP),
			probe.WithCount(1),
			probe.WithInterval(50*time.Millisecond))
		in := make(chan types.NamedAddress)
		go func() {
			defer close(in)
			for _, na := range []types.NamedAddress{
				&types.NamedAddressValue{Host: "foo.example"},
				namedEndpoint("foo.example", listening, types.Unverified),
				namedEndpoint("foo.example", closed, types.Unverified),
				&types.NamedAddressValue{Host: "bar.example"},
				namedEndpoint("bar.example", listening, types.Unverified),
			} {
				select {
				case in <- na:
				case <-ctx.Done():
					return
				}
			}
		}()
		go v.Verify(ctx, in)

		final := map[string]map[netip.AddrPort]types.Quality{}
		for na := range news {
			if !na.Endpoint().IsValid() {
				final[na.Name()] = map[netip.AddrPort]types.Quality{}
				continue
			}
			if na.Qual().IsPending() {
				continue
			}
			final[na.Name()][na.Endpoint()] = na.Qual()
		}
		Expect(final).To(Equal(map[string]map[netip.AddrPort]types.Quality{
			"foo.example": {
				listening: types.Verified,
				closed:    types.Invalid,
			},
			"bar.example": {
				listening: types.Verified,
			},
		}))
	})

	It("cancels verifying", NodeTimeout(30*time.Second), func(ctx context.Context) {
		ctx, cancel := context.WithCancel(ctx)
		v, news := New(1,
			probe.WithMethod(probe.TCP),
			probe.WithCount(3),
			probe.WithInterval(10*time.Second))
		in := make(chan types.NamedAddress, 1)
		in <- namedEndpoint("foo.example", listening, types.Unverified)
		vfdone := make(chan struct{})
		go func() {
			defer close(vfdone)
			v.Verify(ctx, in)
		}()
		Eventually(news).Should(Receive())
		cancel()
		Eventually(vfdone).Within(5 * time.Second).Should(BeClosed())
		Eventually(news).Should(BeClosed())
	})

})
