// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package probe

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"os"
	"strconv"
	"time"

	"github.com/siemens/urlhost/types"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gleak"
	. "github.com/thediveo/namspill"
	. "github.com/thediveo/success"
)

// listen on an ephemeral TCP port on the IPv4 loopback, accepting and
// immediately closing connections until the test ends.
func listen() netip.AddrPort {
	GinkgoHelper()
	l := Successful(net.Listen("tcp", "127.0.0.1:0"))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	DeferCleanup(func() {
		l.Close()
		Eventually(done).Should(BeClosed())
	})
	return netip.MustParseAddrPort(l.Addr().String())
}

// closedPort returns a loopback endpoint nobody listens on anymore.
func closedPort() netip.AddrPort {
	GinkgoHelper()
	l := Successful(net.Listen("tcp", "127.0.0.1:0"))
	ep := netip.MustParseAddrPort(l.Addr().String())
	Expect(l.Close()).To(Succeed())
	return ep
}

var _ = Describe("prober", func() {

	BeforeEach(func() {
		goodgos := Goroutines()
		DeferCleanup(func() {
			Eventually(Goroutines).WithTimeout(3 * time.Second).WithPolling(250 * time.Millisecond).
				ShouldNot(HaveLeaked(goodgos))
			Expect(Tasks()).To(BeUniformlyNamespaced())
		})
	})

	It("handles multiple stops", func() {
		prober, _ := New(1)
		for i := 0; i < 2; i++ {
			By(fmt.Sprintf("%d round", i+1))
			done := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				prober.StopWait()
				close(done)
			}()
			Eventually(done).WithTimeout(1 * time.Second).Should(BeClosed())
		}
	})

	It("verifies a named endpoint", NodeTimeout(30*time.Second), func(ctx context.Context) {
		ep := listen()
		prober, courtTV := New(1,
			WithMethod(TCP), WithInterval(50*time.Millisecond))
		prober.ValidateQA(ctx, &types.NamedAddressValue{
			Host:                  "foobar",
			QualifiedAddressValue: types.QualifiedAddressValue{Address: ep},
		})
		Eventually(courtTV).Should(Receive(
			HaveValue(HaveField("QualifiedAddressValue.Quality", types.Verifying))))
		Eventually(courtTV).WithTimeout(5 * time.Second).Should(Receive(
			HaveValue(Equal(types.NamedAddressValue{
				Host: "foobar",
				QualifiedAddressValue: types.QualifiedAddressValue{
					Address: ep,
					Quality: types.Verified,
				},
			}))))
		prober.StopWait()
		Eventually(courtTV).Should(BeClosed())
	})

	It("invalidates an endpoint nobody listens on", NodeTimeout(30*time.Second), func(ctx context.Context) {
		ep := closedPort()
		prober, courtTV := New(1,
			WithMethod(TCP), WithCount(2), WithInterval(50*time.Millisecond))
		prober.Validate(ctx, ep)
		Eventually(courtTV).Should(Receive(HaveValue(HaveField("Quality", types.Verifying))))
		var verdict types.QualifiedAddress
		Eventually(courtTV).WithTimeout(5 * time.Second).Should(Receive(&verdict))
		Expect(verdict.Qual()).To(Equal(types.Invalid))
		Expect(verdict.Err()).To(MatchError(ErrTooManyLosses))
		prober.StopWait()
	})

	It("invalidates endpoints without port when connecting", NodeTimeout(30*time.Second), func(ctx context.Context) {
		prober, courtTV := New(1, WithMethod(TCP))
		prober.Validate(ctx, netip.AddrPortFrom(netip.MustParseAddr("127.0.0.1"), 0))
		Eventually(courtTV).Should(Receive())
		Eventually(courtTV).Should(Receive(HaveValue(HaveField("Quality", types.Invalid))))
		prober.StopWait()
	})

	It("cancels endpoint culture", NodeTimeout(30*time.Second), func(ctx context.Context) {
		ep := listen()
		prober, courtTV := newProber(1, 0,
			WithMethod(TCP),
			WithCount(3),
			WithInterval(10*time.Second),
			WithThresholdPercentage(1))
		defer prober.StopWait()
		// Set the context to get cancelled way before the prober will announce
		// its final verdict.
		ctx, cancel := context.WithTimeout(ctx, 4*time.Second)
		defer cancel()
		go func() {
			// spin off the validation kick-off as it tries to write its
			// intermediate verdict into the non-buffered channel ... where
			// no-one would be listening yet if it were not for starting the
			// validation in a separate goroutine.
			prober.Validate(ctx, ep)
		}()
		// We should see an intermediate verdict about things being in flight.
		Eventually(courtTV).WithTimeout(1 * time.Second).Should(
			Receive(HaveValue(HaveField("Quality", types.Verifying))))
		cancel()
		// Swallow a "racy" verdict that we cannot avoid.
		wecker := time.NewTimer(time.Second)
		select {
		case <-wecker.C:
		case v := <-courtTV:
			if !wecker.Stop() {
				<-wecker.C
			}
			Expect(v).To(HaveField("Quality", types.Invalid))
		}
		Consistently(courtTV).WithTimeout(2 * time.Second).ShouldNot(Receive())
	})

	It("verifies a stream of endpoints", NodeTimeout(30*time.Second), func(ctx context.Context) {
		ep := listen()
		prober, courtTV := New(3, WithMethod(TCP), WithInterval(10*time.Millisecond))
		inch := make(chan types.QualifiedAddress)
		go func() {
			for i := 0; i < 5; i++ {
				inch <- &types.NamedAddressValue{
					Host:                  strconv.Itoa(i),
					QualifiedAddressValue: types.QualifiedAddressValue{Address: ep},
				}
			}
			close(inch)
		}()
		go func() {
			prober.ValidateStream(ctx, inch)
			prober.StopWait()
		}()
		i := map[string]types.Quality{}
		for qa := range courtTV {
			na := qa.(types.NamedAddress).NA()
			if !na.Quality.IsPending() {
				i[na.Host] = na.Quality
			}
		}
		Expect(i).To(HaveLen(5))
		Expect(i).To(HaveEach(types.Verified))
	})

	It("pings the loopback", NodeTimeout(30*time.Second), func(ctx context.Context) {
		if os.Getuid() != 0 {
			Skip("needs root")
		}
		prober, courtTV := New(1,
			WithCount(2), WithInterval(100*time.Millisecond), WithTimeout(2*time.Second),
			InNetworkNamespace("/proc/self/ns/net"))
		prober.Validate(ctx, netip.MustParseAddrPort("127.0.0.1:0"))
		Eventually(courtTV).Should(Receive())
		Eventually(courtTV).WithTimeout(5 * time.Second).Should(Receive(
			HaveValue(HaveField("Quality", types.Verified))))
		prober.StopWait()
	})

})
