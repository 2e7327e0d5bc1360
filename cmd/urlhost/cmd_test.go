// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"context"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/siemens/urlhost/test"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gleak"
	. "github.com/thediveo/success"
)

// run the urlhost command with the specified CLI args, returning its output
// and error.
func run(ctx context.Context, args ...string) (string, error) {
	GinkgoHelper()
	out := &bytes.Buffer{}
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	rootCmd.SetErr(GinkgoWriter)
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

var _ = Describe("urlhost command", func() {

	BeforeEach(func() {
		goodgos := Goroutines()
		DeferCleanup(func() {
			Eventually(Goroutines).WithTimeout(3 * time.Second).WithPolling(250 * time.Millisecond).
				ShouldNot(HaveLeaked(goodgos))
		})
	})

	It("rejects invalid flags", func(ctx context.Context) {
		Expect(run(ctx, "--workers", "0", "parse", "foo")).Error().To(
			MatchError(ContainSubstring("--workers")))
		Expect(run(ctx, "--netns", "/proc/self/ns/net", "--container", "foo", "parse", "foo")).Error().To(
			MatchError(ContainSubstring("mutually exclusive")))
		Expect(run(ctx, "--resolver", "127.0.0.1", "parse", "foo")).Error().To(
			MatchError(ContainSubstring("--resolver")))
	})

	Context("parsing", func() {

		It("prints canonical hosts", func(ctx context.Context) {
			out := Successful(run(ctx, "parse", "EXAMPLE.com", "0x7f.1", "[0:0:0:0:0:0:0:1]"))
			Expect(out).To(ContainSubstring("example.com"))
			Expect(out).To(ContainSubstring("127.0.0.1"))
			Expect(out).To(ContainSubstring("[::1]"))
		})

		It("prints JSON and fails on invalid hosts", func(ctx context.Context) {
			out, err := run(ctx, "parse", "--json", "bücher.de", "[::1", "1.2.3.4")
			Expect(err).To(MatchError(errSomeInvalid))
			Expect(out).To(MatchJSON(`[
				{"input": "bücher.de", "kind": "domain", "host": "xn--bcher-kva.de"},
				{"input": "[::1", "error": "invalid IPv6 address: missing closing bracket in \"[::1\""},
				{"input": "1.2.3.4", "kind": "ipv4", "host": "1.2.3.4"}
			]`))
		})

	})

	Context("digging", func() {

		var dnssrv *test.DNSServer
		var port uint16

		BeforeEach(func() {
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
			port = netip.MustParseAddrPort(l.Addr().String()).Port()

			dnssrv = Successful(test.NewDNSServer(map[string][]netip.Addr{
				"foo.example": {netip.MustParseAddr("127.0.0.1")},
			}))
			DeferCleanup(func() { dnssrv.Close() })
		})

		It("requires hosts", func(ctx context.Context) {
			Expect(run(ctx, "dig")).Error().To(HaveOccurred())
		})

		It("digs and verifies hosts", NodeTimeout(30*time.Second), func(ctx context.Context) {
			out := Successful(run(ctx, "--resolver", dnssrv.Addr(),
				"dig", "--json", "--verify", "--method", "tcp", "--count", "1",
				"--port", strconv.Itoa(int(port)),
				"foo.example", "127.0.0.1"))
			ep := "127.0.0.1:" + strconv.Itoa(int(port))
			Expect(out).To(MatchJSON(`[
				{"host": "127.0.0.1:` + strconv.Itoa(int(port)) + `", "endpoints": [{"endpoint": "` + ep + `", "quality": "verified"}]},
				{"host": "foo.example:` + strconv.Itoa(int(port)) + `", "endpoints": [{"endpoint": "` + ep + `", "quality": "verified"}]}
			]`))
		})

		It("renders live and reports unresolvable hosts", NodeTimeout(30*time.Second), func(ctx context.Context) {
			out, err := run(ctx, "--resolver", dnssrv.Addr(),
				"dig", "foo.example", "nowhere.example:443")
			Expect(err).To(MatchError(errUnreachable))
			Expect(out).To(ContainSubstring("foo.example:80"))
			Expect(out).To(ContainSubstring("127.0.0.1:80"))
			Expect(out).To(ContainSubstring("nowhere.example:443"))
		})

		It("rejects invalid hosts", func(ctx context.Context) {
			Expect(run(ctx, "--resolver", dnssrv.Addr(), "dig", "foo.example:99999")).Error().To(
				HaveOccurred())
		})

	})

	It("reads the default resolver from resolv.conf", func() {
		dir := GinkgoT().TempDir()
		resolvconf := filepath.Join(dir, "resolv.conf")
		Expect(os.WriteFile(resolvconf, []byte("nameserver 192.0.2.53\nnameserver 192.0.2.54\n"), 0o644)).To(Succeed())
		Expect(defaultResolver(resolvconf)).To(Equal("192.0.2.53:53"))

		Expect(os.WriteFile(resolvconf, []byte("nameserver 2001:db8::53\n"), 0o644)).To(Succeed())
		Expect(defaultResolver(resolvconf)).To(Equal("[2001:db8::53]:53"))

		Expect(defaultResolver(filepath.Join(dir, "missing"))).To(Equal(fallbackResolver))
	})

})
