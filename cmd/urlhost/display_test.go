// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package main

import (
	"net/netip"
	"time"

	"github.com/siemens/urlhost/dig"
	"github.com/siemens/urlhost/types"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("rendering", func() {

	DescribeTable("splits hosts into groups and labels",
		func(hostport, group, label string) {
			g, l := groupAndLabel(hostport)
			Expect(g).To(Equal(group))
			Expect(l).To(Equal(label))
		},
		Entry(nil, "foo.net_a:80", "net_a", "foo"),
		Entry(nil, "www.example.com.:443", "example.com", "www"),
		Entry(nil, "foo:80", "", "foo"),
		Entry(nil, "127.0.0.1:80", "", "127.0.0.1"),
		Entry(nil, "[::1]:80", "", "::1"),
	)

	It("groups and sorts", func() {
		groups := groupHosts([]dig.NamedAddressSet{
			{Host: "zoo.example:80"},
			{Host: "10.0.0.1:80"},
			{Host: "bar.example:80", Addresses: []types.QualifiedAddressValue{
				{Address: netip.MustParseAddrPort("[::1]:80")},
				{Address: netip.MustParseAddrPort("127.0.0.1:80")},
			}},
		})
		Expect(groups).To(HaveExactElements(
			HaveExactElements(HaveField("Host", "10.0.0.1:80")),
			HaveExactElements(
				And(
					HaveField("Host", "bar.example:80"),
					HaveField("Addresses", HaveExactElements(
						HaveField("Address", netip.MustParseAddrPort("127.0.0.1:80")),
						HaveField("Address", netip.MustParseAddrPort("[::1]:80")),
					)),
				),
				HaveField("Host", "zoo.example:80"),
			),
		))
	})

	It("spins", func() {
		s := newSpinner("ab")
		Expect(s.Spinner()).To(Equal("a "))
		s.Start(10 * time.Millisecond)
		Eventually(s.Spinner).Should(Equal("b "))
		Eventually(s.Spinner).Should(Equal("a "))
		s.Stop()
		s.Stop()
	})

})
