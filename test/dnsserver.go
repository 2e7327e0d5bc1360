// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package test

import (
	"net"
	"net/netip"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/miekg/dns"
)

// DNSServer is an in-process DNS server answering A and AAAA queries from a
// fixed zone, listening on the loopback interface on the same port for both
// UDP and TCP. Names not in the zone get an NXDOMAIN answer.
type DNSServer struct {
	zone    map[string][]netip.Addr
	servers []*dns.Server
	queries atomic.Int64
}

// NewDNSServer starts a DNSServer serving the specified zone, mapping names
// (with or without trailing dot) to their IPv4 and IPv6 addresses.
func NewDNSServer(zone map[string][]netip.Addr) (*DNSServer, error) {
	s := &DNSServer{
		zone: map[string][]netip.Addr{},
	}
	for name, addrs := range zone {
		s.zone[strings.ToLower(dns.Fqdn(name))] = addrs
	}
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	l, err := net.Listen("tcp", pc.LocalAddr().String())
	if err != nil {
		pc.Close()
		return nil, err
	}
	handler := dns.HandlerFunc(s.serveDNS)
	s.servers = []*dns.Server{
		{PacketConn: pc, Handler: handler},
		{Listener: l, Handler: handler},
	}
	var wg sync.WaitGroup
	for _, srv := range s.servers {
		srv := srv
		wg.Add(1)
		srv.NotifyStartedFunc = wg.Done
		go func() { _ = srv.ActivateAndServe() }()
	}
	wg.Wait()
	return s, nil
}

// Addr returns the "host:port" address the DNSServer listens on.
func (s *DNSServer) Addr() string {
	return s.servers[0].PacketConn.LocalAddr().String()
}

// Queries returns the number of questions answered so far.
func (s *DNSServer) Queries() int {
	return int(s.queries.Load())
}

// Close shuts down the DNSServer.
func (s *DNSServer) Close() {
	for _, srv := range s.servers {
		_ = srv.Shutdown()
	}
}

func (s *DNSServer) serveDNS(w dns.ResponseWriter, req *dns.Msg) {
	s.queries.Add(1)
	resp := &dns.Msg{}
	resp.SetReply(req)
	if len(req.Question) != 1 {
		resp.SetRcode(req, dns.RcodeFormatError)
		_ = w.WriteMsg(resp)
		return
	}
	q := req.Question[0]
	addrs, ok := s.zone[strings.ToLower(q.Name)]
	if !ok {
		resp.SetRcode(req, dns.RcodeNameError)
		_ = w.WriteMsg(resp)
		return
	}
	hdr := dns.RR_Header{Name: q.Name, Rrtype: q.Qtype, Class: dns.ClassINET, Ttl: 60}
	for _, addr := range addrs {
		switch {
		case q.Qtype == dns.TypeA && addr.Is4():
			a := addr.As4()
			resp.Answer = append(resp.Answer, &dns.A{Hdr: hdr, A: net.IP(a[:])})
		case q.Qtype == dns.TypeAAAA && addr.Is6() && !addr.Is4In6():
			a := addr.As16()
			resp.Answer = append(resp.Answer, &dns.AAAA{Hdr: hdr, AAAA: net.IP(a[:])})
		}
	}
	_ = w.WriteMsg(resp)
}
