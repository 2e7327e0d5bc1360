// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package dig

import (
	"context"

	"github.com/siemens/urlhost/dnsworker"
	"github.com/siemens/urlhost/host"
	"github.com/siemens/urlhost/types"

	"github.com/gammazero/workerpool"
	"github.com/miekg/dns"
	"github.com/thediveo/lxkns/log"
)

// Digger digs the endpoints of URL hosts and then streams its findings over
// its “news” channel.
//
// By connecting the news (output) channel of a Digger to the input channel of
// a Verifier the reachability of the endpoints dug can automatically be
// verified by probing them.
type Digger struct {
	resolver host.Resolver
	dnspool  *dnsworker.DnsPool // only set when the Digger owns its resolver.
	workers  *workerpool.WorkerPool
	news     chan types.NamedAddress
}

// New returns a new Digger with a maximum worker pool of the specified size as
// well as a “news stream”, talking to the DNS resolver at the specified
// address (such as "127.0.0.11:53" for Docker's embedded resolver). The
// options are passed on to the underlying [dnsworker.DnsPool], in order to
// resolve from inside a different network namespace.
//
// The news channel sends NamedAddress elements as they are submitted for
// digging, as well as the outcome(s) of the digs. Please note that the
// returned results channel is never closed by a Digger itself, but only by
// [Digger.StopWait].
//
// I dunno what Sir Tim, Mick, Phil, and all the others might think of our
// digging here...
func New(size int, resolverAddr string, options ...dnsworker.DnsPoolOption) (*Digger, <-chan types.NamedAddress, error) {
	dnsclnt := dns.Client{
		Net: "tcp", // ...since there's some chance that we need more than just two queries
	}
	dnspool, err := dnsworker.New(
		context.Background(), // ...only used while dialing.
		size,
		&dnsclnt, resolverAddr,
		options...)
	if err != nil {
		return nil, nil, err
	}
	digger, news := NewWithResolver(size, dnspool)
	digger.dnspool = dnspool
	return digger, news, nil
}

// NewWithResolver returns a new Digger using the specified resolver for
// digging endpoints of domains, with at most size concurrent digs.
func NewWithResolver(size int, resolver host.Resolver) (*Digger, <-chan types.NamedAddress) {
	news := make(chan types.NamedAddress, size)
	return &Digger{
		resolver: resolver,
		workers:  workerpool.New(size),
		news:     news,
	}, news
}

// DigHosts digs the endpoints of the given list of hosts with ports.
// Intermediate and final results are getting sent to the channel returned
// beforehand by New.
//
// For each host, the consumer first gets informed about the host itself
// without any endpoint. Then, as soon as the host's endpoints become known,
// each endpoint gets sent as a separate unverified NamedAddress. IP address
// hosts never hit the resolver and get their single endpoint immediately. If
// resolution fails, the host is sent once more without any endpoint, but with
// an invalid quality and the resolution error.
func (d *Digger) DigHosts(ctx context.Context, hosts []host.HostAndPort) {
	for _, hp := range hosts {
		hp := hp
		name := hp.String()
		// Initially inform the consumer of any host that will undergo
		// resolution later; please note that digging gets enqueued and thus
		// doesn't block. We only block if the consumer doesn't consume our
		// news ... and then only until the context gets cancelled.
		if !d.send(ctx, &types.NamedAddressValue{Host: name}) {
			return
		}
		d.workers.Submit(func() {
			endpoints, err := host.Resolve(ctx, hp, d.resolver)
			if err != nil {
				log.Debugf("Digger: cannot dig %s: %s", name, err.Error())
				undug := &types.NamedAddressValue{Host: name}
				d.send(ctx, undug.WithNewQuality(types.Invalid, err).(types.NamedAddress))
				return
			}
			log.Debugf("Digger: %s has %d endpoint(s)", name, endpoints.Remaining())
			for endpoint, ok := endpoints.Next(); ok; endpoint, ok = endpoints.Next() {
				// Avoid blocking endlessly in case of the context getting
				// cancelled.
				if !d.send(ctx, &types.NamedAddressValue{
					Host: name,
					QualifiedAddressValue: types.QualifiedAddressValue{
						Address: endpoint,
						Quality: types.Unverified,
					},
				}) {
					return
				}
			}
		})
	}
}

// send news unless the context is done first, returning true if the news were
// sent.
func (d *Digger) send(ctx context.Context, namaddr types.NamedAddress) bool {
	select {
	case d.news <- namaddr:
		return true
	case <-ctx.Done():
		return false
	}
}

// StopWait waits for all queued tasks to get processed and then finally closes
// the news channel.
func (d *Digger) StopWait() {
	d.workers.StopWait()
	if d.dnspool != nil {
		d.dnspool.StopWait()
	}
	close(d.news)
}
