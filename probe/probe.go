// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/siemens/urlhost/types"

	"github.com/gammazero/workerpool"
	"github.com/go-ping/ping"
	"github.com/thediveo/lxkns/log"
	"github.com/thediveo/lxkns/ops"
	"github.com/thediveo/lxkns/ops/relations"
	"github.com/thediveo/lxkns/species"
)

// ErrTooManyLosses is the verdict error for endpoints that answered less
// often than required by a Prober's threshold.
var ErrTooManyLosses = errors.New("no replies or too many losses")

// Prober validates endpoints by pinging or connecting to them and then
// streaming the final [types.QualifiedAddress] verdicts to a result/output
// channel (kind of “IT-court TV”). Probers use a goroutine-limited worker
// pool.
type Prober struct {
	method              Method        // how to probe endpoints.
	count               int           // number of probes to send.
	interval            time.Duration // distance between probes.
	timeout             time.Duration // overall ping deadline, or single TCP connect timeout.
	thresholdPercentage uint          // percentage of successful probes for a valid endpoint.
	unprivileged        bool          // if true, uses UDP-based pings instead of privileged ICMPs.

	netns    relations.Relation          // network namespace to probe from, or nil.
	workers  *workerpool.WorkerPool      // workers for running incoming validation jobs concurrently.
	courtTV  chan types.QualifiedAddress // results/status stream channel.
	stopOnce sync.Once
}

// ProberOption can be passed to New when creating new Prober objects.
type ProberOption func(*Prober)

// New returns a new [Prober] with a maximum worker pool of the specified size
// as well as a “verdict stream”. The verdict channel will not only send the
// final endpoint verdicts, but also the initial and yet unverified endpoints
// as they get submitted for court verdicts.
//
// The new prober defaults to pinging 3 times at intervals of 1s between each
// ping. The validity threshold defaults to 50(%).
//
// The prober can be configured during creation using several option:
//   - [WithMethod]
//   - [WithCount]
//   - [WithInterval]
//   - [WithTimeout]
//   - [WithThresholdPercentage]
//   - [AsUnprivileged]
//
// To operate a Prober in a network namespace different to that of the OS-level
// thread of the caller specify the [InNetworkNamespace] option and pass it a
// filesystem path that must reference a network namespace (such as
// "/proc/666/ns/net").
func New(size int, options ...ProberOption) (*Prober, <-chan types.QualifiedAddress) {
	return newProber(size, size, options...)
}

// newProber returns a new [Prober] with a maximum worker pool of the specified
// size and a “verdict stream” with the specified buffer size.
func newProber(workersize int, chansize int, options ...ProberOption) (*Prober, <-chan types.QualifiedAddress) {
	courtTV := make(chan types.QualifiedAddress, chansize)
	prober := &Prober{
		method:              ICMP,
		count:               3,
		interval:            time.Second,
		thresholdPercentage: 50,
		workers:             workerpool.New(workersize),
		courtTV:             courtTV,
	}
	for _, opt := range options {
		opt(prober)
	}
	return prober, courtTV
}

// InNetworkNamespace optionally runs a [Prober] inside the network namespace
// referenced by the specified filesystem path. An empty path leaves the
// Prober in the current network namespace.
func InNetworkNamespace(netnsref string) ProberOption {
	return func(p *Prober) {
		if netnsref == "" {
			p.netns = nil
			return
		}
		p.netns = ops.NewTypedNamespacePath(netnsref, species.CLONE_NEWNET)
	}
}

// WithMethod sets how endpoints get probed, defaulting to [ICMP].
func WithMethod(method Method) ProberOption {
	return func(p *Prober) {
		p.method = method
	}
}

// WithCount sets the number of probes for testing reachability of an
// endpoint.
func WithCount(count uint) ProberOption {
	return func(p *Prober) {
		p.count = int(count)
	}
}

// WithInterval sets the interval between consecutive probes.
func WithInterval(interval time.Duration) ProberOption {
	return func(p *Prober) {
		p.interval = interval
	}
}

// WithTimeout limits waiting for ping replies overall, and when using [TCP]
// waiting for each single connection to establish. Without a timeout, pings
// give up after the interval times the count plus two, and TCP connects after
// one interval.
func WithTimeout(timeout time.Duration) ProberOption {
	return func(p *Prober) {
		p.timeout = timeout
	}
}

// AsUnprivileged tells the Prober to carry out unprivileged pings using UDP
// instead of ICMP packets.
func AsUnprivileged() ProberOption {
	return func(p *Prober) {
		p.unprivileged = true
	}
}

// WithThresholdPercentage takes a percentage between 0 and 100 that specifies
// the percentage of successful probe responses required in order to validate
// the probed endpoint.
func WithThresholdPercentage(threshold uint) ProberOption {
	if threshold > 100 {
		panic(fmt.Errorf("Prober: threshold must be a percentage between 0 <= threshold <= 100, got: %d",
			threshold))
	}
	return func(p *Prober) {
		p.thresholdPercentage = threshold
	}
}

// ValidateStream reads endpoints (with optional attachments) to be validated
// from a channel until the channel is closed or the specified context gets
// cancelled. It does not return until the channel has been closed or the
// context cancelled, so callers typically might run ValidateStream in a
// separate goroutine.
//
// If the specified context gets cancelled the pending endpoint verifications
// won't be echoed to the verdict stream at all, and in particular not even as
// invalid. However, spurious verification verdicts might still appear on the
// verdict stream due to uncontrollable order of verdict sending and context
// cancellation detection.
//
// The input channel transmits [types.QualifiedAddress] objects, but with the
// Quality field initially ignored.
func (p *Prober) ValidateStream(ctx context.Context, ch <-chan types.QualifiedAddress) {
	for {
		select {
		case addr, ok := <-ch:
			if !ok {
				return
			}
			p.validate(ctx, addr.WithNewQuality(types.Verifying, nil))
		case <-ctx.Done():
			return
		}
	}
}

// Validate the specified endpoint by probing it. The verdict is then sent to
// the channel returned together with the newly created [Prober].
// Additionally, an initial notice for the endpoint to be validated is also
// sent beforehand.
//
// An endpoint is considered to be invalid if the percentage of successful
// probes doesn't reach or cross the Prober's threshold. This allows for some
// legroom.
//
// The validation process is automatically aborted when the specified context
// either meets its deadline or gets cancelled. The endpoint is then
// considered to be Invalid.
func (p *Prober) Validate(ctx context.Context, endpoint netip.AddrPort) {
	p.validate(ctx, &types.QualifiedAddressValue{
		Address: endpoint,
		Quality: types.Verifying,
	})
}

// ValidateQA validates the specified [types.QualifiedAddress] and works
// otherwise like [Prober.Validate] for a plain endpoint.
func (p *Prober) ValidateQA(ctx context.Context, addr types.QualifiedAddress) {
	p.validate(ctx, addr.WithNewQuality(types.Verifying, nil))
}

// validate does the real work of probing a (yet-un-)qualified endpoint. In
// order to avoid an unnecessary [types.QualifiedAddress] clone, the caller is
// expected to pass in a qualified endpoint with its quality already set to
// Verifying.
func (p *Prober) validate(ctx context.Context, verdict types.QualifiedAddress) {
	// Allow cancelling a blocked verdict send to avoid leaking goroutines. The
	// downside is that since the order in which select checks for ctx.Done()
	// and a blocked verdict channel is random, so we cannot guarantee that
	// either never a verdict is sent or the verdict gets always sent.
	select {
	case p.courtTV <- verdict: // not yet the final one ;)
	case <-ctx.Done():
		return
	}
	p.workers.Submit(func() {
		endpoint := verdict.Endpoint()
		verdict := verdict.WithNewQuality(types.Invalid, nil)
		defer func() {
			// Again, allow cancelling a blocked verdict send to avoid leaking
			// goroutines.
			select {
			case p.courtTV <- verdict: // final one this time.
			case <-ctx.Done():
				return
			}
		}()
		probe := func() interface{} {
			// A quick and non-blocking check to see if the context has been
			// cancelled before we start our work...
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			var err error
			switch p.method {
			case TCP:
				err = p.connect(ctx, endpoint)
			default:
				err = p.ping(ctx, endpoint.Addr())
			}
			if err != nil {
				return err
			}
			verdict = verdict.WithNewQuality(types.Verified, nil)
			return nil
		}
		// Run the probe in the requested network namespace, if necessary.
		var err error
		if p.netns != nil {
			// lxkns' ops.Execute differentiates between a namespace switching
			// error and the under switched namespaces called function result.
			// We use this function result to return probe errors, so we now
			// need to use the probe-related error (unless there is an
			// Execute-related error) to trigger the final invalid verdict.
			var probeerr interface{}
			probeerr, err = ops.Execute(probe, p.netns)
			if err == nil && probeerr != nil {
				if fnerr, ok := probeerr.(error); ok {
					err = fnerr
				}
			}
		} else {
			if res := probe(); res != nil {
				err = res.(error)
			}
		}
		if err != nil {
			log.Debugf("Prober: %s probing %s failed: %s", p.method, endpoint, err.Error())
			verdict = verdict.WithNewQuality(verdict.Qual(), err)
		}
		// falling off the edge of the disc world, triggering the defer'ed and
		// context-controlled verdict send...
	})
}

// ping the specified IP address, returning nil only if enough echo replies
// came back.
func (p *Prober) ping(ctx context.Context, addr netip.Addr) error {
	if !addr.IsValid() {
		return errors.New("cannot ping invalid address")
	}
	pinger, err := ping.NewPinger(addr.String())
	if err != nil {
		return err
	}
	pinger.SetPrivileged(!p.unprivileged)
	pinger.Count = p.count
	pinger.Interval = p.interval
	// Always limit waiting for the last ping to get reflected (or not)!
	pinger.Timeout = p.timeout
	if pinger.Timeout <= 0 {
		pinger.Timeout = time.Duration(int64(p.interval) * int64(p.count+2))
	}
	// While the ping will be running, we need to monitor the context in case
	// it becomes "done" by either getting cancelled or reaching its deadline.
	// The done channel here works "the other way round" in the sense that it
	// terminated the concurrent context monitoring.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			pinger.Stop()
		case <-done:
		}
	}()
	// Now start making some noise...
	if err = pinger.Run(); err != nil {
		return err
	}
	// Was the context done?
	if err := ctx.Err(); err != nil {
		return err
	}
	stats := pinger.Statistics()
	if stats.PacketsRecv < pinger.Count*int(p.thresholdPercentage)/100 {
		return ErrTooManyLosses
	}
	return nil
}

// connect repeatedly to the specified TCP endpoint, returning nil only if
// enough connections could be established.
func (p *Prober) connect(ctx context.Context, endpoint netip.AddrPort) error {
	if !endpoint.IsValid() || endpoint.Port() == 0 {
		return fmt.Errorf("cannot connect to invalid endpoint %s", endpoint)
	}
	timeout := p.timeout
	if timeout <= 0 {
		timeout = p.interval
	}
	dialer := net.Dialer{Timeout: timeout}
	connected := 0
	for attempt := 0; attempt < p.count; attempt++ {
		if attempt > 0 {
			wecker := time.NewTimer(p.interval)
			select {
			case <-ctx.Done():
				wecker.Stop()
				return ctx.Err()
			case <-wecker.C:
			}
		}
		conn, err := dialer.DialContext(ctx, "tcp", endpoint.String())
		if err != nil {
			if ctxerr := ctx.Err(); ctxerr != nil {
				return ctxerr
			}
			continue
		}
		conn.Close()
		connected++
	}
	if connected < p.count*int(p.thresholdPercentage)/100 || connected == 0 {
		return ErrTooManyLosses
	}
	return nil
}

// StopWait waits for all queued tasks to get processed and then finally closes
// the court TV channel.
func (p *Prober) StopWait() {
	p.stopOnce.Do(func() {
		p.workers.StopWait()
		close(p.courtTV)
	})
}
