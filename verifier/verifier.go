// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package verifier

import (
	"context"

	"github.com/siemens/urlhost/probe"
	"github.com/siemens/urlhost/types"
)

// Verifier verifies a stream of named endpoints, caching verification results
// as to avoiding unnecessary duplicate verification attempts. It uses a
// [probe.Prober] for verifying the endpoints.
type Verifier struct {
	news    chan<- types.NamedAddress
	prober  *probe.Prober
	checked <-chan types.QualifiedAddress
}

// New returns a new Verifier that verifies endpoints with a maximum number of
// parallel verification workers. The options are passed on to the underlying
// [probe.Prober], such as [probe.InNetworkNamespace] to verify from the
// perspective of a different network namespace or [probe.WithMethod].
func New(size int, options ...probe.ProberOption) (*Verifier, <-chan types.NamedAddress) {
	news := make(chan types.NamedAddress, size)
	prober, checked := probe.New(size, options...)
	return &Verifier{
		news:    news,
		prober:  prober,
		checked: checked,
	}, news
}

// Verify verifies the incoming stream of named endpoints until the input
// channel is closed. It then waits for all enqueued verification tasks to
// complete and then closes the output channel returned by New, and finally
// returns.
//
// In case the specified context is cancelled, then Verify will stop pulling off
// new verification tasks and return as soon as possible, closing the output
// channel.
func (v *Verifier) Verify(ctx context.Context, in <-chan types.NamedAddress) {
	cache := NewNamedAddressCache()
	// As soon as new validation results trickle in, update the cache so that
	// the cache can inform the consumer of this Verifier of the results.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case qaddr, ok := <-v.checked:
				if !ok {
					return
				}
				cache.Update(ctx, qaddr.(types.NamedAddress), v.news)
			case <-ctx.Done():
				return
			}
		}
	}()
	// Process incoming named endpoints and initiate validation tasks if an
	// endpoint is seen for the first time. Endpoints we've already seen, but
	// for different hosts, will be directly served if their quality has
	// already been verified. Otherwise, these hosts will be put on hold until
	// the verification result becomes available.
slurpNews:
	for {
		select {
		case namaddr, ok := <-in:
			if !ok {
				break slurpNews
			}
			if !namaddr.Endpoint().IsValid() {
				// Pass on yet undug hosts directly to the news channel and
				// wait for more to come in soon.
				if !send(ctx, v.news, namaddr) {
					break slurpNews
				}
				continue
			}
			if cache.Update(ctx, namaddr, v.news) {
				// Only schedule a validation task the first time we see this
				// particular endpoint.
				v.prober.ValidateQA(ctx, namaddr)
			}
		case <-ctx.Done():
			break slurpNews
		}
	}
	v.prober.StopWait()
	// wait for all verification results to have come through and passed on
	// before calling it a day. In case the context was cancelled the result
	// slurper bails out immediately, so this doesn't block for long.
	<-done
	close(v.news)
}
