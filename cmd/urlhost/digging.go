// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/siemens/urlhost/dig"
	"github.com/siemens/urlhost/dnsworker"
	"github.com/siemens/urlhost/host"
	"github.com/siemens/urlhost/mobynet"
	"github.com/siemens/urlhost/probe"
	"github.com/siemens/urlhost/types"
	"github.com/siemens/urlhost/verifier"

	"github.com/gosuri/uilive"
	"github.com/spf13/cobra"
	"github.com/thediveo/lxkns/log"
)

// errUnreachable signals that some hosts couldn't be dug or some of their
// endpoints turned out to be invalid.
var errUnreachable = errors.New("unresolvable host(s) or invalid endpoint(s)")

// digOptions control digging and verifying.
type digOptions struct {
	resolver     string // DNS resolver "host:port"
	netnsref     string // network namespace to dig and verify from, or "".
	vantage      string // display text for where we dig from.
	verify       bool
	method       probe.Method
	count        uint
	interval     time.Duration
	unprivileged bool
	asJSON       bool
}

func newDigCmd() *cobra.Command {
	var (
		port         *uint16
		verify       *bool
		method       *string
		count        *uint
		interval     *time.Duration
		unprivileged *bool
		asJSON       *bool
	)
	digCmd := &cobra.Command{
		Use:   "dig [flags] host[:port]...",
		Short: "dig the endpoints of URL hosts and optionally verify them",
		Long: `dig resolves URL hosts into their endpoints and optionally verifies them.

Without any hosts given and with --container, dig digs all container and
service names on the networks attached to the container.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && *containerName == "" {
				return errors.New("requires at least one host, or --container")
			}
			m, err := probe.ParseMethod(*method)
			if err != nil {
				return err
			}
			opts := digOptions{
				resolver:     *resolverAddr,
				netnsref:     *netnsRef,
				vantage:      "this network namespace",
				verify:       *verify,
				method:       m,
				count:        *count,
				interval:     *interval,
				unprivileged: *unprivileged,
				asJSON:       *asJSON,
			}
			if opts.netnsref != "" {
				opts.vantage = "network namespace " + opts.netnsref
			}
			hosts := make([]host.HostAndPort, 0, len(args))
			for _, arg := range args {
				hp, err := host.ParseHostAndPort(arg, *port)
				if err != nil {
					return err
				}
				hosts = append(hosts, hp)
			}
			ctx := cmd.Context()
			if *containerName != "" {
				attached, err := fromContainer(ctx, *containerName, &opts)
				if err != nil {
					return err
				}
				if len(hosts) == 0 {
					hosts = mobynet.AttachedHosts(attached, *port)
				}
			}
			if opts.resolver == "" {
				opts.resolver = defaultResolver("/etc/resolv.conf")
			}
			return DigAndReport(ctx, cmd.OutOrStdout(), hosts, opts)
		},
	}
	port = digCmd.Flags().Uint16("port", 80, "port to use for hosts without an explicit port")
	verify = digCmd.Flags().Bool("verify", false, "verify the endpoints dug")
	method = digCmd.Flags().String("method", probe.ICMP.String(), "verification method: icmp or tcp")
	count = digCmd.Flags().Uint("count", 3, "number of probes per endpoint")
	interval = digCmd.Flags().Duration("interval", time.Second, "interval between probes")
	unprivileged = digCmd.Flags().Bool("unprivileged", false, "send unprivileged UDP pings instead of ICMP")
	asJSON = digCmd.Flags().Bool("json", false, "output the final result as JSON instead of rendering live")
	return digCmd
}

// fromContainer switches the dig options to the network namespace and the
// embedded DNS resolver of the specified container, returning the networks
// attached to the container.
func fromContainer(ctx context.Context, name string, opts *digOptions) ([]mobynet.Network, error) {
	cln, err := mobynet.NewClient()
	if err != nil {
		return nil, fmt.Errorf("cannot connect to the Docker daemon: %w", err)
	}
	defer cln.Close()
	attached, netnsref, err := mobynet.DiscoverAttachedNames(ctx, cln, name)
	if err != nil {
		return nil, fmt.Errorf("cannot discover attached networks and their containers: %w", err)
	}
	log.Debugf("container %s has network namespace %s", name, netnsref)
	opts.netnsref = netnsref
	opts.vantage = "container " + name
	if opts.resolver == "" {
		opts.resolver = mobynet.EmbeddedResolver
	}
	return attached, nil
}

// DigAndReport digs the endpoints of the specified hosts and optionally
// verifies them, rendering the results as they come in. With JSON output, it
// instead only writes the final results.
func DigAndReport(ctx context.Context, w io.Writer, hosts []host.HostAndPort, opts digOptions) error {
	// Now lets put the required processing elements and their plumbing in
	// place.
	//
	//   - Digger producing endpoints from a list of hosts.
	//   - optional Verifier consuming the endpoints and checking them,
	//     producing "verdicts".
	//   - NamedAddressesMap consuming these "verdicts".
	//
	// Rendering is done on the information collected by the
	// NamedAddressesMap.
	digger, news, err := dig.New(int(*workerNumber), opts.resolver,
		dnsworker.InNetworkNamespace(opts.netnsref))
	if err != nil {
		return fmt.Errorf("cannot dig endpoint information: %w", err)
	}
	if opts.verify {
		proberOpts := []probe.ProberOption{
			probe.InNetworkNamespace(opts.netnsref),
			probe.WithMethod(opts.method),
			probe.WithCount(opts.count),
			probe.WithInterval(opts.interval),
		}
		if opts.unprivileged {
			proberOpts = append(proberOpts, probe.AsUnprivileged())
		}
		v, verified := verifier.New(int(*workerNumber), proberOpts...)
		go v.Verify(ctx, news)
		news = verified
	}

	namaddrs := dig.NewNamedAddressesMap()
	trackingDone := make(chan struct{})
	go func() {
		_ = namaddrs.Track(ctx, news)
		close(trackingDone)
	}()

	renderingDone := make(chan struct{})
	if opts.asJSON {
		close(renderingDone)
	} else {
		go render(w, opts.vantage, namaddrs, trackingDone, renderingDone)
	}

	// Finally feed the hosts into the Digger, so they can be processed and
	// move through the different stages. Then wait for all the data to pass
	// the stages and finally get rendered a last time.
	go func() {
		digger.DigHosts(ctx, hosts)
		digger.StopWait()
	}()
	<-trackingDone
	<-renderingDone

	sets := namaddrs.Get()
	if opts.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(sets); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, set := range sets {
		if set.Error != "" {
			return errUnreachable
		}
		for _, qa := range set.Addresses {
			if qa.Quality == types.Invalid {
				return errUnreachable
			}
		}
	}
	return nil
}

// render the collected named endpoints live until tracking is done, then
// render a final time and signal that rendering is done.
func render(w io.Writer, vantage string, namaddrs *dig.NamedAddressesMap, trackingDone <-chan struct{}, renderingDone chan<- struct{}) {
	// Dunno what uilive's background updating mode using Start() is good for?
	// It may trigger anytime with the rendering into the buffer not yet
	// complete, thus making the terminal output very flickery. So we avoid
	// Start() and instead trigger an explicit flush to the terminal after
	// having completed the rendering.
	term := uilive.New()
	term.Out = w
	renderer := newRenderer(term, vantage)
	renderer.Indentation = int(*indentation)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer func() {
		ticker.Stop()
		renderData(term, renderer, namaddrs)
		renderer.Stop()
		close(renderingDone)
	}()
	renderData(term, renderer, namaddrs)
	for {
		select {
		case <-ticker.C:
			renderData(term, renderer, namaddrs)
		case <-trackingDone:
			return
		}
	}
}

// renderData gets the current named+verified endpoint data and then renders
// (and flushes) it to the terminal.
func renderData(term *uilive.Writer, r *renderer, data *dig.NamedAddressesMap) {
	r.Render(data.Get())
	_ = term.Flush()
}
