// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/miekg/dns"
	"github.com/spf13/cobra"
	"github.com/thediveo/lxkns/log"
)

// fallbackResolver is used when there is no usable resolv.conf.
const fallbackResolver = "127.0.0.1:53"

var (
	indentation     *uint
	spinnerInterval *time.Duration
	workerNumber    *uint
	debug           *bool
	resolverAddr    *string
	netnsRef        *string
	containerName   *string
)

func newRootCmd() (rootCmd *cobra.Command) {
	rootCmd = &cobra.Command{
		Use:     "urlhost",
		Short:   "urlhost parses URL hosts and digs and validates their endpoints",
		Version: "0.9",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if *debug {
				log.SetLevel(log.DebugLevel)
				log.Debugf("debug logging enabled")
			}
			if *indentation > 80 {
				return fmt.Errorf("--indent width out of range [0..80]")
			}
			if *workerNumber < 1 || *workerNumber > 64 {
				return fmt.Errorf("--workers out of range [1..64]")
			}
			if *spinnerInterval < 10*time.Millisecond {
				return fmt.Errorf("--spinner must be at least 10ms")
			}
			if *netnsRef != "" && *containerName != "" {
				return fmt.Errorf("--netns and --container are mutually exclusive")
			}
			if *resolverAddr != "" {
				if _, _, err := net.SplitHostPort(*resolverAddr); err != nil {
					return fmt.Errorf("invalid --resolver address: %w", err)
				}
			}
			return nil
		},
		SilenceUsage: true,
	}
	// Sets up the flags.
	debug = rootCmd.PersistentFlags().Bool(
		"debug", false, "enable debugging output")
	indentation = rootCmd.PersistentFlags().Uint(
		"indent", 3, "indentation width")
	spinnerInterval = rootCmd.PersistentFlags().Duration(
		"spinner", 100*time.Millisecond, "spinner interval")
	workerNumber = rootCmd.PersistentFlags().Uint(
		"workers", 5, "number of DNS and probing workers")
	resolverAddr = rootCmd.PersistentFlags().String(
		"resolver", "", "DNS resolver address host:port (default first nameserver from /etc/resolv.conf)")
	netnsRef = rootCmd.PersistentFlags().String(
		"netns", "", "resolve and probe from inside the network namespace referenced by this path")
	containerName = rootCmd.PersistentFlags().String(
		"container", "", "resolve and probe from inside this Docker container")

	rootCmd.AddCommand(newParseCmd(), newDigCmd())
	return
}

// defaultResolver returns the address of the first nameserver configured in
// the specified resolv.conf file, or the fallback resolver if there is none.
func defaultResolver(resolvconf string) string {
	cfg, err := dns.ClientConfigFromFile(resolvconf)
	if err != nil || len(cfg.Servers) == 0 {
		log.Debugf("no nameserver from %s, falling back to %s", resolvconf, fallbackResolver)
		return fallbackResolver
	}
	port := cfg.Port
	if port == "" {
		port = strconv.Itoa(53)
	}
	return net.JoinHostPort(cfg.Servers[0], port)
}
