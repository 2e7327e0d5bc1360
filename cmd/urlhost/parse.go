// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/siemens/urlhost/host"

	"github.com/spf13/cobra"
)

// errSomeInvalid signals that at least one argument didn't parse, after all
// arguments have been reported.
var errSomeInvalid = errors.New("invalid host(s)")

// parsed is the outcome of parsing a single host argument.
type parsed struct {
	Input string     `json:"input"`
	Kind  *host.Kind `json:"kind,omitempty"`
	Host  host.Host  `json:"host,omitempty"`
	Error string     `json:"error,omitempty"`
}

func newParseCmd() *cobra.Command {
	var asJSON *bool
	parseCmd := &cobra.Command{
		Use:   "parse [flags] host...",
		Short: "parse URL hosts and show their canonical forms",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return parseAndReport(cmd.OutOrStdout(), args, *asJSON)
		},
	}
	asJSON = parseCmd.Flags().Bool("json", false, "output JSON instead of text")
	return parseCmd
}

// parseAndReport parses each of the specified inputs and writes the results
// in order. It returns errSomeInvalid if any input failed to parse.
func parseAndReport(w io.Writer, inputs []string, asJSON bool) error {
	results := make([]parsed, 0, len(inputs))
	failed := false
	for _, input := range inputs {
		result := parsed{Input: input}
		h, err := host.Parse(input)
		if err != nil {
			result.Error = err.Error()
			failed = true
		} else {
			kind := h.Kind()
			result.Kind = &kind
			result.Host = h
		}
		results = append(results, result)
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		for _, result := range results {
			if result.Error != "" {
				fmt.Fprintf(w, "%s\t%s\n", invalidAddressStyle.Styled("invalid"), result.Error)
				continue
			}
			fmt.Fprintf(w, "%s\t%s\n", kindStyle.Styled(result.Kind.String()), result.Host)
		}
	}
	if failed {
		return errSomeInvalid
	}
	return nil
}
