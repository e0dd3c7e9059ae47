// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Query-farm/graveyard-go/conformance"
)

func newConformanceCmd(a *app) *cobra.Command {
	var opts conformance.Options
	cmd := &cobra.Command{
		Use:   "conformance",
		Short: "Check that an event store behaves as this client expects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			defer client.Close()

			report := conformance.Run(cmd.Context(), client, opts)
			out := cmd.OutOrStdout()
			fail := color.New(color.FgRed, color.Bold)
			for _, r := range report.Results {
				if r.Passed() {
					okColor.Fprint(out, "PASS ")
				} else {
					fail.Fprint(out, "FAIL ")
				}
				fmt.Fprintf(out, "%-36s %8s", r.Name, r.Elapsed.Round(100_000))
				if r.Err != nil {
					fmt.Fprintf(out, "  %v", r.Err)
				}
				fmt.Fprintln(out)
			}
			if n := report.Failed(); n > 0 {
				return fmt.Errorf("%d of %d checks failed (prefix %s)", n, len(report.Results), report.Prefix)
			}
			success(out, "%d checks passed", len(report.Results))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&opts.Filter, "run", nil, "only run checks whose name contains one of these")
	cmd.Flags().StringVar(&opts.Prefix, "prefix", "", "stream and schema name prefix (default random)")
	return cmd
}
