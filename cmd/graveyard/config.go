// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved client configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			var doc yaml.Node
			if err := doc.Encode(cfg); err != nil {
				return err
			}
			// yaml.v3 writes durations as integer nanoseconds.
			for i := 0; i+1 < len(doc.Content); i += 2 {
				if doc.Content[i].Value == "timeout" {
					doc.Content[i+1].SetString(cfg.Timeout.String())
				}
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(&doc); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
