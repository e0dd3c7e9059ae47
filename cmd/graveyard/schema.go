// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Query-farm/graveyard-go/schema"
)

func newSchemaCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Derive, register and fetch schemas",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "derive FILE",
			Short: "Print the schemas derived from a YAML declaration file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				schemas, err := deriveFile(args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), schemas)
			},
		},
		&cobra.Command{
			Use:   "push FILE",
			Short: "Derive schemas from a YAML declaration file and upsert them",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				schemas, err := deriveFile(args[0])
				if err != nil {
					return err
				}
				client, err := a.client()
				if err != nil {
					return err
				}
				defer client.Close()
				for _, s := range schemas {
					res, err := client.UpsertSchemaValue(cmd.Context(), s)
					if err != nil {
						return fmt.Errorf("upserting %s: %w", s.Name, err)
					}
					if !res.Success {
						return fmt.Errorf("upserting %s: %s", s.Name, res.Message)
					}
					success(cmd.OutOrStdout(), "%s: %s", s.Name, res.Message)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "get NAME",
			Short: "Print a registered schema",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				client, err := a.client()
				if err != nil {
					return err
				}
				defer client.Close()
				s, found, err := client.GetSchema(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("schema %q not found", args[0])
				}
				return writeJSON(cmd.OutOrStdout(), s)
			},
		},
	)
	return cmd
}

func deriveFile(path string) ([]*schema.Schema, error) {
	decls, err := schema.LoadDeclarations(path)
	if err != nil {
		return nil, err
	}
	out := make([]*schema.Schema, 0, len(decls))
	for _, d := range decls {
		s, err := schema.GenerateDeclaration(d)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
