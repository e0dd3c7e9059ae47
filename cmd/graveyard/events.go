// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Query-farm/graveyard-go/eventstore"
)

func newAppendCmd(a *app) *cobra.Command {
	var (
		eventType       string
		data            string
		expectedVersion int64
	)
	cmd := &cobra.Command{
		Use:   "append STREAM",
		Short: "Append one event to a stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(data)
			if err != nil {
				return err
			}
			client, err := a.client()
			if err != nil {
				return err
			}
			defer client.Close()

			ev := eventstore.NewEvent(eventType, payload)
			ok, err := client.AppendEvent(cmd.Context(), args[0], []eventstore.Event{ev}, expectedVersion)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("version conflict on %s: expected version %d", args[0], expectedVersion)
			}
			success(cmd.OutOrStdout(), "appended %s to %s", ev.ID, args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&eventType, "type", "t", "", "event type")
	cmd.Flags().StringVarP(&data, "data", "d", "{}", "JSON payload, or @file")
	cmd.Flags().Int64Var(&expectedVersion, "expected-version", eventstore.AnyVersion,
		"index of the last event seen, -1 for any")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

// readPayload returns data, or the contents of the file it names with a
// leading @. The payload must be valid JSON.
func readPayload(data string) ([]byte, error) {
	var payload []byte
	if path, ok := strings.CutPrefix(data, "@"); ok {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		payload = b
	} else {
		payload = []byte(data)
	}
	if !json.Valid(payload) {
		return nil, errors.New("payload is not valid JSON")
	}
	return payload, nil
}

func newEventsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "events STREAM",
		Short: "Print the events of a stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			defer client.Close()

			events, err := client.GetEvents(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				for _, e := range events {
					if err := enc.Encode(eventJSON(e)); err != nil {
						return err
					}
				}
				return nil
			}
			if len(events) == 0 {
				warnColor.Fprintf(out, "stream %s is empty\n", args[0])
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			headColor.Fprintln(tw, "VERSION\tID\tTYPE\tTIME\tPAYLOAD")
			for i, e := range events {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i, e.ID, e.EventType,
					time.UnixMilli(int64(e.Timestamp)).UTC().Format(time.RFC3339), e.Payload)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON object per event")
	return cmd
}

type jsonEvent struct {
	ID        string          `json:"id"`
	StreamID  string          `json:"streamId"`
	EventType string          `json:"eventType"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp uint64          `json:"timestamp"`
}

func eventJSON(e eventstore.Event) jsonEvent {
	je := jsonEvent{ID: e.ID, StreamID: e.StreamID, EventType: e.EventType, Timestamp: e.Timestamp}
	if json.Valid(e.Payload) {
		je.Payload = e.Payload
	} else if len(e.Payload) > 0 {
		quoted, _ := json.Marshal(string(e.Payload))
		je.Payload = quoted
	}
	return je
}
