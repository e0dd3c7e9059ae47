// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package benchmark

import (
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/Query-farm/graveyard-go/eventstore"
	"github.com/Query-farm/graveyard-go/reference"
)

// Store is an in-process reference store on a loopback port plus a client
// connected to it.
type Store struct {
	Server *reference.Server
	Client *eventstore.Client
	http   *http.Server
}

// StartStore serves a reference store with the given GetEvents batch size.
// compression is passed to the client config.
func StartStore(batchSize int, compression string) (*Store, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	srv := reference.NewServer(
		reference.WithBatchSize(batchSize),
		reference.WithLogger(slog.New(slog.DiscardHandler)),
	)
	hs := &http.Server{Handler: srv}
	go hs.Serve(listener)

	cfg := eventstore.DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = listener.Addr().(*net.TCPAddr).Port
	cfg.Compression = compression
	client, err := eventstore.NewClient(cfg, eventstore.WithRegistry(Registry()))
	if err != nil {
		hs.Close()
		return nil, err
	}
	return &Store{Server: srv, Client: client, http: hs}, nil
}

// Close stops the client and the server.
func (s *Store) Close() error {
	return errors.Join(s.Client.Close(), s.http.Close())
}
