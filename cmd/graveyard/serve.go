// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Query-farm/graveyard-go/reference"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		listen    string
		validate  bool
		batchSize int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the in-memory reference event store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			listener, err := net.Listen("tcp", listen)
			if err != nil {
				return fmt.Errorf("failed to listen: %w", err)
			}
			handler := reference.NewServer(
				reference.WithLogger(a.logger),
				reference.WithPayloadValidation(validate),
				reference.WithBatchSize(batchSize),
			)
			return serve(ctx, listener, handler, a.logger, cmd)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "127.0.0.1:50051", "listen address")
	cmd.Flags().BoolVar(&validate, "validate", false, "reject payloads that violate their registered schema")
	cmd.Flags().IntVar(&batchSize, "batch-size", 64, "events per GetEvents batch")
	return cmd
}

func serve(ctx context.Context, listener net.Listener, handler *reference.Server, logger *slog.Logger, cmd *cobra.Command) error {
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	success(cmd.OutOrStdout(), "serving on %s", listener.Addr())
	logger.Info("reference store started",
		slog.String("addr", listener.Addr().String()),
		slog.String("server_id", handler.ServerID()))

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http serve error: %w", err)
	}
	return nil
}
