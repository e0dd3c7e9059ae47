// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Query-farm/graveyard-go/eventstore"
	esotel "github.com/Query-farm/graveyard-go/eventstore/otel"
)

// app is the state shared by all subcommands of one invocation.
type app struct {
	v        *viper.Viper
	logger   *slog.Logger
	shutdown func(context.Context) error
}

func newRootCmd() *cobra.Command {
	return newApp().rootCmd()
}

func newApp() *app {
	return &app{v: viper.New()}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "graveyard",
		Short:         "Client for the graveyard event store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a.shutdown == nil {
				return nil
			}
			return a.shutdown(cmd.Context())
		},
	}

	def := eventstore.DefaultConfig()
	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default ./graveyard.yaml)")
	pf.String("host", def.Host, "event store host")
	pf.Int("port", def.Port, "event store port")
	pf.Bool("tls", def.UseTLS, "use TLS")
	pf.String("tls-cert-file", "", "PEM file of CA certificates to trust")
	pf.Duration("timeout", def.Timeout, "per-call deadline with a unit, e.g. 5s or 500ms")
	pf.String("compression", def.Compression, "body compression: zstd or empty")
	pf.String("log-level", "warn", "log level: debug, info, warn, error")
	pf.Bool("otel", false, "export traces and metrics to stderr")
	pf.Bool("no-color", false, "disable colored output")

	root.AddCommand(
		newSchemaCmd(a),
		newAppendCmd(a),
		newEventsCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
		newConformanceCmd(a),
	)
	return root
}

// flagKeys maps persistent flags to their config keys.
var flagKeys = map[string]string{
	"host":          "host",
	"port":          "port",
	"tls":           "use_tls",
	"tls-cert-file": "tls_cert_file",
	"timeout":       "timeout",
	"compression":   "compression",
	"log-level":     "log_level",
	"otel":          "otel",
	"no-color":      "no_color",
}

// init resolves configuration from defaults, the config file, GRAVEYARD_*
// environment variables and flags, in increasing precedence.
func (a *app) init(cmd *cobra.Command) error {
	v := a.v
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return err
		}
	}
	v.SetEnvPrefix("GRAVEYARD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("graveyard")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if v.GetBool("no_color") {
		color.NoColor = true
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("log_level"))); err != nil {
		return fmt.Errorf("invalid log level %q", v.GetString("log_level"))
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	if v.GetBool("otel") {
		shutdown, err := setupTelemetry(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		a.shutdown = shutdown
	}
	return nil
}

func (a *app) config() (eventstore.Config, error) {
	var cfg eventstore.Config
	if err := a.v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = eventstore.DefaultConfig().UserAgent
	}
	return cfg, cfg.Validate()
}

func (a *app) client() (*eventstore.Client, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	opts := []eventstore.Option{eventstore.WithLogger(a.logger)}
	if a.v.GetBool("otel") {
		opts = append(opts, eventstore.WithCallHook(esotel.NewHook(esotel.DefaultConfig())))
	}
	return eventstore.NewClient(cfg, opts...)
}

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow)
	headColor = color.New(color.FgCyan, color.Bold)
)

func success(w io.Writer, format string, args ...any) {
	okColor.Fprint(w, "✓ ")
	fmt.Fprintf(w, format+"\n", args...)
}
