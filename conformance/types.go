// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package conformance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Query-farm/graveyard-go/eventstore"
)

// Env is what a check runs against.
type Env struct {
	Client *eventstore.Client
	// Prefix is unique to one run of the suite.
	Prefix string
}

// Stream returns a stream ID private to this run.
func (e *Env) Stream(name string) string {
	return e.Prefix + "/" + name
}

// Check is one named conformance assertion.
type Check struct {
	Name string
	Run  func(ctx context.Context, env *Env) error
}

// Result is the outcome of one check.
type Result struct {
	Name    string
	Err     error
	Elapsed time.Duration
}

// Passed reports whether the check succeeded.
func (r Result) Passed() bool { return r.Err == nil }

// Report collects the results of a run.
type Report struct {
	Prefix  string
	Results []Result
}

// Failed returns the number of failed checks.
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if !res.Passed() {
			n++
		}
	}
	return n
}

// Options narrows a run.
type Options struct {
	// Filter keeps only checks whose name contains one of these substrings.
	Filter []string
	// Prefix overrides the generated stream and schema prefix.
	Prefix string
}

// Run executes the checks selected by opts against client, in order. It
// does not stop at the first failure.
func Run(ctx context.Context, client *eventstore.Client, opts Options) *Report {
	env := &Env{Client: client, Prefix: opts.Prefix}
	if env.Prefix == "" {
		env.Prefix = "conformance-" + strings.ToLower(ulid.Make().String())
	}
	report := &Report{Prefix: env.Prefix}
	for _, c := range Checks() {
		if !selected(c.Name, opts.Filter) {
			continue
		}
		start := time.Now()
		err := c.Run(ctx, env)
		report.Results = append(report.Results, Result{Name: c.Name, Err: err, Elapsed: time.Since(start)})
	}
	return report
}

func selected(name string, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if strings.Contains(name, f) {
			return true
		}
	}
	return false
}

func expect[T comparable](what string, got, want T) error {
	if got != want {
		return fmt.Errorf("%s: got %v, want %v", what, got, want)
	}
	return nil
}
