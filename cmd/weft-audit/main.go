// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

// weft-audit resolves permissions for a CoValue offline and prints
// the verdict for every transaction plus the resulting member table.
//
// Two modes of operation:
//
// Database mode: loads a CoValue and its dependency closure from a
// weft storage database.
//
//	weft-audit --db weft.db --id co_z...
//
// Scenario mode: builds a group from a JSONC scenario file describing
// its transaction history in symbolic form. No database required.
//
//	weft-audit --scenario history.jsonc
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/weft-foundation/weft/lib/covalue"
	"github.com/weft-foundation/weft/lib/permission"
	"github.com/weft-foundation/weft/lib/ref"
	"github.com/weft-foundation/weft/lib/scenario"
	"github.com/weft-foundation/weft/lib/storage"
	"github.com/weft-foundation/weft/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "weft-audit: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var dbPath, idRaw, scenarioPath, asRaw string
	var verbose bool

	flagSet := pflag.NewFlagSet("weft-audit", pflag.ContinueOnError)
	flagSet.StringVar(&dbPath, "db", "", "path to a weft storage database")
	flagSet.StringVar(&idRaw, "id", "", "ID of the CoValue to audit (database mode)")
	flagSet.StringVar(&scenarioPath, "scenario", "", "path to a JSONC scenario file")
	flagSet.StringVar(&asRaw, "as", "", "identity the auditing node operates as (database mode; default: the group's initial admin)")
	flagSet.BoolVar(&verbose, "verbose", false, "log per-transaction rejection diagnostics")

	// Handle --version before flag parsing to match other weft binaries.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("weft-audit %s\n", version.Info())
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var registry *covalue.Registry
	var target *covalue.CoValue
	switch {
	case scenarioPath != "" && dbPath != "":
		return fmt.Errorf("--scenario and --db are mutually exclusive")
	case scenarioPath != "":
		s, err := scenario.ReadFile(scenarioPath)
		if err != nil {
			return err
		}
		registry, target, err = s.Build()
		if err != nil {
			return err
		}
	case dbPath != "":
		var err error
		registry, target, err = loadFromDatabase(dbPath, idRaw, asRaw)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("either --db or --scenario is required")
	}

	return audit(registry, target, logger)
}

// loadFromDatabase opens the storage database and loads every stored
// CoValue into a registry, so the target's whole dependency closure
// (owning group, extended parents) is available to the resolver.
func loadFromDatabase(dbPath, idRaw, asRaw string) (*covalue.Registry, *covalue.CoValue, error) {
	if idRaw == "" {
		return nil, nil, fmt.Errorf("--id is required with --db")
	}
	id, err := ref.ParseCoID(idRaw)
	if err != nil {
		return nil, nil, fmt.Errorf("--id: %w", err)
	}

	store, err := storage.Open(storage.Config{Path: dbPath})
	if err != nil {
		return nil, nil, err
	}
	defer store.Close()

	ctx := context.Background()

	// The registry identity only matters for the self-revocation
	// exception; auditing as the initial admin is the neutral default.
	seed, err := store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	identity := seed.Ruleset().InitialAdmin()
	if asRaw != "" {
		identity, err = ref.ParseIdentity(asRaw)
		if err != nil {
			return nil, nil, fmt.Errorf("--as: %w", err)
		}
	}

	registry := covalue.NewRegistry(identity)
	if err := store.LoadAll(ctx, registry); err != nil {
		return nil, nil, err
	}
	target, err := registry.ExpectCoValueLoaded(id)
	if err != nil {
		return nil, nil, err
	}
	return registry, target, nil
}

func audit(registry *covalue.Registry, target *covalue.CoValue, logger *slog.Logger) error {
	res := permission.NewResolution()
	opts := permission.Options{Logger: logger}

	if err := permission.DetermineValidTransactions(registry, target, res, opts); err != nil {
		return fmt.Errorf("resolving %s: %w", target.ID(), err)
	}

	fmt.Printf("covalue %s (%s/%s)\n", target.ID(), target.Header().Type, target.Ruleset().Type())
	for _, entry := range target.Entries() {
		outcome := res.Outcome(entry.ID)
		verdict := "valid"
		switch {
		case !outcome.Validated:
			verdict = "unvalidated"
		case outcome.InvalidChanges:
			verdict = "invalid-changes"
		case !outcome.Valid:
			verdict = "invalid"
		}
		fmt.Printf("  %-15s %s author=%s madeAt=%d\n", verdict, entry.ID, entry.Author, entry.Tx.MadeAt)
	}

	if !target.IsGroup() {
		return nil
	}
	members, err := permission.ResolveGroupMembers(registry, target, res, opts)
	if err != nil {
		return fmt.Errorf("resolving members of %s: %w", target.ID(), err)
	}
	fmt.Printf("members:\n")
	for _, member := range members.Sorted() {
		fmt.Printf("  %-12s %s\n", member.Role, member.Key)
	}
	return nil
}
