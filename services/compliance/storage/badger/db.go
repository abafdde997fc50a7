// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badger provides BadgerDB-backed persistence for the compliance
// service: regulations, compliance checks, report metadata, and monitored
// sources. Records are stored as JSON values under typed key prefixes with
// secondary index keys for per-regulation lookups.
package badger

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	badger "github.com/dgraph-io/badger/v4"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Config controls how the BadgerDB instance is opened.
type Config struct {
	// Path is the directory for the database files. Created if missing.
	// Ignored when InMemory is true.
	Path string

	// InMemory opens an ephemeral database. Used by tests.
	InMemory bool

	// Logger receives store diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with the default on-disk layout.
func DefaultConfig() Config {
	return Config{
		Path:   "data/comply",
		Logger: slog.Default(),
	}
}

// DB wraps a BadgerDB instance shared by all stores.
//
// Thread Safety: Safe for concurrent use. BadgerDB handles its own
// concurrency control.
type DB struct {
	db     *badger.DB
	logger *slog.Logger
}

// OpenDB opens (or creates) the BadgerDB instance.
//
// Description:
//
//	Creates the data directory if needed and opens BadgerDB with its
//	logger silenced in favor of slog diagnostics from the stores.
//
// Inputs:
//
//	cfg - Open configuration. Path must be non-empty unless InMemory.
//
// Outputs:
//
//	*DB - The opened database.
//	error - Non-nil if the directory cannot be created or Badger fails to open.
func OpenDB(cfg Config) (*DB, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("badger path must not be empty")
		}
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("creating badger dir %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %s: %w", cfg.Path, err)
	}

	logger.Info("badger opened",
		slog.String("path", cfg.Path),
		slog.Bool("in_memory", cfg.InMemory),
	)

	return &DB{db: db, logger: logger}, nil
}

// Close closes the underlying BadgerDB instance.
func (d *DB) Close() error {
	return d.db.Close()
}

// get reads a single JSON value by key into dst via the unmarshal callback.
func (d *DB) get(key string, unmarshal func([]byte) error) error {
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(unmarshal)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}
