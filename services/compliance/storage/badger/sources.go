// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianComply/services/compliance/datatypes"
)

// BadgerDB key prefixes for monitored sources.
//
// Key Schema:
//
//	src:{id}                                → JSON(Source)
//	srcver:{source_id}:{fetched_at_milli}   → JSON(SourceVersion)
//
// Version keys embed the fetch timestamp zero-padded to 20 digits so
// lexicographic iteration order is chronological.
const (
	keyPrefixSource        = "src:"
	keyPrefixSourceVersion = "srcver:"
)

// SourceStore persists monitored regulatory sources and their observed
// versions.
//
// Thread Safety: Safe for concurrent use.
type SourceStore struct {
	db     *DB
	logger *slog.Logger
}

// NewSourceStore creates a SourceStore on the shared DB.
func NewSourceStore(db *DB, logger *slog.Logger) *SourceStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SourceStore{db: db, logger: logger}
}

// Put writes a source record.
func (s *SourceStore) Put(ctx context.Context, src *datatypes.Source) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if src == nil || src.ID == "" {
		return fmt.Errorf("source must have an ID")
	}

	data, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("marshaling source %s: %w", src.ID, err)
	}

	err = s.db.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefixSource+src.ID), data)
	})
	if err != nil {
		return fmt.Errorf("storing source %s: %w", src.ID, err)
	}

	s.logger.Debug("source stored",
		slog.String("source_id", src.ID),
		slog.String("url", src.URL),
	)
	return nil
}

// Get retrieves a source by ID. Returns ErrNotFound if absent.
func (s *SourceStore) Get(ctx context.Context, id string) (*datatypes.Source, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var src datatypes.Source
	err := s.db.get(keyPrefixSource+id, func(val []byte) error {
		return json.Unmarshal(val, &src)
	})
	if err != nil {
		return nil, fmt.Errorf("reading source %s: %w", id, err)
	}
	return &src, nil
}

// Delete removes a source and all of its stored versions.
func (s *SourceStore) Delete(ctx context.Context, id string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	versionPrefix := keyPrefixSourceVersion + id + ":"

	err := s.db.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(keyPrefixSource + id)); err != nil && err != badger.ErrKeyNotFound {
			return fmt.Errorf("deleting source: %w", err)
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(versionPrefix)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		var versionKeys [][]byte
		for it.Seek([]byte(versionPrefix)); it.Valid(); it.Next() {
			versionKeys = append(versionKeys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range versionKeys {
			if err := txn.Delete(key); err != nil && err != badger.ErrKeyNotFound {
				return fmt.Errorf("deleting source version: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting source %s: %w", id, err)
	}

	s.logger.Info("source deleted", slog.String("source_id", id))
	return nil
}

// List returns all sources ordered by creation time, newest-first.
func (s *SourceStore) List(ctx context.Context) ([]*datatypes.Source, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var results []*datatypes.Source
	err := s.db.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefixSource)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(keyPrefixSource)); it.Valid(); it.Next() {
			item := it.Item()
			var src datatypes.Source
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &src)
			})
			if err != nil {
				s.logger.Warn("skipping corrupt source record",
					slog.String("key", string(item.Key())),
					slog.Any("error", err),
				)
				continue
			}
			results = append(results, &src)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt > results[j].CreatedAt
	})
	return results, nil
}

// PutVersion stores an observed version of a source.
func (s *SourceStore) PutVersion(ctx context.Context, ver *datatypes.SourceVersion) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if ver == nil || ver.SourceID == "" {
		return fmt.Errorf("source version must reference a source")
	}

	data, err := json.Marshal(ver)
	if err != nil {
		return fmt.Errorf("marshaling source version %s: %w", ver.ID, err)
	}

	key := versionKey(ver.SourceID, ver.FetchedAtMilli)
	err = s.db.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("storing source version %s: %w", ver.ID, err)
	}
	return nil
}

// LatestVersion returns the most recent stored version for a source.
// Returns ErrNotFound if the source has no versions.
func (s *SourceStore) LatestVersion(ctx context.Context, sourceID string) (*datatypes.SourceVersion, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	prefix := keyPrefixSourceVersion + sourceID + ":"

	var ver *datatypes.SourceVersion
	err := s.db.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.Reverse = true

		it := txn.NewIterator(opts)
		defer it.Close()

		// With Reverse, seek past the prefix range and step back into it.
		seek := append([]byte(prefix), 0xFF)
		it.Seek(seek)
		if !it.Valid() {
			return badger.ErrKeyNotFound
		}

		var v datatypes.SourceVersion
		err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &v)
		})
		if err != nil {
			return err
		}
		ver = &v
		return nil
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading latest version for source %s: %w", sourceID, err)
	}
	return ver, nil
}

// ListVersions returns stored versions for a source, newest-first, up to
// limit (default 20).
func (s *SourceStore) ListVersions(ctx context.Context, sourceID string, limit int) ([]*datatypes.SourceVersion, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if limit <= 0 {
		limit = 20
	}

	prefix := keyPrefixSourceVersion + sourceID + ":"

	var results []*datatypes.SourceVersion
	err := s.db.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.Reverse = true

		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append([]byte(prefix), 0xFF)
		for it.Seek(seek); it.Valid() && len(results) < limit; it.Next() {
			var v datatypes.SourceVersion
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &v)
			})
			if err != nil {
				s.logger.Warn("skipping corrupt source version",
					slog.String("key", string(it.Item().Key())),
					slog.Any("error", err),
				)
				continue
			}
			results = append(results, &v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing versions for source %s: %w", sourceID, err)
	}
	return results, nil
}

// versionKey builds the zero-padded chronological version key.
func versionKey(sourceID string, fetchedAtMilli int64) string {
	return fmt.Sprintf("%s%s:%020d", keyPrefixSourceVersion, sourceID, fetchedAtMilli)
}
