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

// BadgerDB key prefix for regulation records.
//
// Key Schema:
//
//	reg:{id} → JSON(Regulation)
const keyPrefixRegulation = "reg:"

// RegulationStore persists uploaded regulations and their analyses.
//
// Thread Safety: Safe for concurrent use.
type RegulationStore struct {
	db     *DB
	logger *slog.Logger
}

// NewRegulationStore creates a RegulationStore on the shared DB.
func NewRegulationStore(db *DB, logger *slog.Logger) *RegulationStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RegulationStore{db: db, logger: logger}
}

// Put writes a regulation record, replacing any existing record with the
// same ID.
func (s *RegulationStore) Put(ctx context.Context, reg *datatypes.Regulation) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if reg == nil || reg.ID == "" {
		return fmt.Errorf("regulation must have an ID")
	}

	data, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("marshaling regulation %s: %w", reg.ID, err)
	}

	key := keyPrefixRegulation + reg.ID
	err = s.db.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("storing regulation %s: %w", reg.ID, err)
	}

	s.logger.Debug("regulation stored",
		slog.String("regulation_id", reg.ID),
		slog.String("status", reg.Status),
	)
	return nil
}

// Get retrieves a regulation by ID. Returns ErrNotFound if absent.
func (s *RegulationStore) Get(ctx context.Context, id string) (*datatypes.Regulation, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var reg datatypes.Regulation
	err := s.db.get(keyPrefixRegulation+id, func(val []byte) error {
		return json.Unmarshal(val, &reg)
	})
	if err != nil {
		return nil, fmt.Errorf("reading regulation %s: %w", id, err)
	}
	return &reg, nil
}

// List returns regulations ordered newest-first.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	limit - Maximum number of results. If <= 0, defaults to 100.
func (s *RegulationStore) List(ctx context.Context, limit int) ([]*datatypes.Regulation, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if limit <= 0 {
		limit = 100
	}

	var results []*datatypes.Regulation
	err := s.db.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefixRegulation)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(keyPrefixRegulation)); it.Valid(); it.Next() {
			item := it.Item()
			var reg datatypes.Regulation
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &reg)
			})
			if err != nil {
				s.logger.Warn("skipping corrupt regulation record",
					slog.String("key", string(item.Key())),
					slog.Any("error", err),
				)
				continue
			}
			results = append(results, &reg)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing regulations: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].UploadedAt > results[j].UploadedAt
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
