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
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianComply/services/compliance/datatypes"
)

// BadgerDB key prefixes for compliance check records.
//
// Key Schema:
//
//	chk:{id}                       → JSON(ComplianceCheck)
//	chk:byreg:{regulation_id}:{id} → id (secondary index)
const (
	keyPrefixCheck      = "chk:"
	keyPrefixCheckByReg = "chk:byreg:"
)

// CheckStore persists compliance check results.
//
// Thread Safety: Safe for concurrent use.
type CheckStore struct {
	db     *DB
	logger *slog.Logger
}

// NewCheckStore creates a CheckStore on the shared DB.
func NewCheckStore(db *DB, logger *slog.Logger) *CheckStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckStore{db: db, logger: logger}
}

// Put writes a check record and its per-regulation index entry in a single
// transaction.
func (s *CheckStore) Put(ctx context.Context, check *datatypes.ComplianceCheck) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if check == nil || check.ID == "" {
		return fmt.Errorf("check must have an ID")
	}
	if check.RegulationID == "" {
		return fmt.Errorf("check %s must reference a regulation", check.ID)
	}

	data, err := json.Marshal(check)
	if err != nil {
		return fmt.Errorf("marshaling check %s: %w", check.ID, err)
	}

	key := keyPrefixCheck + check.ID
	indexKey := keyPrefixCheckByReg + check.RegulationID + ":" + check.ID

	err = s.db.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(key), data); err != nil {
			return fmt.Errorf("storing check: %w", err)
		}
		if err := txn.Set([]byte(indexKey), []byte(check.ID)); err != nil {
			return fmt.Errorf("storing check index: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing check %s: %w", check.ID, err)
	}

	s.logger.Debug("check stored",
		slog.String("check_id", check.ID),
		slog.String("regulation_id", check.RegulationID),
	)
	return nil
}

// Get retrieves a check by ID. Returns ErrNotFound if absent.
func (s *CheckStore) Get(ctx context.Context, id string) (*datatypes.ComplianceCheck, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var check datatypes.ComplianceCheck
	err := s.db.get(keyPrefixCheck+id, func(val []byte) error {
		return json.Unmarshal(val, &check)
	})
	if err != nil {
		return nil, fmt.Errorf("reading check %s: %w", id, err)
	}
	return &check, nil
}

// ListByRegulation returns all checks for a regulation, newest-first.
func (s *CheckStore) ListByRegulation(ctx context.Context, regulationID string) ([]*datatypes.ComplianceCheck, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	prefix := keyPrefixCheckByReg + regulationID + ":"

	var ids []string
	err := s.db.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.Valid(); it.Next() {
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("copying index value: %w", err)
			}
			ids = append(ids, string(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing checks for regulation %s: %w", regulationID, err)
	}

	results := make([]*datatypes.ComplianceCheck, 0, len(ids))
	for _, id := range ids {
		check, err := s.Get(ctx, id)
		if err != nil {
			s.logger.Warn("skipping dangling check index entry",
				slog.String("check_id", id),
				slog.Any("error", err),
			)
			continue
		}
		results = append(results, check)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt > results[j].CreatedAt
	})
	return results, nil
}

// List returns all checks, newest-first, up to limit (default 100).
func (s *CheckStore) List(ctx context.Context, limit int) ([]*datatypes.ComplianceCheck, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if limit <= 0 {
		limit = 100
	}

	var results []*datatypes.ComplianceCheck
	err := s.db.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefixCheck)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(keyPrefixCheck)); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())

			// Skip secondary index keys.
			if strings.HasPrefix(key, keyPrefixCheckByReg) {
				continue
			}

			var check datatypes.ComplianceCheck
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &check)
			})
			if err != nil {
				s.logger.Warn("skipping corrupt check record",
					slog.String("key", key),
					slog.Any("error", err),
				)
				continue
			}
			results = append(results, &check)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing checks: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt > results[j].CreatedAt
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
