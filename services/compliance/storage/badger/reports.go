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

// BadgerDB key prefixes for report metadata.
//
// Key Schema:
//
//	rpt:{id}                       → JSON(Report)
//	rpt:byreg:{regulation_id}:{id} → id (secondary index)
//	rpt:latest:{regulation_id}     → id (latest pointer)
const (
	keyPrefixReport       = "rpt:"
	keyPrefixReportByReg  = "rpt:byreg:"
	keyPrefixReportLatest = "rpt:latest:"
)

// ReportStore persists generated report metadata.
//
// Thread Safety: Safe for concurrent use.
type ReportStore struct {
	db     *DB
	logger *slog.Logger
}

// NewReportStore creates a ReportStore on the shared DB.
func NewReportStore(db *DB, logger *slog.Logger) *ReportStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportStore{db: db, logger: logger}
}

// Put writes a report record, its index entry, and the per-regulation
// latest pointer in a single transaction.
func (s *ReportStore) Put(ctx context.Context, report *datatypes.Report) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if report == nil || report.ID == "" {
		return fmt.Errorf("report must have an ID")
	}
	if report.RegulationID == "" {
		return fmt.Errorf("report %s must reference a regulation", report.ID)
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling report %s: %w", report.ID, err)
	}

	key := keyPrefixReport + report.ID
	indexKey := keyPrefixReportByReg + report.RegulationID + ":" + report.ID
	latestKey := keyPrefixReportLatest + report.RegulationID

	err = s.db.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(key), data); err != nil {
			return fmt.Errorf("storing report: %w", err)
		}
		if err := txn.Set([]byte(indexKey), []byte(report.ID)); err != nil {
			return fmt.Errorf("storing report index: %w", err)
		}
		if err := txn.Set([]byte(latestKey), []byte(report.ID)); err != nil {
			return fmt.Errorf("updating latest pointer: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing report %s: %w", report.ID, err)
	}

	s.logger.Debug("report stored",
		slog.String("report_id", report.ID),
		slog.String("regulation_id", report.RegulationID),
		slog.String("format", report.Format),
	)
	return nil
}

// Get retrieves a report by ID. Returns ErrNotFound if absent.
func (s *ReportStore) Get(ctx context.Context, id string) (*datatypes.Report, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var report datatypes.Report
	err := s.db.get(keyPrefixReport+id, func(val []byte) error {
		return json.Unmarshal(val, &report)
	})
	if err != nil {
		return nil, fmt.Errorf("reading report %s: %w", id, err)
	}
	return &report, nil
}

// LatestByRegulation returns the most recently generated report for a
// regulation via the latest pointer. Returns ErrNotFound if none exists.
func (s *ReportStore) LatestByRegulation(ctx context.Context, regulationID string) (*datatypes.Report, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var id string
	err := s.db.get(keyPrefixReportLatest+regulationID, func(val []byte) error {
		id = string(val)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading latest pointer for regulation %s: %w", regulationID, err)
	}
	return s.Get(ctx, id)
}

// List returns all reports, newest-first, up to limit (default 100).
func (s *ReportStore) List(ctx context.Context, limit int) ([]*datatypes.Report, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if limit <= 0 {
		limit = 100
	}

	var results []*datatypes.Report
	err := s.db.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefixReport)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(keyPrefixReport)); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())

			// Skip index and pointer keys.
			if strings.HasPrefix(key, keyPrefixReportByReg) || strings.HasPrefix(key, keyPrefixReportLatest) {
				continue
			}

			var report datatypes.Report
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &report)
			})
			if err != nil {
				s.logger.Warn("skipping corrupt report record",
					slog.String("key", key),
					slog.Any("error", err),
				)
				continue
			}
			results = append(results, &report)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt > results[j].CreatedAt
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
