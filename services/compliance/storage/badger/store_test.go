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
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianComply/services/compliance/datatypes"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRegulationStorePutGet(t *testing.T) {
	db := newTestDB(t)
	store := NewRegulationStore(db, nil)
	ctx := context.Background()

	reg := &datatypes.Regulation{
		ID:             "reg-1",
		Filename:       "gdpr.pdf",
		RegulationType: "gdpr",
		Jurisdiction:   "EU",
		UploadedAt:     "2025-06-01T10:00:00Z",
		Status:         datatypes.RegulationStatusProcessed,
		Analysis: &datatypes.RegulationAnalysis{
			RegulationSummary: "Data protection regulation.",
			RiskAssessment:    datatypes.RiskAssessment{OverallRisk: "high"},
		},
	}
	require.NoError(t, store.Put(ctx, reg))

	got, err := store.Get(ctx, "reg-1")
	require.NoError(t, err)
	assert.Equal(t, "gdpr.pdf", got.Filename)
	assert.Equal(t, datatypes.RegulationStatusProcessed, got.Status)
	require.NotNil(t, got.Analysis)
	assert.Equal(t, "high", got.Analysis.RiskAssessment.OverallRisk)
}

func TestRegulationStoreGetNotFound(t *testing.T) {
	db := newTestDB(t)
	store := NewRegulationStore(db, nil)

	_, err := store.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRegulationStoreListNewestFirst(t *testing.T) {
	db := newTestDB(t)
	store := NewRegulationStore(db, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		reg := &datatypes.Regulation{
			ID:         fmt.Sprintf("reg-%d", i),
			Filename:   fmt.Sprintf("doc-%d.txt", i),
			UploadedAt: fmt.Sprintf("2025-06-0%dT10:00:00Z", i+1),
			Status:     datatypes.RegulationStatusProcessing,
		}
		require.NoError(t, store.Put(ctx, reg))
	}

	regs, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, regs, 3)
	assert.Equal(t, "reg-2", regs[0].ID)
	assert.Equal(t, "reg-0", regs[2].ID)
}

func TestRegulationStoreListLimit(t *testing.T) {
	db := newTestDB(t)
	store := NewRegulationStore(db, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Put(ctx, &datatypes.Regulation{
			ID:         fmt.Sprintf("reg-%d", i),
			UploadedAt: fmt.Sprintf("2025-06-0%dT10:00:00Z", i+1),
		}))
	}

	regs, err := store.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, regs, 2)
}

func TestCheckStoreListByRegulation(t *testing.T) {
	db := newTestDB(t)
	store := NewCheckStore(db, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		check := &datatypes.ComplianceCheck{
			ID:           fmt.Sprintf("chk-%d", i),
			RegulationID: "reg-1",
			CreatedAt:    fmt.Sprintf("2025-06-0%dT10:00:00Z", i+1),
			Result: &datatypes.CheckResult{
				OverallStatus:   datatypes.StatusPartiallyCompliant,
				ComplianceScore: 65,
			},
		}
		require.NoError(t, store.Put(ctx, check))
	}
	require.NoError(t, store.Put(ctx, &datatypes.ComplianceCheck{
		ID:           "chk-other",
		RegulationID: "reg-2",
		CreatedAt:    "2025-06-03T10:00:00Z",
	}))

	checks, err := store.ListByRegulation(ctx, "reg-1")
	require.NoError(t, err)
	require.Len(t, checks, 2)
	for _, c := range checks {
		assert.Equal(t, "reg-1", c.RegulationID)
	}
}

func TestCheckStoreListSkipsIndexKeys(t *testing.T) {
	db := newTestDB(t)
	store := NewCheckStore(db, nil)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &datatypes.ComplianceCheck{
		ID:           "chk-1",
		RegulationID: "reg-1",
		CreatedAt:    "2025-06-01T10:00:00Z",
	}))

	checks, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, checks, 1)
}

func TestReportStoreLatestByRegulation(t *testing.T) {
	db := newTestDB(t)
	store := NewReportStore(db, nil)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &datatypes.Report{
		ID:           "rpt-1",
		RegulationID: "reg-1",
		Format:       datatypes.ReportFormatPDF,
		FilePath:     "reports/report_reg-1_1.pdf",
		CreatedAt:    "2025-06-01T10:00:00Z",
	}))
	require.NoError(t, store.Put(ctx, &datatypes.Report{
		ID:           "rpt-2",
		RegulationID: "reg-1",
		Format:       datatypes.ReportFormatXLSX,
		FilePath:     "reports/report_reg-1_2.xlsx",
		CreatedAt:    "2025-06-02T10:00:00Z",
	}))

	latest, err := store.LatestByRegulation(ctx, "reg-1")
	require.NoError(t, err)
	assert.Equal(t, "rpt-2", latest.ID)
	assert.Equal(t, datatypes.ReportFormatXLSX, latest.Format)
}

func TestReportStoreLatestByRegulationNotFound(t *testing.T) {
	db := newTestDB(t)
	store := NewReportStore(db, nil)

	_, err := store.LatestByRegulation(context.Background(), "reg-none")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSourceStorePutGetList(t *testing.T) {
	db := newTestDB(t)
	store := NewSourceStore(db, nil)
	ctx := context.Background()

	src := &datatypes.Source{
		ID:             "src-1",
		Name:           "EUR-Lex GDPR",
		URL:            "https://example.com/gdpr",
		Jurisdiction:   "EU",
		RegulationType: "gdpr",
		Enabled:        true,
		CreatedAt:      "2025-06-01T10:00:00Z",
	}
	require.NoError(t, store.Put(ctx, src))

	got, err := store.Get(ctx, "src-1")
	require.NoError(t, err)
	assert.Equal(t, "EUR-Lex GDPR", got.Name)
	assert.True(t, got.Enabled)

	sources, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, sources, 1)
}

func TestSourceStoreVersionsNewestFirst(t *testing.T) {
	db := newTestDB(t)
	store := NewSourceStore(db, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ver := &datatypes.SourceVersion{
			ID:             fmt.Sprintf("ver-%d", i),
			SourceID:       "src-1",
			FetchedAtMilli: int64(1000 + i),
			Hash:           fmt.Sprintf("hash-%d", i),
		}
		require.NoError(t, store.PutVersion(ctx, ver))
	}

	latest, err := store.LatestVersion(ctx, "src-1")
	require.NoError(t, err)
	assert.Equal(t, "ver-2", latest.ID)

	vers, err := store.ListVersions(ctx, "src-1", 2)
	require.NoError(t, err)
	require.Len(t, vers, 2)
	assert.Equal(t, "ver-2", vers[0].ID)
	assert.Equal(t, "ver-1", vers[1].ID)
}

func TestSourceStoreLatestVersionNotFound(t *testing.T) {
	db := newTestDB(t)
	store := NewSourceStore(db, nil)

	_, err := store.LatestVersion(context.Background(), "src-none")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSourceStoreDeleteRemovesVersions(t *testing.T) {
	db := newTestDB(t)
	store := NewSourceStore(db, nil)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &datatypes.Source{
		ID:        "src-1",
		Name:      "HHS HIPAA",
		URL:       "https://example.com/hipaa",
		CreatedAt: "2025-06-01T10:00:00Z",
	}))
	require.NoError(t, store.PutVersion(ctx, &datatypes.SourceVersion{
		ID:             "ver-1",
		SourceID:       "src-1",
		FetchedAtMilli: 1000,
		Hash:           "abc",
	}))

	require.NoError(t, store.Delete(ctx, "src-1"))

	_, err := store.Get(ctx, "src-1")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = store.LatestVersion(ctx, "src-1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStoreContextCancelled(t *testing.T) {
	db := newTestDB(t)
	store := NewRegulationStore(db, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Put(ctx, &datatypes.Regulation{ID: "reg-1"})
	assert.ErrorIs(t, err, context.Canceled)
}
