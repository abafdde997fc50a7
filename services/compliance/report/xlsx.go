// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/AleutianAI/AleutianComply/services/compliance/datatypes"
)

// buildXLSX writes the three-sheet workbook: Regulation metadata, one row
// per check, one row per gap.
func buildXLSX(path string, reg *datatypes.Regulation, checks []*datatypes.ComplianceCheck) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Regulation"); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}

	metaRows := [][]any{
		{"field", "value"},
		{"id", reg.ID},
		{"filename", reg.Filename},
		{"type", reg.RegulationType},
		{"jurisdiction", reg.Jurisdiction},
		{"uploaded", reg.UploadedAt},
	}
	if err := writeRows(f, "Regulation", metaRows); err != nil {
		return err
	}

	if _, err := f.NewSheet("Checks"); err != nil {
		return fmt.Errorf("creating Checks sheet: %w", err)
	}
	checkRows := [][]any{{"check_id", "score", "status"}}
	for _, chk := range checks {
		row := []any{chk.ID, nil, nil}
		if chk.Result != nil {
			row[1] = chk.Result.ComplianceScore
			row[2] = chk.Result.OverallStatus
		}
		checkRows = append(checkRows, row)
	}
	if err := writeRows(f, "Checks", checkRows); err != nil {
		return err
	}

	if _, err := f.NewSheet("Gaps"); err != nil {
		return fmt.Errorf("creating Gaps sheet: %w", err)
	}
	gapRows := [][]any{{"check_id", "requirement", "gap", "impact", "effort"}}
	for _, chk := range checks {
		if chk.Result == nil {
			continue
		}
		for _, g := range chk.Result.Gaps {
			gapRows = append(gapRows, []any{
				chk.ID, g.Requirement, g.GapDescription, g.ImpactLevel, g.RemediationEffort,
			})
		}
	}
	if err := writeRows(f, "Gaps", gapRows); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name for row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d to %s: %w", i+1, sheet, err)
		}
	}
	return nil
}
