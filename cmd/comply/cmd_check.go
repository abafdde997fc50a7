// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianComply/services/compliance"
)

func newCheckCommand() *cobra.Command {
	var policyFiles []string
	var policyTexts []string
	var full bool

	cmd := &cobra.Command{
		Use:   "check <regulation-id>",
		Short: "Run a compliance check of company policies against a regulation",
		Long: "Runs a model-scored compliance check. Policies come from --policy files\n" +
			"and/or --text snippets; at least one is required.",
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			policies := append([]string(nil), policyTexts...)
			for _, path := range policyFiles {
				content, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("cannot read policy file %s: %w", path, err)
				}
				text := strings.TrimSpace(string(content))
				if text == "" {
					return fmt.Errorf("policy file %s is empty", path)
				}
				policies = append(policies, text)
			}
			if len(policies) == 0 {
				return fmt.Errorf("no policies given; use --policy <file> or --text <snippet>")
			}

			fmt.Printf("Checking %d policy document(s) against %s...\n", len(policies), args[0])
			var result compliance.CheckResponse
			err := postJSON("/checks", compliance.CheckRequest{
				RegulationID:    args[0],
				CompanyPolicies: policies,
			}, &result)
			if err != nil {
				return err
			}
			if full {
				return printJSON(result)
			}
			printCheck(result)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&policyFiles, "policy", nil, "Policy text file (may be repeated)")
	cmd.Flags().StringArrayVar(&policyTexts, "text", nil, "Inline policy text (may be repeated)")
	cmd.Flags().BoolVar(&full, "json", false, "Print the full check result as JSON")
	return cmd
}

func newChecksCommand() *cobra.Command {
	var regulationID string
	cmd := &cobra.Command{
		Use:   "checks [check-id]",
		Short: "List past compliance checks, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if len(args) == 1 {
				var result compliance.CheckResponse
				if err := getJSON("/checks/"+args[0], &result); err != nil {
					return err
				}
				printCheck(result)
				return nil
			}

			suffix := "/checks"
			if regulationID != "" {
				suffix += "?regulation_id=" + regulationID
			}
			var list compliance.ListChecksResponse
			if err := getJSON(suffix, &list); err != nil {
				return err
			}
			if list.Count == 0 {
				fmt.Println("No checks recorded yet.")
				return nil
			}
			for _, chk := range list.Checks {
				fmt.Printf("%s  %-22s  %5.1f  %s\n", chk.CheckID, chk.OverallStatus, chk.ComplianceScore, chk.RegulationID)
			}
			fmt.Printf("\n%d check(s)\n", list.Count)
			return nil
		},
	}
	cmd.Flags().StringVar(&regulationID, "regulation", "", "Only list checks for this regulation")
	return cmd
}

// printCheck renders a check result for terminal reading.
func printCheck(result compliance.CheckResponse) {
	fmt.Println("---")
	fmt.Printf("Check:  %s\n", result.CheckID)
	fmt.Printf("Status: %s\n", result.OverallStatus)
	fmt.Printf("Score:  %.1f / 100\n", result.ComplianceScore)

	if len(result.Gaps) > 0 {
		fmt.Printf("\nGaps (%d):\n", len(result.Gaps))
		for _, gap := range result.Gaps {
			fmt.Printf("  [%s] %s: %s\n", strings.ToUpper(gap.ImpactLevel), gap.GapID, gap.Requirement)
			if gap.GapDescription != "" {
				fmt.Printf("      %s\n", gap.GapDescription)
			}
		}
	}
	if len(result.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for i, rec := range result.Recommendations {
			fmt.Printf("  %d. %s\n", i+1, rec)
		}
	}
}
