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
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianComply/services/compliance"
)

func newSourcesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage monitored regulatory sources",
	}
	cmd.AddCommand(newSourcesAddCommand(), newSourcesListCommand(), newSourcesRemoveCommand())
	return cmd
}

func newSourcesAddCommand() *cobra.Command {
	var name, jurisdiction, regulationType string
	var dueDays int

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Register a URL to monitor for regulatory changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			sourceName := name
			if sourceName == "" {
				sourceName = hostnameOf(args[0])
			}
			var resp compliance.AddSourceResponse
			err := postJSON("/monitor/sources", compliance.AddSourceRequest{
				Name:           sourceName,
				URL:            args[0],
				Jurisdiction:   jurisdiction,
				RegulationType: regulationType,
				DueDays:        dueDays,
			}, &resp)
			if err != nil {
				return err
			}
			fmt.Printf("Source added: %s (%s)\n", resp.ID, sourceName)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Source name (default: URL hostname)")
	cmd.Flags().StringVar(&jurisdiction, "jurisdiction", "", "Jurisdiction (default global)")
	cmd.Flags().StringVar(&regulationType, "type", "", "Regulation type (default general)")
	cmd.Flags().IntVar(&dueDays, "due-days", 0, "Days until a detected change is due for review")
	return cmd
}

func newSourcesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List monitored sources",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			var list compliance.ListSourcesResponse
			if err := getJSON("/monitor/sources", &list); err != nil {
				return err
			}
			if list.Count == 0 {
				fmt.Println("No sources registered. Add one with: comply sources add <url>")
				return nil
			}
			for _, src := range list.Sources {
				state := "enabled"
				if !src.Enabled {
					state = "disabled"
				}
				fmt.Printf("%s  %-8s  %-20s  %s\n", src.ID, state, src.Name, src.URL)
			}
			fmt.Printf("\n%d source(s)\n", list.Count)
			return nil
		},
	}
}

func newSourcesRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <source-id>",
		Short: "Remove a monitored source and its version history",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := deleteJSON("/monitor/sources/" + args[0]); err != nil {
				return err
			}
			fmt.Printf("Source removed: %s\n", args[0])
			return nil
		},
	}
}

func newMonitorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Regulatory change monitoring",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Check all enabled sources for changes now",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Println("Running monitor pass...")
			var resp compliance.MonitorRunResponse
			if err := postJSON("/monitor/run", struct{}{}, &resp); err != nil {
				return err
			}
			fmt.Printf("Checked: %d, Changes: %d, Errors: %d\n", resp.Checked, resp.Changes, resp.Errors)
			return nil
		},
	})
	return cmd
}

// hostnameOf derives a source name from a URL.
func hostnameOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimSpace(raw)
	}
	return u.Host
}
