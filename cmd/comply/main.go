// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command comply is the CLI client for the Aleutian Comply server.
//
// Usage:
//
//	comply upload gdpr.pdf --type gdpr --jurisdiction EU
//	comply regulations
//	comply status <regulation-id> --watch
//	comply check <regulation-id> --policy policies/security.txt
//	comply report <regulation-id> --format xlsx
//	comply download <report-id> -o report.pdf
//	comply sources add https://gdpr-info.eu --name gdpr-info
//	comply monitor run
//
// The server address comes from --api or ALEUTIAN_COMPLY_URL
// (default http://localhost:8000).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// apiFlag holds the --api flag value shared by every subcommand.
var apiFlag string

func main() {
	root := &cobra.Command{
		Use:   "comply",
		Short: "AI compliance officer client",
		Long: "Comply talks to an Aleutian Comply server: upload regulation documents,\n" +
			"run compliance checks against company policies, generate reports, and\n" +
			"manage monitored regulatory sources.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&apiFlag, "api", "", "Server base URL (default ALEUTIAN_COMPLY_URL or http://localhost:8000)")

	root.AddCommand(
		newUploadCommand(),
		newRegulationsCommand(),
		newStatusCommand(),
		newCheckCommand(),
		newChecksCommand(),
		newReportCommand(),
		newDownloadCommand(),
		newSourcesCommand(),
		newMonitorCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// baseURL resolves the server address from flag, env, or default.
func baseURL() string {
	if apiFlag != "" {
		return apiFlag
	}
	if env := os.Getenv("ALEUTIAN_COMPLY_URL"); env != "" {
		return env
	}
	return "http://localhost:8000"
}
