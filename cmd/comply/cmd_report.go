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
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianComply/services/compliance"
)

func newReportCommand() *cobra.Command {
	var format string
	var noRecommendations bool
	var out string

	cmd := &cobra.Command{
		Use:   "report <regulation-id>",
		Short: "Generate a compliance report (pdf or xlsx)",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			include := !noRecommendations
			var resp compliance.ReportResponse
			err := postJSON("/reports", compliance.ReportRequest{
				RegulationID:           args[0],
				Format:                 format,
				IncludeRecommendations: &include,
			}, &resp)
			if err != nil {
				return err
			}
			fmt.Printf("Report generated: %s (%s)\n", resp.ReportID, resp.Format)
			if out == "" {
				fmt.Printf("Download with: comply download %s\n", resp.ReportID)
				return nil
			}
			return downloadReport(resp.ReportID, out)
		},
	}
	cmd.Flags().StringVar(&format, "format", "pdf", "Report format: pdf or xlsx")
	cmd.Flags().BoolVar(&noRecommendations, "no-recommendations", false, "Omit the recommendations section")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Download the report to this path after generating")
	return cmd
}

func newDownloadCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "download <report-id>",
		Short: "Download a generated report file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return downloadReport(args[0], out)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path (default: server-provided filename)")
	return cmd
}

// downloadReport streams the report file to disk. When destPath is
// empty the server's Content-Disposition filename is used.
func downloadReport(reportID, destPath string) error {
	resp, err := httpClient.Get(apiPath("/reports/" + reportID + "/download"))
	if err != nil {
		return fmt.Errorf("server unavailable at %s: %w", baseURL(), err)
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}

	if destPath == "" {
		destPath = filenameFromDisposition(resp.Header.Get("Content-Disposition"))
		if destPath == "" {
			destPath = reportID + ".bin"
		}
	}

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", destPath, err)
	}
	defer f.Close()

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	fmt.Printf("Saved %s (%d bytes)\n", destPath, n)
	return nil
}

// filenameFromDisposition extracts the filename from a
// Content-Disposition header, stripped of any path components.
func filenameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil || params["filename"] == "" {
		return ""
	}
	return filepath.Base(params["filename"])
}
