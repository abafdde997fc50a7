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
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianComply/services/compliance"
	"github.com/AleutianAI/AleutianComply/services/compliance/datatypes"
)

func newUploadCommand() *cobra.Command {
	var regulationType, jurisdiction string
	var watch bool

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a regulation document (pdf, docx, or txt)",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			resp, err := uploadRegulation(args[0], regulationType, jurisdiction)
			if err != nil {
				return err
			}
			fmt.Printf("Uploaded: %s\n", resp.RegulationID)
			fmt.Printf("Status:   %s\n", resp.Status)
			if !watch {
				fmt.Printf("Follow processing with: comply status %s --watch\n", resp.RegulationID)
				return nil
			}
			return watchRegulation(resp.RegulationID)
		},
	}
	cmd.Flags().StringVar(&regulationType, "type", "general", "Regulation type (gdpr, hipaa, sox, general, ...)")
	cmd.Flags().StringVar(&jurisdiction, "jurisdiction", "global", "Jurisdiction the regulation applies to")
	cmd.Flags().BoolVar(&watch, "watch", false, "Stream processing status until analysis completes")
	return cmd
}

func newRegulationsCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "regulations [id]",
		Short: "List uploaded regulations, or show one in full",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if len(args) == 1 {
				var reg datatypes.Regulation
				if err := getJSON("/regulations/"+args[0], &reg); err != nil {
					return err
				}
				return printJSON(reg)
			}

			var list compliance.ListRegulationsResponse
			if err := getJSON(fmt.Sprintf("/regulations?limit=%d", limit), &list); err != nil {
				return err
			}
			if list.Count == 0 {
				fmt.Println("No regulations uploaded yet.")
				return nil
			}
			for _, reg := range list.Regulations {
				line := fmt.Sprintf("%s  %-10s  %-8s  %s", reg.ID, reg.Status, reg.RegulationType, reg.Filename)
				if reg.Error != "" {
					line += "  (" + reg.Error + ")"
				}
				fmt.Println(line)
			}
			fmt.Printf("\n%d regulation(s)\n", list.Count)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of regulations to list")
	return cmd
}

func newStatusCommand() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "status <regulation-id>",
		Short: "Show a regulation's processing status",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if watch {
				return watchRegulation(args[0])
			}
			var reg datatypes.Regulation
			if err := getJSON("/regulations/"+args[0], &reg); err != nil {
				return err
			}
			fmt.Printf("Regulation: %s (%s)\n", reg.ID, reg.Filename)
			fmt.Printf("Status:     %s\n", reg.Status)
			if reg.Error != "" {
				fmt.Printf("Error:      %s\n", reg.Error)
			}
			if reg.Analysis != nil {
				fmt.Printf("Framework:  %s\n", reg.Analysis.DetectedFramework)
				fmt.Printf("Risk:       %s\n", reg.Analysis.RiskAssessment.OverallRisk)
				fmt.Printf("Requirements: %d, Obligations: %d\n",
					len(reg.Analysis.KeyRequirements), len(reg.Analysis.ComplianceObligations))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Stream status events until processing finishes")
	return cmd
}

func uploadRegulation(path, regulationType, jurisdiction string) (*compliance.UploadResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := writer.WriteField("regulation_type", regulationType); err != nil {
		return nil, err
	}
	if err := writer.WriteField("jurisdiction", jurisdiction); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	resp, err := httpClient.Post(apiPath("/regulations"), writer.FormDataContentType(), &buf)
	if err != nil {
		return nil, fmt.Errorf("server unavailable at %s: %w", baseURL(), err)
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusAccepted {
		return nil, decodeAPIError(resp)
	}
	var upload compliance.UploadResponse
	if err := decodeJSONBody(resp.Body, &upload); err != nil {
		return nil, err
	}
	return &upload, nil
}

// watchRegulation streams status events over the server's WebSocket
// until the regulation reaches a terminal state.
func watchRegulation(regulationID string) error {
	wsURL := strings.Replace(apiPath("/regulations/"+regulationID+"/events"), "http", "ws", 1)
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("regulation not found: %s", regulationID)
		}
		return fmt.Errorf("cannot connect to event stream: %w", err)
	}
	defer conn.Close()

	for {
		var event compliance.StatusEvent
		if err := conn.ReadJSON(&event); err != nil {
			// Server closes the stream after the terminal event.
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || err == io.EOF {
				return nil
			}
			return nil
		}
		if event.Error != "" {
			fmt.Printf("%s  %s  %s\n", event.Timestamp, event.Status, event.Error)
		} else {
			fmt.Printf("%s  %s\n", event.Timestamp, event.Status)
		}
		if event.Status == "processed" || event.Status == "error" {
			return nil
		}
	}
}
