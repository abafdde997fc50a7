// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analyzer

import (
	"fmt"
	"strings"
)

// Truncation limits keep prompts inside model context while leaving room
// for instructions and the JSON schema.
const (
	maxRegulationPromptChars = 15000
	maxCheckPromptChars      = 6000
)

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}

// buildRegulationPrompt asks the model to summarize a regulation's
// obligations as strict JSON.
func buildRegulationPrompt(text, regulationType, jurisdiction string) string {
	var sb strings.Builder
	sb.WriteString("You are an AI Compliance Officer.\n\n")
	sb.WriteString("Objective: Analyze the provided regulatory content and summarize obligations.\n")
	sb.WriteString("Rules: Output STRICT JSON only. If unknown, use null or [].\n\n")
	fmt.Fprintf(&sb, "Hints -> regulation_type: %s, jurisdiction: %s\n", regulationType, jurisdiction)
	sb.WriteString("Source Text (truncated):\n")
	sb.WriteString(truncate(text, maxRegulationPromptChars))
	sb.WriteString("\n\n")
	sb.WriteString(`JSON Schema: {
  "regulation_summary": "string",
  "key_requirements": [{
    "id": "string", "description": "string", "category": "string", "priority": "high|medium|low"
  }],
  "compliance_obligations": ["string"],
  "risk_assessment": {"overall_risk": "high|medium|low"},
  "implementation_timeline": "string|null",
  "affected_departments": ["string"],
  "penalties_and_enforcement": "string|null",
  "recommended_actions": ["string"],
  "detected_framework": "string",
  "document_overview": "string"
}
Return only JSON.`)
	return sb.String()
}

// buildCheckPrompt asks the model to score company policies against a
// regulation and report gaps, again as strict JSON.
func buildCheckPrompt(regulationText string, policies []string, hintType, hintJurisdiction string) string {
	policiesText := "No specific policies provided"
	if len(policies) > 0 {
		policiesText = strings.Join(policies, "\n")
	}

	var sb strings.Builder
	sb.WriteString("You are an AI Compliance Officer.\n\n")
	sb.WriteString("Objective: Analyze the provided regulatory content and produce a structured compliance assessment specific to the detected framework.\n")
	sb.WriteString("Rules: Output STRICT JSON only (no markdown). Status in {compliant, partially_compliant, non_compliant}. Scores are 0-100 integers.\n")
	sb.WriteString("Do not invent facts; if unknown use null or []. Recommendations must be concrete and actionable.\n\n")
	fmt.Fprintf(&sb, "Hints -> regulation_type: %s, jurisdiction: %s\n", hintType, hintJurisdiction)
	sb.WriteString("Company Policies:\n")
	sb.WriteString(policiesText)
	sb.WriteString("\n\n")
	sb.WriteString("Source Text (truncated):\n")
	sb.WriteString(truncate(regulationText, maxCheckPromptChars))
	sb.WriteString("\n\n")
	sb.WriteString("IMPORTANT: Generate specific, actionable recommendations based ONLY on the provided document and policies. Avoid generic advice.\n")
	sb.WriteString("For each gap, provide 2-3 concrete steps that can be implemented.\n\n")
	sb.WriteString(`JSON Schema: {
  "regulation": {"name": "string", "jurisdiction": "string|null", "type": "string"},
  "overall": {"status": "compliant|partially_compliant|non_compliant", "score": 0, "summary": "string"},
  "sections": [{
    "name": "string", "status": "compliant|partially_compliant|non_compliant", "score": 0,
    "gaps": [{
      "gap_id": "string", "description": "string", "risk_level": "high|medium|low",
      "evidence": "string|null", "recommendations": ["string"]
    }]
  }],
  "top_recommendations": ["string"],
  "detected_framework": "string",
  "assumptions": ["string"]
}
Return only JSON.`)
	return sb.String()
}
