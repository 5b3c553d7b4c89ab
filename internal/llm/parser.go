package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
)

// wireMatch mirrors the response contract with a tolerant confidence type,
// since models sometimes reply with fractional scores.
type wireMatch struct {
	Account    *string `json:"account"`
	Label      string  `json:"label"`
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
}

type wireResponse struct {
	BatchID string      `json:"batch_id"`
	Matches []wireMatch `json:"matches"`
}

// cleanMarkdownWrapper strips code fences the model sometimes wraps around
// its JSON reply.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	if idx := strings.Index(content, "\n"); idx >= 0 {
		content = content[idx+1:]
	} else {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
	}

	content = strings.TrimSpace(content)
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// parseBatchResponse decodes a model reply into the batch response shape.
// Malformed JSON gets one repair attempt before the batch is failed.
func parseBatchResponse(content string, req BatchRequest) (BatchResponse, error) {
	content = cleanMarkdownWrapper(content)

	var wire wireResponse
	if err := json.Unmarshal([]byte(content), &wire); err != nil {
		repaired, repairErr := jsonrepair.RepairJSON(content)
		if repairErr != nil {
			return BatchResponse{}, fmt.Errorf("failed to parse JSON response: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), &wire); err != nil {
			return BatchResponse{}, fmt.Errorf("failed to parse repaired JSON response: %w", err)
		}
	}

	if wire.BatchID != "" && wire.BatchID != req.BatchID {
		return BatchResponse{}, fmt.Errorf("batch id mismatch: got %q, want %q", wire.BatchID, req.BatchID)
	}
	if len(wire.Matches) == 0 {
		return BatchResponse{}, fmt.Errorf("no matches in response")
	}

	known := make(map[string]struct{}, len(req.Labels))
	for _, label := range req.Labels {
		known[label] = struct{}{}
	}

	resp := BatchResponse{
		BatchID: req.BatchID,
		Matches: make([]BatchMatch, 0, len(wire.Matches)),
	}
	for _, m := range wire.Matches {
		if _, ok := known[m.Label]; !ok {
			return BatchResponse{}, fmt.Errorf("match references unknown label %q", m.Label)
		}

		account := m.Account
		if account != nil {
			name := strings.TrimSpace(*account)
			// Models occasionally send "" or a literal "null" string.
			if name == "" || strings.EqualFold(name, "null") {
				account = nil
			} else {
				account = &name
			}
		}

		resp.Matches = append(resp.Matches, BatchMatch{
			Label:      m.Label,
			Account:    account,
			Confidence: clampConfidence(m.Confidence),
			Reasoning:  strings.TrimSpace(m.Reasoning),
		})
	}

	return resp, nil
}

func clampConfidence(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	c := int(math.Round(v))
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
