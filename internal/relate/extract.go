package relate

import (
	"encoding/json"
	"strings"
)

// rawCandidate mirrors the record shape requested from the provider.
type rawCandidate struct {
	FromID       string   `json:"from_id"`
	ToID         string   `json:"to_id"`
	RelationType string   `json:"relation_type"`
	Strength     float64  `json:"strength"`
	Reasoning    string   `json:"reasoning"`
	Keywords     []string `json:"keywords"`
}

// extractCandidateArray pulls the first embedded JSON array out of a
// free-form provider response. Extraction is best effort: fenced
// ```json blocks first, then unlabeled fences, then the outermost
// bracket span. A miss means the model produced no answer, which is an
// empty result, not a malfunction.
func extractCandidateArray(response string) []rawCandidate {
	var jsonStr string
	if strings.Contains(response, "```json") {
		parts := strings.Split(response, "```json")
		if len(parts) > 1 {
			jsonStr = strings.Split(parts[1], "```")[0]
		}
	} else if strings.Contains(response, "```") {
		// Fallback for unlabeled blocks
		parts := strings.Split(response, "```")
		if len(parts) > 1 {
			jsonStr = parts[1]
		}
	} else {
		// Fallback: try to find array brackets directly
		start := strings.Index(response, "[")
		end := strings.LastIndex(response, "]")
		if start != -1 && end > start {
			jsonStr = response[start : end+1]
		}
	}

	jsonStr = strings.TrimSpace(jsonStr)
	if jsonStr == "" {
		return nil
	}

	// A fenced block may still wrap the array in prose.
	if !strings.HasPrefix(jsonStr, "[") {
		start := strings.Index(jsonStr, "[")
		end := strings.LastIndex(jsonStr, "]")
		if start == -1 || end <= start {
			return nil
		}
		jsonStr = jsonStr[start : end+1]
	}

	var records []rawCandidate
	if err := json.Unmarshal([]byte(jsonStr), &records); err != nil {
		return nil
	}
	return records
}

// validateCandidates filters raw records into candidates: self-loops and
// ids outside the original item universe are dropped record by record,
// strength is clamped into [0,1]. Cross-chunk references are legal, so
// the universe is the full batch, not one chunk.
func validateCandidates(records []rawCandidate, universe map[string]struct{}, sequence int) []Candidate {
	out := make([]Candidate, 0, len(records))
	for _, r := range records {
		if r.FromID == r.ToID {
			continue
		}
		if _, ok := universe[r.FromID]; !ok {
			continue
		}
		if _, ok := universe[r.ToID]; !ok {
			continue
		}
		out = append(out, Candidate{
			FromID:    r.FromID,
			ToID:      r.ToID,
			Type:      normalizeRelationType(r.RelationType),
			Strength:  clamp01(r.Strength),
			Reasoning: r.Reasoning,
			Keywords:  r.Keywords,
			FromChunk: sequence,
		})
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
