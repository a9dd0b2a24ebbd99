package relate

import "strings"

// serializeItem renders an item into the exact textual form the provider
// receives. Token estimation runs over this same rendering, so the
// partitioner's arithmetic and the real payload never drift apart.
func serializeItem(it Item) string {
	var sb strings.Builder
	sb.WriteString("- id: ")
	sb.WriteString(it.ID)
	sb.WriteString("\n  kind: ")
	sb.WriteString(it.Kind)
	sb.WriteString("\n  title: ")
	sb.WriteString(it.Title)
	if it.Description != "" {
		sb.WriteString("\n  description: ")
		sb.WriteString(it.Description)
	}
	if it.Source != "" {
		sb.WriteString("\n  source: ")
		sb.WriteString(it.Source)
	}
	sb.WriteString("\n")
	return sb.String()
}

// serializeItems renders a full item list as one payload body.
func serializeItems(items []Item) string {
	var sb strings.Builder
	sb.WriteString("Items:\n")
	for _, it := range items {
		sb.WriteString(serializeItem(it))
	}
	return sb.String()
}

// DefaultInstructions is the fixed overhead text callers can use when
// they have no domain-specific prompt. It asks the provider for the one
// structured array the orchestrator knows how to extract.
const DefaultInstructions = `You are analyzing items from a strategy canvas. Identify meaningful relationships between the items listed below.

For each relationship you find, report:
- from_id and to_id: ids of the two related items
- relation_type: one of "support", "contradiction", "dependency", "other"
- strength: confidence between 0.0 and 1.0
- reasoning: one sentence explaining the connection
- keywords: up to five terms shared by both items

Respond with a single JSON array of these records and nothing else. If no relationships exist, respond with an empty array [].`
