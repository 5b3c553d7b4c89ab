package llm

import (
	"fmt"
	"strings"
)

// systemPrompt instructs the model to reply with bare JSON only.
func systemPrompt() string {
	return "You are a financial statement mapping assistant. You MUST respond with ONLY a valid JSON object. Do not include any explanatory text, markdown formatting, or commentary before or after the JSON. Start your response directly with { and end with }."
}

// userPrompt renders one batch request as a prompt.
func userPrompt(req BatchRequest) string {
	var b strings.Builder

	switch req.Mode {
	case ModeDoubleCheck:
		b.WriteString("Re-examine each statement label below against the candidate accounts. ")
		b.WriteString("These labels were mapped with low confidence by a lexical matcher; ")
		b.WriteString("confirm the best candidate or pick a better one.\n\n")
	case ModeInitial:
		fallthrough
	default:
		b.WriteString("Map each financial statement label below to the best matching account ")
		b.WriteString("from the candidate list. Labels and accounts come from the same set of ")
		b.WriteString("financial statements but may use different wording for the same item.\n\n")
	}

	fmt.Fprintf(&b, "Batch ID: %s\n\nLabels:\n", req.BatchID)
	for _, label := range req.Labels {
		fmt.Fprintf(&b, "- %s\n", label)
	}

	b.WriteString("\nCandidate accounts (name: value):\n")
	for _, c := range req.Candidates {
		fmt.Fprintf(&b, "- %s: %.2f\n", c.Name, c.Value)
	}

	fmt.Fprintf(&b, `
Respond with this exact JSON shape:
{"batch_id": %q, "matches": [{"label": "<label>", "account": "<account name or null>", "confidence": <0-100>, "reasoning": "<one sentence>"}]}

Rules:
- Include exactly one match object per label, in the order given.
- account must be copied verbatim from the candidate list, or null if nothing fits.
- confidence is an integer from 0 to 100.
- reasoning is one short sentence explaining the choice.
`, req.BatchID)

	return b.String()
}
