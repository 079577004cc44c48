package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/voxdex/ai"
	"github.com/poiesic/voxdex/core"
)

const classifierPromptTemplate = `You are a question classifier for a retrieval system over interview transcripts.
Classify the question into exactly one of these types: %s

Type definitions:
%s

Output ONLY valid JSON of the form {"type": string, "confidence": number between 0 and 1}.
Do not include any preamble or code fences.`

const expansionPromptTemplate = `You rewrite an analytical question into %d short, self-contained search queries.
Each query should target a different theme or angle of the question so that together they
retrieve evidence from several interviews. Do not repeat the original question.

Output ONLY valid JSON of the form {"queries": [string, ...]}.`

const synthesisPrompt = `You answer questions using retrieved interview transcript excerpts.

CRITICAL RULES:
1. Use ONLY information from the provided context. Do not add external knowledge.
2. When possible, quote directly from the source using quotation marks.
3. If the context does not contain enough information, say so explicitly.
4. Reference which source(s) support each claim using [1], [2], etc.
5. If sources conflict, acknowledge the discrepancy.

OUTPUT FORMAT:
Return valid JSON with two fields:
- "answer": a clear, well-structured response that references sources [1], [2], etc.
- "reasoning": an array of strings explaining which excerpts you used, how they support
  the answer, and any gaps in the available information.`

func buildClassifierPrompt() string {
	names := make([]string, len(core.QuestionTypes))
	defs := make([]string, len(core.QuestionTypes))
	for i, qt := range core.QuestionTypes {
		names[i] = string(qt)
		defs[i] = fmt.Sprintf("- %s: %s", qt, ai.QuestionTypeDefinitions[qt])
	}
	return fmt.Sprintf(classifierPromptTemplate, strings.Join(names, ", "), strings.Join(defs, "\n"))
}

func buildExpansionPrompt(n int) string {
	return fmt.Sprintf(expansionPromptTemplate, n)
}

// formatEvidence renders evidence as numbered blocks the synthesis prompt
// refers to by index.
func formatEvidence(evidence []ai.Evidence) string {
	if len(evidence) == 0 {
		return "No context provided."
	}
	blocks := make([]string, 0, len(evidence))
	for i, ev := range evidence {
		title := ev.Title
		if title == "" {
			title = ev.DocID
		}
		lines := []string{
			fmt.Sprintf("[%d] Title: %s", i+1, title),
			"Source: " + ev.Source,
		}
		if s := strings.TrimSpace(ev.Summary); s != "" {
			lines = append(lines, "Summary: "+s)
		}
		if len(ev.Claims) > 0 {
			claims := ev.Claims
			if len(claims) > 4 {
				claims = claims[:4]
			}
			lines = append(lines, "Claims: "+strings.Join(claims, "; "))
		}
		lines = append(lines, "Chunk: "+ev.Text)
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

// cleanExpansions trims, dedupes case-insensitively, drops the original
// query and caps the result at n.
func cleanExpansions(original string, queries []string, n int) []string {
	seen := map[string]bool{strings.ToLower(strings.TrimSpace(original)): true}
	out := make([]string, 0, n)
	for _, q := range queries {
		q = strings.TrimSpace(q)
		key := strings.ToLower(q)
		if q == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, q)
		if len(out) == n {
			break
		}
	}
	return out
}
