package enrich

import (
	"fmt"
	"strings"
)

const documentInstructions = `You analyze interview transcripts and emit structured metadata for retrieval.
Respond with a single JSON object and nothing else:
{"doc_summary": string (at most 120 words),
 "key_themes": [{"theme": string, "evidence_turn_indices": [int]}],
 "time_span": string,
 "entities": [{"name": string, "type": "person" | "organization" | "concept", "role": string}],
 "stance_notes": string}
Turn indices refer to the bracketed numbers in the sample. Use only the supplied text.`

const chunkInstructions = `You analyze one chunk of an interview transcript and emit metadata for retrieval.
Respond with a single JSON object and nothing else:
{"chunk_summary": string (at most 60 words),
 "chunk_intents": [short intent labels],
 "chunk_sentiment": string (one tone label),
 "chunk_claims": [concise factual statements made in the chunk]}
Use only the chunk text and the document context provided.`

// documentInput renders the user message for one document.
func documentInput(in DocumentInput) string {
	title := in.Meta.Title
	if title == "" {
		title = in.Meta.SourceName
	}
	if title == "" {
		title = "Untitled"
	}
	uploaded := in.Meta.UploadDate
	if uploaded == "" {
		uploaded = "unknown"
	}
	sample := in.Analysis.Snippet(snippetTurns)
	if sample == "" {
		sample = in.Analysis.Text
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Document ID: %s\n", in.Meta.DocID)
	fmt.Fprintf(&b, "Title: %s\n", title)
	fmt.Fprintf(&b, "Upload Date: %s\n", uploaded)
	fmt.Fprintf(&b, "Speaker Stats: %s\n", in.Analysis.SpeakerSummary())
	fmt.Fprintf(&b, "Turns Sample:\n%s", sample)
	return b.String()
}

// chunkInput renders the user message for one chunk. text is already
// clipped.
func chunkInput(chunkID, docID string, doc DocContext, text string) string {
	title := doc.Title
	if title == "" {
		title = docID
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Chunk ID: %s\n", chunkID)
	fmt.Fprintf(&b, "Document ID: %s\n", docID)
	fmt.Fprintf(&b, "Title: %s\n", title)
	fmt.Fprintf(&b, "Document Summary: %s\n", doc.Summary)
	fmt.Fprintf(&b, "Chunk Text:\n%s", text)
	return b.String()
}
