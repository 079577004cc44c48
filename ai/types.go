package ai

import "github.com/poiesic/voxdex/core"

// Classification is the classifier's verdict on a query.
type Classification struct {
	Type       core.QuestionType `json:"type"`
	Confidence float64           `json:"confidence"`
}

// Evidence is one retrieved chunk handed to the synthesizer.
type Evidence struct {
	ChunkID string
	DocID   string
	Title   string
	Source  string
	Summary string
	Claims  []string
	Text    string
}

// Synthesis is a grounded answer plus the model's account of which evidence
// it used.
type Synthesis struct {
	Answer    string   `json:"answer"`
	Reasoning []string `json:"reasoning"`
}

// QuestionTypeDefinitions describes each question type for classifier prompts.
var QuestionTypeDefinitions = map[core.QuestionType]string{
	core.QuestionFactual:     "Asks for specific facts, events, statements, or data points.",
	core.QuestionAnalytical:  "Seeks reasoning, causes, implications, or deeper meaning across sources.",
	core.QuestionMeta:        "Questions about the system, sources, coverage, or information availability.",
	core.QuestionExploratory: "Open-ended queries looking for broad understanding or adjacent themes.",
	core.QuestionComparative: "Contrasts multiple things, time periods, or perspectives.",
	core.QuestionCreative:    "Invites hypotheticals, predictions, or speculative scenarios.",
}

// QuestionTypeGuidance tells the synthesizer how to shape an answer per type.
var QuestionTypeGuidance = map[core.QuestionType]string{
	core.QuestionFactual:     "Deliver concise answers grounded in direct snippets or claims. Prioritize precise wording, avoid speculation, and cite the exact supporting source for every statement.",
	core.QuestionAnalytical:  "Synthesize multiple chunks to explain causes, implications, or patterns. Group arguments by claim and intent, call out tensions, and describe evidence limits.",
	core.QuestionMeta:        "Describe what the provided context reveals about the corpus itself. Reference titles and upload dates, and be explicit whenever the context lacks coverage.",
	core.QuestionExploratory: "Map the landscape of ideas surfaced in the context. Lean on chunk summaries to group themes and note adjacent topics.",
	core.QuestionComparative: "Emphasize contrasts between interviews, time periods, or viewpoints. Cite differences explicitly using titles or upload dates.",
	core.QuestionCreative:    "Adopt an imaginative tone while keeping every detail tied to the supplied context. Flag any speculative leaps and still cite sources.",
}
