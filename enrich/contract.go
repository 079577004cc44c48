package enrich

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/poiesic/voxdex/core"
	"github.com/poiesic/voxdex/jsonx"
)

var (
	documentRequired = []string{"doc_summary", "key_themes", "time_span", "entities"}
	chunkRequired    = []string{"chunk_summary", "chunk_intents", "chunk_sentiment", "chunk_claims"}

	entityTypes = map[string]bool{"person": true, "organization": true, "concept": true}

	validate = validator.New(validator.WithRequiredStructEnabled())
)

type documentContract struct {
	DocSummary  string        `validate:"required"`
	KeyThemes   []core.Theme  `validate:"dive"`
	TimeSpan    string        `validate:"-"`
	Entities    []core.Entity `validate:"dive"`
	StanceNotes string        `validate:"-"`
}

type chunkContract struct {
	Summary   string   `validate:"required"`
	Intents   []string `validate:"dive,required"`
	Sentiment string   `validate:"-"`
	Claims    []string `validate:"dive,required"`
}

// fields decodes a payload into its top-level members and checks that every
// required key is present.
func fields(payload []byte, required []string) (map[string]json.RawMessage, error) {
	var m map[string]json.RawMessage
	if err := jsonx.Unmarshal(payload, &m); err != nil {
		return nil, fmt.Errorf("%w: payload is not a JSON object: %v", ErrContract, err)
	}
	var missing []string
	for _, key := range required {
		if raw, ok := m[key]; !ok || string(raw) == "null" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required keys: %s", ErrContract, strings.Join(missing, ", "))
	}
	return m, nil
}

func decodeString(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var s string
	if err := jsonx.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// decodeList decodes a list field into out. A list serialized as a JSON
// string is accepted and decoded.
func decodeList(raw json.RawMessage, out any) error {
	if raw == nil {
		return nil
	}
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, `"`) {
		var inner string
		if err := jsonx.Unmarshal(raw, &inner); err != nil {
			return err
		}
		if strings.TrimSpace(inner) == "" {
			return nil
		}
		raw = json.RawMessage(inner)
	}
	return jsonx.Unmarshal(raw, out)
}

// NormalizeList coerces a list-ish field into a list of trimmed, non-empty
// strings. A bare string that is not a JSON list becomes a one-element list.
func NormalizeList(raw json.RawMessage) []string {
	out := []string{}
	if raw == nil {
		return out
	}
	var items []any
	if err := decodeList(raw, &items); err != nil {
		if s := decodeString(raw); s != "" {
			out = append(out, s)
		}
		return out
	}
	for _, item := range items {
		var s string
		switch v := item.(type) {
		case string:
			s = v
		case nil:
			continue
		default:
			s = fmt.Sprint(v)
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// DecodeDocument checks a document payload against the contract.
func DecodeDocument(docID string, payload []byte) (core.DocumentEnrichment, error) {
	m, err := fields(payload, documentRequired)
	if err != nil {
		return core.DocumentEnrichment{}, err
	}
	c := documentContract{
		DocSummary:  decodeString(m["doc_summary"]),
		TimeSpan:    decodeString(m["time_span"]),
		StanceNotes: decodeString(m["stance_notes"]),
	}
	if err := decodeList(m["key_themes"], &c.KeyThemes); err != nil {
		return core.DocumentEnrichment{}, fmt.Errorf("%w: key_themes: %v", ErrContract, err)
	}
	if err := decodeList(m["entities"], &c.Entities); err != nil {
		return core.DocumentEnrichment{}, fmt.Errorf("%w: entities: %v", ErrContract, err)
	}
	for i := range c.Entities {
		e := &c.Entities[i]
		e.Name = strings.TrimSpace(e.Name)
		e.Type = strings.ToLower(strings.TrimSpace(e.Type))
		if !entityTypes[e.Type] {
			e.Type = "concept"
		}
	}
	for i := range c.KeyThemes {
		c.KeyThemes[i].Theme = strings.TrimSpace(c.KeyThemes[i].Theme)
		if c.KeyThemes[i].EvidenceTurnIndices == nil {
			c.KeyThemes[i].EvidenceTurnIndices = []int{}
		}
	}
	if err := validate.Struct(c); err != nil {
		return core.DocumentEnrichment{}, fmt.Errorf("%w: %v", ErrContract, err)
	}

	out := core.DocumentEnrichment{
		DocID:       docID,
		Summary:     c.DocSummary,
		KeyThemes:   c.KeyThemes,
		TimeSpan:    c.TimeSpan,
		Entities:    c.Entities,
		StanceNotes: c.StanceNotes,
	}
	if out.KeyThemes == nil {
		out.KeyThemes = []core.Theme{}
	}
	if out.Entities == nil {
		out.Entities = []core.Entity{}
	}
	return out, nil
}

// DecodeChunk checks a chunk payload against the contract.
func DecodeChunk(payload []byte) (core.ChunkEnrichment, error) {
	m, err := fields(payload, chunkRequired)
	if err != nil {
		return core.ChunkEnrichment{}, err
	}
	c := chunkContract{
		Summary:   decodeString(m["chunk_summary"]),
		Intents:   NormalizeList(m["chunk_intents"]),
		Sentiment: strings.ToLower(decodeString(m["chunk_sentiment"])),
		Claims:    NormalizeList(m["chunk_claims"]),
	}
	if err := validate.Struct(c); err != nil {
		return core.ChunkEnrichment{}, fmt.Errorf("%w: %v", ErrContract, err)
	}
	return core.ChunkEnrichment{
		Summary:   c.Summary,
		Intents:   c.Intents,
		Sentiment: c.Sentiment,
		Claims:    c.Claims,
	}, nil
}
