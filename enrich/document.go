package enrich

import (
	"context"
	"log/slog"

	"github.com/poiesic/voxdex/ai"
	"github.com/poiesic/voxdex/core"
	"github.com/poiesic/voxdex/jsonx"
	"github.com/poiesic/voxdex/storage"
	"github.com/poiesic/voxdex/transcript"
)

// snippetTurns is how many turns are sampled from each of the head, middle
// and tail of a transcript for the document prompt.
const snippetTurns = 4

// DocumentInput is one document to enrich.
type DocumentInput struct {
	Meta     core.DocumentMeta
	Analysis *transcript.Analysis
}

// DocumentEnricher produces one DocumentEnrichment per transcript.
type DocumentEnricher struct {
	r *runner
}

// NewDocumentEnricher creates a document enricher.
func NewDocumentEnricher(extractor ai.Extractor, cache storage.EnrichmentCache, opts ...Option) (*DocumentEnricher, error) {
	r, err := newRunner(storage.CacheDocument, extractor, cache, core.DocumentEnrichmentVersion, opts)
	if err != nil {
		return nil, err
	}
	return &DocumentEnricher{r: r}, nil
}

// Version returns the schema version results are stamped with.
func (e *DocumentEnricher) Version() int {
	return e.r.version
}

// Enrich returns one enrichment per input, in input order. A document whose
// enrichment failed gets an empty-valued enrichment so the manifest keeps a
// fixed shape; it is counted in Stats.Failed.
func (e *DocumentEnricher) Enrich(ctx context.Context, docs []DocumentInput) ([]core.DocumentEnrichment, Stats, error) {
	out := make([]core.DocumentEnrichment, len(docs))
	var t tally

	err := e.r.each(ctx, len(docs), func(i int) error {
		in := docs[i]
		docID := in.Meta.DocID
		v, o, err := resolve(ctx, e.r, docID,
			func() string { return documentInput(in) },
			func(b []byte) (core.DocumentEnrichment, error) { return DecodeDocument(docID, b) },
			func(v core.DocumentEnrichment) ([]byte, error) { return jsonx.Marshal(v) },
		)
		if err != nil {
			return err
		}
		if o == outcomeFailed {
			v = emptyDocument(docID)
		}
		v.DocID = docID
		v.Version = e.r.version
		v.TimeSpan = timeSpan(in.Meta, v.TimeSpan, e.r.logger)
		out[i] = v
		t.add(docID, o)
		return nil
	})
	if err != nil {
		return nil, t.result(), err
	}

	stats := t.result()
	e.r.logger.Info("document enrichment complete",
		"docs", len(docs),
		"enriched", stats.Enriched,
		"reused", stats.Reused,
		"failed", stats.Failed)
	return out, stats, nil
}

func emptyDocument(docID string) core.DocumentEnrichment {
	return core.DocumentEnrichment{
		DocID:     docID,
		KeyThemes: []core.Theme{},
		Entities:  []core.Entity{},
	}
}

// timeSpan prefers the span derived from upload metadata and falls back to
// the model's answer when the metadata has no usable date.
func timeSpan(meta core.DocumentMeta, extracted string, logger *slog.Logger) string {
	derived := transcript.TimeSpan(meta, logger)
	if derived == transcript.UnknownTimeSpan && extracted != "" {
		return extracted
	}
	return derived
}
