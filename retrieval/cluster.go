package retrieval

import (
	"cmp"
	"slices"
	"time"

	"github.com/poiesic/voxdex/core"
	"github.com/poiesic/voxdex/transcript"
)

type group struct {
	key  string
	hits []core.SearchHit
}

// cluster groups hits (already sorted best first) and scores each group by
// its mean hit score plus a recency bonus.
func (o *Orchestrator) cluster(hits []core.SearchHit, cfg core.ClusteringConfig) []core.EvidenceCluster {
	var groups []*group
	byKey := map[string]*group{}
	for _, h := range hits {
		key := h.DocID
		if cfg.Strategy == core.ClusterByTheme {
			if c, err := o.chunks.Get(h.ChunkID); err == nil && c.KeyTheme != "" {
				key = c.KeyTheme
			}
		}
		g, ok := byKey[key]
		if !ok {
			g = &group{key: key}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.hits = append(g.hits, h)
	}

	recency := o.recency(hits)
	clusters := make([]core.EvidenceCluster, 0, len(groups))
	for _, g := range groups {
		if len(g.hits) < max(cfg.MinChunksPerCluster, 1) {
			continue
		}
		var sum float64
		for _, h := range g.hits {
			sum += float64(h.Score)
		}
		docs := distinctDocs(g.hits)
		var bonus float64
		if len(docs) > 0 {
			for _, d := range docs {
				bonus += recency[d]
			}
			bonus = o.recencyWeight * bonus / float64(len(docs))
		}

		// A document summary hit shares its display chunk with chunk hits.
		used := map[string]bool{g.hits[0].ChunkID: true}
		supporting := make([]string, 0, o.maxSupporting)
		for _, h := range g.hits[1:] {
			if len(supporting) == o.maxSupporting {
				break
			}
			if !used[h.ChunkID] {
				used[h.ChunkID] = true
				supporting = append(supporting, h.ChunkID)
			}
		}
		clusters = append(clusters, core.EvidenceCluster{
			Key:                   g.key,
			Score:                 sum/float64(len(g.hits)) + bonus,
			RepresentativeChunkID: g.hits[0].ChunkID,
			SupportingChunkIDs:    supporting,
			DocIDs:                docs,
		})
	}

	slices.SortStableFunc(clusters, func(a, b core.EvidenceCluster) int {
		if a.Score != b.Score {
			return cmp.Compare(b.Score, a.Score)
		}
		return cmp.Compare(a.Key, b.Key)
	})
	if len(clusters) > cfg.MaxClusters {
		clusters = clusters[:cfg.MaxClusters]
	}
	return clusters
}

// recency scores each document in hits in [0, 1] by upload date relative
// to the oldest and newest documents among the hits. Documents without a
// usable date score 0.
func (o *Orchestrator) recency(hits []core.SearchHit) map[string]float64 {
	dates := map[string]time.Time{}
	var oldest, newest time.Time
	for _, docID := range distinctDocs(hits) {
		doc, ok := o.chunks.Doc(docID)
		if !ok {
			continue
		}
		t, ok := transcript.ParseUploadDate(doc.UploadDate)
		if !ok {
			continue
		}
		dates[docID] = t
		if oldest.IsZero() || t.Before(oldest) {
			oldest = t
		}
		if t.After(newest) {
			newest = t
		}
	}

	out := make(map[string]float64, len(dates))
	span := newest.Sub(oldest)
	if span <= 0 {
		return out
	}
	for docID, t := range dates {
		out[docID] = float64(t.Sub(oldest)) / float64(span)
	}
	return out
}

// narrowClusters drops filtered-out chunks from clusters without
// re-scoring or re-ordering them. Clusters left empty are removed.
func narrowClusters(clusters []core.EvidenceCluster, kept []core.SearchHit) []core.EvidenceCluster {
	if len(clusters) == 0 {
		return clusters
	}
	keep := make(map[string]bool, len(kept))
	docOf := make(map[string]string, len(kept))
	for _, h := range kept {
		keep[h.ChunkID] = true
		docOf[h.ChunkID] = h.DocID
	}

	out := make([]core.EvidenceCluster, 0, len(clusters))
	for _, c := range clusters {
		var members []string
		for _, id := range append([]string{c.RepresentativeChunkID}, c.SupportingChunkIDs...) {
			if keep[id] {
				members = append(members, id)
			}
		}
		if len(members) == 0 {
			continue
		}
		var docs []string
		seen := map[string]bool{}
		for _, id := range members {
			if d := docOf[id]; !seen[d] {
				seen[d] = true
				docs = append(docs, d)
			}
		}
		c.RepresentativeChunkID = members[0]
		c.SupportingChunkIDs = members[1:]
		c.DocIDs = docs
		out = append(out, c)
	}
	return out
}
