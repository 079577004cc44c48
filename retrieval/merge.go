package retrieval

import (
	"cmp"
	"slices"
	"strings"

	"github.com/poiesic/voxdex/core"
)

// compareHits orders hits by score descending, then collection priority,
// then chunk id.
func compareHits(a, b core.SearchHit) int {
	if a.Score != b.Score {
		return cmp.Compare(b.Score, a.Score)
	}
	if pa, pb := a.VectorSource.Priority(), b.VectorSource.Priority(); pa != pb {
		return cmp.Compare(pa, pb)
	}
	return strings.Compare(a.ChunkID, b.ChunkID)
}

// better picks between two hits for the same chunk. Full ties prefer the
// original query over sub-queries.
func better(a, b core.SearchHit) bool {
	if c := compareHits(a, b); c != 0 {
		return c < 0
	}
	return a.SubQuery < b.SubQuery
}

// mergeKey is the identity a hit is deduplicated under. Document summary
// hits stand for the whole document and never compete with chunk hits.
func mergeKey(h core.SearchHit) string {
	if h.VectorSource == core.CollectionDocSum {
		return "doc:" + h.DocID
	}
	return h.ChunkID
}

// mergeHits keeps the best hit per merge key and returns them sorted.
func mergeHits(hits []core.SearchHit) []core.SearchHit {
	best := make(map[string]core.SearchHit, len(hits))
	for _, h := range hits {
		key := mergeKey(h)
		if cur, ok := best[key]; !ok || better(h, cur) {
			best[key] = h
		}
	}
	out := make([]core.SearchHit, 0, len(best))
	for _, h := range best {
		out = append(out, h)
	}
	slices.SortFunc(out, compareHits)
	return out
}

// distinctDocs returns the doc ids covered by hits, in first-seen order.
func distinctDocs(hits []core.SearchHit) []string {
	seen := map[string]bool{}
	var ids []string
	for _, h := range hits {
		if !seen[h.DocID] {
			seen[h.DocID] = true
			ids = append(ids, h.DocID)
		}
	}
	return ids
}

// capHits truncates sorted hits to topK. With minDocs set, the best hit of
// each of the first minDocs documents is kept ahead of higher scoring hits
// from documents already represented; the result stays score sorted.
func capHits(hits []core.SearchHit, topK, minDocs int) []core.SearchHit {
	if len(hits) <= topK {
		return hits
	}
	if minDocs <= 0 {
		return hits[:topK]
	}

	reserved := make([]bool, len(hits))
	seen := map[string]bool{}
	n := 0
	for i, h := range hits {
		if n == min(minDocs, topK) {
			break
		}
		if !seen[h.DocID] {
			seen[h.DocID] = true
			reserved[i] = true
			n++
		}
	}
	for i := range hits {
		if n == topK {
			break
		}
		if !reserved[i] {
			reserved[i] = true
			n++
		}
	}

	out := make([]core.SearchHit, 0, topK)
	for i, h := range hits {
		if reserved[i] {
			out = append(out, h)
		}
	}
	return out
}
