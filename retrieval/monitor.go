package retrieval

import "github.com/poiesic/voxdex/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(req Request, profile core.RetrievalProfile)
	AfterExpansion(subQueries []string)
	AfterCollectionQuery(usage CollectionUsage, hits []core.SearchHit)
	AfterMerge(hits []core.SearchHit)
	DiversityFallback(coveredDocs int, added []core.SearchHit)
	AfterClustering(clusters []core.EvidenceCluster)
	Finish(resp *Response)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ Request, _ core.RetrievalProfile)                   {}
func (n *noopMonitor) AfterExpansion(_ []string)                                  {}
func (n *noopMonitor) AfterCollectionQuery(_ CollectionUsage, _ []core.SearchHit) {}
func (n *noopMonitor) AfterMerge(_ []core.SearchHit)                              {}
func (n *noopMonitor) DiversityFallback(_ int, _ []core.SearchHit)                {}
func (n *noopMonitor) AfterClustering(_ []core.EvidenceCluster)                   {}
func (n *noopMonitor) Finish(_ *Response)                                         {}
