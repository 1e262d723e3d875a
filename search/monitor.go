package search

import (
	"github.com/poiesic/journalit/core"
	"github.com/poiesic/journalit/rank"
)

// SearchMonitor provides hooks to observe the retrieval process.
// Hooks are called sequentially from the retrieving goroutine.
type SearchMonitor interface {
	Start(userID, query string)
	AfterEmbedding(dimensions int, cached bool)
	AfterFilterExtraction(filter core.AttributeFilter)
	AfterVectorCandidates(ids []core.ID, err error)
	AfterAttributeCandidates(ids []core.ID, err error)
	AfterMerge(results []rank.Scored[core.ID])
	Finish(ids []core.ID)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_, _ string)                             {}
func (n *noopMonitor) AfterEmbedding(_ int, _ bool)                  {}
func (n *noopMonitor) AfterFilterExtraction(_ core.AttributeFilter)  {}
func (n *noopMonitor) AfterVectorCandidates(_ []core.ID, _ error)    {}
func (n *noopMonitor) AfterAttributeCandidates(_ []core.ID, _ error) {}
func (n *noopMonitor) AfterMerge(_ []rank.Scored[core.ID])           {}
func (n *noopMonitor) Finish(_ []core.ID)                            {}
