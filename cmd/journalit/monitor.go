package main

import (
	"log/slog"

	"github.com/poiesic/journalit/core"
	"github.com/poiesic/journalit/rank"
	"github.com/poiesic/journalit/search"
)

// logMonitor logs every retrieval stage at info level.
type logMonitor struct {
	logger *slog.Logger
}

var _ search.SearchMonitor = (*logMonitor)(nil)

func newLogMonitor(logger *slog.Logger) *logMonitor {
	return &logMonitor{logger: logger.With("component", "explain")}
}

func (m *logMonitor) Start(userID, query string) {
	m.logger.Info("retrieval started", "userID", userID, "query", query)
}

func (m *logMonitor) AfterEmbedding(dimensions int, cached bool) {
	m.logger.Info("query embedded", "dimensions", dimensions, "cached", cached)
}

func (m *logMonitor) AfterFilterExtraction(filter core.AttributeFilter) {
	m.logger.Info("filter extracted",
		"people", filter.People,
		"emotions", filter.Emotions,
		"tags", filter.Tags,
		"date", filter.Date,
		"mood", filter.Mood,
		"stress", filter.StressLevel)
}

func (m *logMonitor) AfterVectorCandidates(ids []core.ID, err error) {
	if err != nil {
		m.logger.Info("vector candidates failed", "err", err)
		return
	}
	m.logger.Info("vector candidates", "count", len(ids), "ids", ids)
}

func (m *logMonitor) AfterAttributeCandidates(ids []core.ID, err error) {
	if err != nil {
		m.logger.Info("attribute candidates failed", "err", err)
		return
	}
	m.logger.Info("attribute candidates", "count", len(ids), "ids", ids)
}

func (m *logMonitor) AfterMerge(results []rank.Scored[core.ID]) {
	for i, r := range results {
		m.logger.Info("merged", "rank", i+1, "id", r.Id, "score", r.Score)
	}
}

func (m *logMonitor) Finish(ids []core.ID) {
	m.logger.Info("retrieval finished", "returned", len(ids))
}
