package monitor

import (
	"sync/atomic"
)

type WorkloadStats struct {
	InsertCount         uint64
	QueryCount          uint64
	ExactPathCount      uint64
	EmptyResultCount    uint64
	CandidatesRequested uint64
	CandidatesMatched   uint64
}

func NewWorkloadStats() *WorkloadStats {
	return &WorkloadStats{}
}

func (ws *WorkloadStats) RecordInsert() {
	atomic.AddUint64(&ws.InsertCount, 1)
}

func (ws *WorkloadStats) RecordQuery() {
	atomic.AddUint64(&ws.QueryCount, 1)
}

func (ws *WorkloadStats) RecordExactPath() {
	atomic.AddUint64(&ws.ExactPathCount, 1)
}

func (ws *WorkloadStats) RecordEmptyResult() {
	atomic.AddUint64(&ws.EmptyResultCount, 1)
}

func (ws *WorkloadStats) RecordCandidates(requested, matched int) {
	atomic.AddUint64(&ws.CandidatesRequested, uint64(requested))
	atomic.AddUint64(&ws.CandidatesMatched, uint64(matched))
}

// GetMatchRate reports the fraction of requested oracle candidates that
// survived the scalar filter, across all probabilistic queries.
func (ws *WorkloadStats) GetMatchRate() float64 {
	requested := atomic.LoadUint64(&ws.CandidatesRequested)
	matched := atomic.LoadUint64(&ws.CandidatesMatched)

	if requested == 0 {
		return 0.0
	}
	return float64(matched) / float64(requested)
}

// GetReadWriteRatio reports queries per insert.
func (ws *WorkloadStats) GetReadWriteRatio() float64 {
	queries := atomic.LoadUint64(&ws.QueryCount)
	inserts := atomic.LoadUint64(&ws.InsertCount)

	if inserts == 0 {
		if queries > 0 {
			return 100.0
		}
		return 0.0
	}
	return float64(queries) / float64(inserts)
}
