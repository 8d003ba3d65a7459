package core

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"rangeann/pkg/common"
	"rangeann/pkg/config"
	"rangeann/pkg/core/bptree"
	"rangeann/pkg/core/estimate"
	"rangeann/pkg/monitor"
	"rangeann/pkg/oracle"
	"rangeann/pkg/storage"
)

// breadthHeadroom is added on top of the candidate pool size when raising
// the oracle's exploration width, so the oracle can actually surface the
// requested number of results.
const breadthHeadroom = 50

// HybridIndex answers "k nearest neighbors whose tag lies in [smin, smax]"
// by composing three structures: a B+ tree keyed by tag (range counting and
// enumeration), a dense record store (exact vectors and tags), and an
// approximate-neighbor oracle. The three are updated as one logical unit
// per insert; a reader never observes a record in one structure but not the
// others.
type HybridIndex struct {
	mu        sync.RWMutex
	tree      *bptree.Tree[float32, int]
	records   []common.Record // dense, index == record id
	dim       int             // fixed by the first insert
	orc       oracle.Oracle
	newOracle func() oracle.Oracle
	backend   storage.Backend
	stats     *monitor.WorkloadStats
	writeCh   chan common.Record
	closeCh   chan struct{}
	wg        sync.WaitGroup
	conf      *config.Config
}

// NewHybridIndex builds an index with an HNSW oracle per cfg.Index and,
// when cfg.Storage.Path is set, a SQLite record log that is replayed before
// the index accepts traffic.
func NewHybridIndex(cfg *config.Config) (*HybridIndex, error) {
	newOracle := func() oracle.Oracle {
		return oracle.NewHNSW(cfg.Index.HNSWM, cfg.Index.HNSWEfSearch)
	}

	var backend storage.Backend
	if cfg.Storage.Path != "" {
		if err := os.MkdirAll(cfg.Storage.Path, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		backend = storage.NewSQLiteBackend(filepath.Join(cfg.Storage.Path, "records.db"))
	}

	return newHybridIndex(cfg, newOracle, backend)
}

// NewHybridIndexWithOracle builds a memory-only index around oracles from
// the given factory. Used by tests and by embedders that manage persistence
// themselves. newOracle must return a fresh, empty oracle on every call:
// Reset installs a new one, and a reused instance would keep serving ids of
// records that no longer exist.
func NewHybridIndexWithOracle(cfg *config.Config, newOracle func() oracle.Oracle) (*HybridIndex, error) {
	return newHybridIndex(cfg, newOracle, nil)
}

func newHybridIndex(cfg *config.Config, newOracle func() oracle.Oracle, backend storage.Backend) (*HybridIndex, error) {
	tree, err := bptree.New[float32, int](cfg.Index.TreeOrder)
	if err != nil {
		return nil, err
	}

	hi := &HybridIndex{
		tree:      tree,
		orc:       newOracle(),
		newOracle: newOracle,
		backend:   backend,
		stats:     monitor.NewWorkloadStats(),
		conf:      cfg,
	}

	if backend != nil {
		if err := hi.recover(); err != nil {
			return nil, fmt.Errorf("replay record log: %w", err)
		}
		hi.writeCh = make(chan common.Record, cfg.Storage.WriteBufferSize)
		hi.closeCh = make(chan struct{})
		hi.wg.Add(1)
		go hi.backgroundPersist()
	}

	return hi, nil
}

// recover replays the persisted record log, rebuilding the tree and the
// oracle. Records come back in id order, reproducing the original layout.
func (hi *HybridIndex) recover() error {
	records, err := hi.backend.LoadAll()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	log.Printf("[RangeANN] Replaying %d records from disk...", len(records))

	hi.dim = len(records[0].Vec)
	for _, rec := range records {
		hi.records = append(hi.records, rec)
		hi.tree.Insert(rec.Tag, rec.ID)
		hi.orc.Insert(rec.Vec, rec.ID)
	}
	log.Printf("[RangeANN] Replay done. %d records, dimension %d.", len(hi.records), hi.dim)
	return nil
}

// Insert stores (vec, tag), assigns the next sequential record id, and
// registers the pair with the tree and the oracle. The first insert fixes
// the vector dimension for the lifetime of the index.
func (hi *HybridIndex) Insert(vec []float32, tag float32) (int, error) {
	if len(vec) == 0 {
		return 0, common.ErrEmptyVector
	}

	hi.mu.Lock()
	defer hi.mu.Unlock()

	if len(hi.records) == 0 {
		hi.dim = len(vec)
	} else if len(vec) != hi.dim {
		return 0, fmt.Errorf("%w: index dimension %d, got %d", common.ErrDimensionMismatch, hi.dim, len(vec))
	}

	stored := make([]float32, len(vec))
	copy(stored, vec)

	id := len(hi.records)
	rec := common.Record{ID: id, Tag: tag, Vec: stored}
	hi.records = append(hi.records, rec)
	hi.tree.Insert(tag, id)
	hi.orc.Insert(stored, id)
	hi.stats.RecordInsert()

	if hi.writeCh != nil {
		hi.writeCh <- rec
	}
	return id, nil
}

// Query returns up to k record ids, nearest first by exact squared
// Euclidean distance, among records whose tag lies in [smin, smax]. The
// candidate pool size is chosen so that, with probability at least
// 1-alpha, filtering leaves at least k survivors. Fewer than k ids are
// returned only when filtering starved the pool; an empty result is valid
// and never an error.
func (hi *HybridIndex) Query(q []float32, k int, smin, smax float32, alpha float64) ([]int, error) {
	// Exclusive: the query may raise the oracle's search breadth.
	hi.mu.Lock()
	defer hi.mu.Unlock()

	if k <= 0 || len(hi.records) == 0 || hi.orc.Len() == 0 {
		hi.stats.RecordEmptyResult()
		return nil, nil
	}
	if len(q) != hi.dim {
		return nil, fmt.Errorf("%w: index dimension %d, got %d", common.ErrDimensionMismatch, hi.dim, len(q))
	}
	// Counted only once the query is accepted, so rejected calls do not
	// skew the read/write ratio.
	hi.stats.RecordQuery()

	s := hi.tree.CountInRange(smin, smax)
	if s == 0 {
		hi.stats.RecordEmptyResult()
		return nil, nil
	}

	if s <= k {
		// Every match must be returned anyway; the tree enumerates them
		// exactly without consulting the oracle.
		hi.stats.RecordExactPath()
		return hi.rank(q, hi.tree.RangeQuery(smin, smax), k), nil
	}

	m := len(hi.records)
	o := estimate.RequiredPoolSize(m, s, k, alpha)
	hi.orc.EnsureSearchBreadth(o + breadthHeadroom)
	candidates := hi.orc.Search(q, o)

	matched := make([]int, 0, len(candidates))
	for _, id := range candidates {
		// An id outside the record store means the oracle has skewed from
		// the other two structures; drop it rather than index out of range.
		if id < 0 || id >= len(hi.records) {
			continue
		}
		tag := hi.records[id].Tag
		if tag >= smin && tag <= smax {
			matched = append(matched, id)
		}
	}
	hi.stats.RecordCandidates(len(candidates), len(matched))

	return hi.rank(q, matched, k), nil
}

// rank orders ids by exact squared distance to q, ascending, breaking ties
// by ascending id, and returns the first k.
func (hi *HybridIndex) rank(q []float32, ids []int, k int) []int {
	type scored struct {
		id   int
		dist float32
	}
	ranked := make([]scored, 0, len(ids))
	for _, id := range ids {
		ranked = append(ranked, scored{id: id, dist: common.SquaredL2(q, hi.records[id].Vec)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].dist != ranked[j].dist {
			return ranked[i].dist < ranked[j].dist
		}
		return ranked[i].id < ranked[j].id
	})

	if k > len(ranked) {
		k = len(ranked)
	}
	result := make([]int, k)
	for i := 0; i < k; i++ {
		result[i] = ranked[i].id
	}
	return result
}

// Len returns the number of stored records.
func (hi *HybridIndex) Len() int {
	hi.mu.RLock()
	defer hi.mu.RUnlock()
	return len(hi.records)
}

// Dimension returns the fixed vector dimension, or 0 before the first
// insert.
func (hi *HybridIndex) Dimension() int {
	hi.mu.RLock()
	defer hi.mu.RUnlock()
	return hi.dim
}

func (hi *HybridIndex) backgroundPersist() {
	defer hi.wg.Done()
	buffer := make([]common.Record, 0, hi.conf.Storage.BatchSize)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	flush := func() {
		if len(buffer) == 0 {
			return
		}
		if err := hi.backend.BatchWrite(buffer); err != nil {
			log.Printf("[RangeANN] Batch write error: %v", err)
		}
		buffer = buffer[:0]
	}

	for {
		select {
		case rec := <-hi.writeCh:
			buffer = append(buffer, rec)
			if len(buffer) >= hi.conf.Storage.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-hi.closeCh:
			for {
				select {
				case rec := <-hi.writeCh:
					buffer = append(buffer, rec)
				default:
					flush()
					return
				}
			}
		}
	}
}

// Reset drops all records, in memory and on disk.
func (hi *HybridIndex) Reset() error {
	hi.mu.Lock()
	defer hi.mu.Unlock()

	tree, err := bptree.New[float32, int](hi.conf.Index.TreeOrder)
	if err != nil {
		return err
	}
	hi.tree = tree
	hi.records = nil
	hi.dim = 0
	hi.orc = hi.newOracle()

	if hi.backend != nil {
		return hi.backend.Truncate()
	}
	return nil
}

// Close flushes pending writes and releases the record log.
func (hi *HybridIndex) Close() {
	if hi.backend == nil {
		return
	}
	close(hi.closeCh)
	hi.wg.Wait()
	hi.backend.Close()
}

func (hi *HybridIndex) Stats() map[string]interface{} {
	hi.mu.RLock()
	recordCount := len(hi.records)
	dim := hi.dim
	treeSize := hi.tree.Len()
	oracleSize := hi.orc.Len()
	hi.mu.RUnlock()

	pending := 0
	if hi.writeCh != nil {
		pending = len(hi.writeCh)
	}

	return map[string]interface{}{
		"record_count":         recordCount,
		"dimension":            dim,
		"tree_size":            treeSize,
		"oracle_size":          oracleSize,
		"pending_writes":       pending,
		"query_insert_ratio":   hi.stats.GetReadWriteRatio(),
		"candidate_match_rate": hi.stats.GetMatchRate(),
		"mode":                 "Hybrid (B+Tree + HNSW)",
	}
}
