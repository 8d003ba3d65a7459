package network

import (
	"net"
	"slices"
	"testing"

	"rangeann/pkg/client"
	"rangeann/pkg/config"
	"rangeann/pkg/core"
	"rangeann/pkg/oracle"
)

func startTestServer(t *testing.T) (string, *core.HybridIndex) {
	t.Helper()

	cfg := &config.Config{
		Index: config.IndexConfig{
			TreeOrder:    8,
			DefaultAlpha: 0.01,
		},
	}
	index, err := core.NewHybridIndexWithOracle(cfg, func() oracle.Oracle { return oracle.NewFlat() })
	if err != nil {
		t.Fatalf("build index: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go NewTCPServer(index, cfg.Index.DefaultAlpha).Serve(ln)
	return ln.Addr().String(), index
}

func TestInsertQueryRoundTrip(t *testing.T) {
	addr, index := startTestServer(t)

	c, err := client.Dial(addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	vectors := []struct {
		vec []float32
		tag float32
	}{
		{[]float32{1, 0}, 10},
		{[]float32{2, 0}, 20},
		{[]float32{3, 0}, 30},
		{[]float32{4, 0}, 20},
	}
	for i, v := range vectors {
		id, err := c.Insert(v.vec, v.tag)
		if err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
		if id != i {
			t.Errorf("Insert %d: got id %d", i, id)
		}
	}
	if got := index.Len(); got != len(vectors) {
		t.Fatalf("server index holds %d records, want %d", got, len(vectors))
	}

	// Tags 20 appear twice (ids 1 and 3); nearest to (0,0) first.
	ids, err := c.Query([]float32{0, 0}, 5, 15, 25, 0.01)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !slices.Equal(ids, []int{1, 3}) {
		t.Errorf("Query: got %v, want [1 3]", ids)
	}

	// Empty result travels as an empty id list, not an error.
	ids, err = c.Query([]float32{0, 0}, 5, 99, 100, 0.01)
	if err != nil {
		t.Fatalf("Query empty range: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("Query empty range: got %v", ids)
	}
}

func TestServerReportsErrors(t *testing.T) {
	addr, _ := startTestServer(t)

	c, err := client.Dial(addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	if _, err := c.Insert(nil, 1); err == nil {
		t.Errorf("empty vector insert: expected error")
	}

	// The connection survives an application-level error.
	if _, err := c.Insert([]float32{1, 2}, 1); err != nil {
		t.Fatalf("Insert after error: %v", err)
	}
	if _, err := c.Query([]float32{1}, 3, 0, 10, 0.01); err == nil {
		t.Errorf("dimension mismatch query: expected error")
	}
}

func TestStatsOverTCP(t *testing.T) {
	addr, _ := startTestServer(t)

	c, err := client.Dial(addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	c.Insert([]float32{1, 2}, 5)

	stats, err := c.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	// JSON numbers decode as float64.
	if got, ok := stats["record_count"].(float64); !ok || got != 1 {
		t.Errorf("record_count: got %v", stats["record_count"])
	}
	if got, ok := stats["dimension"].(float64); !ok || got != 2 {
		t.Errorf("dimension: got %v", stats["dimension"])
	}
}
