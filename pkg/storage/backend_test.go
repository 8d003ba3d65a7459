package storage

import (
	"path/filepath"
	"slices"
	"testing"

	"rangeann/pkg/common"
)

func newTestBackend(t *testing.T) *SQLiteBackend {
	t.Helper()
	b := NewSQLiteBackend(filepath.Join(t.TempDir(), "records.db"))
	t.Cleanup(b.Close)
	return b
}

func TestBatchWriteAndLoadAll(t *testing.T) {
	b := newTestBackend(t)

	records := []common.Record{
		{ID: 0, Tag: 1.5, Vec: []float32{1, 2, 3}},
		{ID: 1, Tag: -4, Vec: []float32{0.5}},
		{ID: 2, Tag: 100, Vec: []float32{7, 8, 9, 10}},
	}
	if err := b.BatchWrite(records); err != nil {
		t.Fatalf("BatchWrite: %v", err)
	}

	got, err := b.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(got) != len(records) {
		t.Fatalf("LoadAll returned %d records, want %d", len(got), len(records))
	}
	for i, rec := range got {
		want := records[i]
		if rec.ID != want.ID || rec.Tag != want.Tag || !slices.Equal(rec.Vec, want.Vec) {
			t.Errorf("record %d: got %+v, want %+v", i, rec, want)
		}
	}
}

func TestLoadAllOrdersByID(t *testing.T) {
	b := newTestBackend(t)

	// Written out of order, read back in id order.
	records := []common.Record{
		{ID: 2, Tag: 2, Vec: []float32{2}},
		{ID: 0, Tag: 0, Vec: []float32{0}},
		{ID: 1, Tag: 1, Vec: []float32{1}},
	}
	if err := b.BatchWrite(records); err != nil {
		t.Fatalf("BatchWrite: %v", err)
	}

	got, err := b.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	for i, rec := range got {
		if rec.ID != i {
			t.Fatalf("position %d holds id %d", i, rec.ID)
		}
	}
}

func TestBatchWriteIsIdempotentPerID(t *testing.T) {
	b := newTestBackend(t)

	if err := b.BatchWrite([]common.Record{{ID: 0, Tag: 1, Vec: []float32{1}}}); err != nil {
		t.Fatalf("BatchWrite: %v", err)
	}
	// A replayed write of the same id must not duplicate the row.
	if err := b.BatchWrite([]common.Record{{ID: 0, Tag: 1, Vec: []float32{1}}}); err != nil {
		t.Fatalf("BatchWrite replay: %v", err)
	}

	got, err := b.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record after replayed write, got %d", len(got))
	}
}

func TestTruncate(t *testing.T) {
	b := newTestBackend(t)

	b.BatchWrite([]common.Record{{ID: 0, Tag: 1, Vec: []float32{1}}})
	if err := b.Truncate(); err != nil {
		t.Fatalf("Truncate: %v", err)
	}

	got, err := b.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty store after truncate, got %d records", len(got))
	}
}

func TestBatchWriteEmpty(t *testing.T) {
	b := newTestBackend(t)
	if err := b.BatchWrite(nil); err != nil {
		t.Fatalf("BatchWrite(nil): %v", err)
	}
}

func TestVectorCodec(t *testing.T) {
	cases := [][]float32{
		nil,
		{0},
		{1.5, -2.25, 3.75},
		{-0, 1e-30, 1e30},
	}
	for _, vec := range cases {
		got := DecodeVector(EncodeVector(vec))
		if len(got) != len(vec) {
			t.Errorf("roundtrip length: got %d, want %d", len(got), len(vec))
			continue
		}
		for i := range vec {
			if got[i] != vec[i] {
				t.Errorf("roundtrip %v: position %d got %g", vec, i, got[i])
			}
		}
	}

	// Trailing bytes short of a full float32 are dropped.
	if got := DecodeVector([]byte{0, 0, 128, 63, 0, 0}); len(got) != 1 || got[0] != 1 {
		t.Errorf("partial trailing bytes: got %v", got)
	}
}
