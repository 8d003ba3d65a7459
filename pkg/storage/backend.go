package storage

import (
	"database/sql"
	"encoding/binary"
	"log"
	"math"
	"sync"

	"rangeann/pkg/common"

	_ "modernc.org/sqlite"
)

// Backend persists the append-only record store so the tree and the oracle
// can be rebuilt on startup. Records are immutable once written.
type Backend interface {
	BatchWrite(records []common.Record) error
	LoadAll() ([]common.Record, error)
	Truncate() error
	Close()
}

type SQLiteBackend struct {
	db *sql.DB
	mu sync.Mutex
}

func NewSQLiteBackend(path string) *SQLiteBackend {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		log.Fatalf("Failed to open SQLite: %v", err)
	}

	query := `
	CREATE TABLE IF NOT EXISTS records (
		id INTEGER PRIMARY KEY,
		tag REAL,
		vec BLOB
	);`
	if _, err := db.Exec(query); err != nil {
		log.Fatalf("Failed to init table: %v", err)
	}

	_, err = db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
	`)
	if err != nil {
		log.Printf("Warning: Failed to set PRAGMA: %v", err)
	}

	return &SQLiteBackend{db: db}
}

func (s *SQLiteBackend) BatchWrite(records []common.Record) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO records (id, tag, vec) VALUES (?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.Exec(int64(rec.ID), float64(rec.Tag), EncodeVector(rec.Vec)); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// LoadAll returns every persisted record in id order. IDs are assigned
// densely at insert time, so replaying in order reproduces the exact
// record-store layout.
func (s *SQLiteBackend) LoadAll() ([]common.Record, error) {
	rows, err := s.db.Query("SELECT id, tag, vec FROM records ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []common.Record
	for rows.Next() {
		var id int64
		var tag float64
		var blob []byte
		if err := rows.Scan(&id, &tag, &blob); err != nil {
			return nil, err
		}
		records = append(records, common.Record{
			ID:  int(id),
			Tag: float32(tag),
			Vec: DecodeVector(blob),
		})
	}
	return records, rows.Err()
}

func (s *SQLiteBackend) Truncate() error {
	_, err := s.db.Exec("DELETE FROM records")
	return err
}

func (s *SQLiteBackend) Close() {
	s.db.Close()
}

// EncodeVector packs a vector as little-endian float32s.
func EncodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// DecodeVector is the inverse of EncodeVector. Trailing bytes that do not
// fill a float32 are ignored.
func DecodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec
}
