package vectorindex

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// The vector artifact is a SQLite file with one row per chunk position. The
// row order must match the chunk document 1:1; position is the join key.

// EncodeEmbedding encodes a float32 vector into a BLOB of little-endian
// IEEE 754 values. The dimension is derived from the BLOB size on decode.
func EncodeEmbedding(vec []float32) []byte {
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

// DecodeEmbedding decodes a BLOB produced by EncodeEmbedding.
func DecodeEmbedding(b []byte) ([]float32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}

// SaveFlat persists the index to a SQLite artifact at path. The database is
// written to a temp file and renamed into place so a crash mid-write never
// leaves a half-written artifact visible to readers.
func SaveFlat(path string, index *Flat) error {
	tmpPath := path + ".tmp"
	_ = os.Remove(tmpPath)

	db, err := sql.Open("sqlite3", tmpPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", tmpPath, err)
	}

	if err := writeVectors(db, index); err != nil {
		_ = db.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := db.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename %s to %s: %w", tmpPath, path, err)
	}
	return nil
}

func writeVectors(db *sql.DB, index *Flat) error {
	schema := `CREATE TABLE IF NOT EXISTS vectors (
		position INTEGER PRIMARY KEY,
		embedding BLOB NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create vectors table: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO vectors (position, embedding) VALUES (?, ?)")
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for pos, vec := range index.Vectors() {
		if _, err := stmt.Exec(pos, EncodeEmbedding(vec)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert vector %d: %w", pos, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit vectors: %w", err)
	}
	return nil
}

// LoadFlat reads a SQLite artifact back into a flat index, verifying that
// positions are contiguous from zero.
func LoadFlat(path string) (*Flat, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("vector artifact %s: %w", path, err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		_ = db.Close()
	}()

	rows, err := db.Query("SELECT position, embedding FROM vectors ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var index *Flat
	expected := 0
	for rows.Next() {
		var pos int
		var blob []byte
		if err := rows.Scan(&pos, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan vector row: %w", err)
		}
		if pos != expected {
			return nil, fmt.Errorf("vector artifact %s has gap at position %d", path, expected)
		}
		expected++

		vec, err := DecodeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("position %d: %w", pos, err)
		}
		if index == nil {
			if index, err = NewFlat(len(vec)); err != nil {
				return nil, err
			}
		}
		if err := index.Add([][]float32{vec}); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vectors: %w", err)
	}
	if index == nil {
		return nil, fmt.Errorf("vector artifact %s is empty", path)
	}
	return index, nil
}
