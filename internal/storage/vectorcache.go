package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// VectorCache stores embedding vectors in SQLite, keyed by a content hash.
type VectorCache struct {
	db *sql.DB
}

// ModelCount is the number of cached vectors for one model.
type ModelCount struct {
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
	Vectors    int    `json:"vectors"`
}

// OpenVectorCache opens or creates the cache database at path.
func OpenVectorCache(path string) (*VectorCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createVectorSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &VectorCache{db: db}, nil
}

// Close closes the database connection.
func (c *VectorCache) Close() error {
	return c.db.Close()
}

func createVectorSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS embeddings (
			key TEXT PRIMARY KEY,
			model TEXT NOT NULL,
			dims INTEGER NOT NULL,
			vector BLOB NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_embeddings_model ON embeddings(model);
	`

	_, err := db.Exec(schema)
	return err
}

// Get returns the vector stored under key. The bool is false when nothing is stored.
func (c *VectorCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	var blob []byte
	var dims int
	err := c.db.QueryRowContext(ctx, "SELECT dims, vector FROM embeddings WHERE key = ?", key).Scan(&dims, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading vector: %w", err)
	}

	vec, err := decodeVector(blob)
	if err != nil {
		return nil, false, err
	}
	if len(vec) != dims {
		return nil, false, fmt.Errorf("corrupt vector for %s: %d values, want %d", key, len(vec), dims)
	}
	return vec, true, nil
}

// Put stores vec under key, replacing any previous value.
func (c *VectorCache) Put(ctx context.Context, key, model string, vec []float32) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO embeddings (key, model, dims, vector, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, key, model, len(vec), encodeVector(vec), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("storing vector: %w", err)
	}
	return nil
}

// Count returns the total number of cached vectors.
func (c *VectorCache) Count(ctx context.Context) (int, error) {
	var count int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting vectors: %w", err)
	}
	return count, nil
}

// CountByModel returns vector counts grouped by model, ordered by model name.
func (c *VectorCache) CountByModel(ctx context.Context) ([]ModelCount, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT model, MAX(dims), COUNT(*) FROM embeddings GROUP BY model ORDER BY model
	`)
	if err != nil {
		return nil, fmt.Errorf("counting vectors: %w", err)
	}
	defer rows.Close()

	counts := []ModelCount{}
	for rows.Next() {
		var mc ModelCount
		if err := rows.Scan(&mc.Model, &mc.Dimensions, &mc.Vectors); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		counts = append(counts, mc)
	}
	return counts, rows.Err()
}

// Clear removes every cached vector and returns how many were removed.
func (c *VectorCache) Clear(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, "DELETE FROM embeddings")
	if err != nil {
		return 0, fmt.Errorf("clearing vectors: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clearing vectors: %w", err)
	}
	return n, nil
}

// encodeVector packs vec as little-endian float32 values.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("corrupt vector blob of %d bytes", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec, nil
}
