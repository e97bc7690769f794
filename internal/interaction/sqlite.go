package interaction

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements Repository on an embedded SQLite file.
// Writes are append-only; reads and the retention sweep run concurrently
// under WAL mode.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite opens or creates the interaction log at dbPath.
func OpenSQLite(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	repo := &SQLiteRepository{db: db}
	if err := repo.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS interactions (
			query_id   TEXT PRIMARY KEY,
			query      TEXT NOT NULL,
			response   TEXT NOT NULL,
			embedding  BLOB,
			created_at TEXT NOT NULL,
			metadata   TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_created ON interactions(created_at);`,
	}

	for _, query := range queries {
		if _, err := r.db.Exec(query); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) Insert(ctx context.Context, rec Record) error {
	vecBuf := new(bytes.Buffer)
	if err := binary.Write(vecBuf, binary.LittleEndian, rec.Embedding); err != nil {
		return fmt.Errorf("failed to encode embedding: %w", err)
	}

	metaJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `INSERT INTO interactions (query_id, query, response, embedding, created_at, metadata) VALUES (?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		rec.QueryID, rec.Query, rec.Response, vecBuf.Bytes(),
		rec.Timestamp.UTC().Format(time.RFC3339Nano), string(metaJSON))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// SearchBySimilarity loads candidates inside the retention window and
// ranks them by cosine similarity in Go. Fine for a single-agent log;
// the embedded store has no native vector ops.
func (r *SQLiteRepository) SearchBySimilarity(ctx context.Context, vector []float32, limit int, maxAge time.Duration) ([]Scored, error) {
	if limit <= 0 {
		return nil, nil
	}

	cutoff := time.Now().UTC().Add(-maxAge).Format(time.RFC3339Nano)
	rows, err := r.db.QueryContext(ctx,
		`SELECT query_id, query, response, embedding, created_at, metadata
		 FROM interactions WHERE created_at >= ?`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var scored []Scored
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			continue
		}
		scored = append(scored, Scored{
			Record:     rec,
			Similarity: cosineSimilarity(vector, rec.Embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (r *SQLiteRepository) PruneOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-age).Format(time.RFC3339Nano)
	res, err := r.db.ExecContext(ctx, `DELETE FROM interactions WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM interactions`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var rec Record
	var vecBlob []byte
	var createdAt, metaJSON string

	if err := rows.Scan(&rec.QueryID, &rec.Query, &rec.Response, &vecBlob, &createdAt, &metaJSON); err != nil {
		return Record{}, err
	}

	rec.Embedding = make([]float32, len(vecBlob)/4)
	if err := binary.Read(bytes.NewReader(vecBlob), binary.LittleEndian, &rec.Embedding); err != nil {
		return Record{}, err
	}

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Record{}, err
	}
	rec.Timestamp = ts

	if metaJSON != "" {
		if err := json.Unmarshal([]byte(metaJSON), &rec.Metadata); err != nil {
			return Record{}, err
		}
	}
	return rec, nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(magA) * math.Sqrt(magB)))
}
