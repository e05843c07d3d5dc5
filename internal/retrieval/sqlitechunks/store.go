// Package sqlitechunks implements the retrieval engine's chunk/FTS store
// (C8's external collaborator) against a pure-Go SQLite database: a
// `chunks` table for dense-vector brute-force search and an FTS5 virtual
// table ranked by bm25() for lexical search. It follows patterns from
// clawdbot's internal/memory/backend/sqlitevec and term-llm's
// internal/session SQLite store.
package sqlitechunks

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/haasonsaas/contextcore/internal/retrieval"
	_ "modernc.org/sqlite" // pure-Go SQLite driver, registers as "sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	id TEXT PRIMARY KEY,
	path TEXT NOT NULL,
	start_line INTEGER NOT NULL,
	end_line INTEGER NOT NULL,
	text TEXT NOT NULL,
	embedding TEXT,
	source TEXT,
	updated_at INTEGER,
	model TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_model ON chunks(model);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);

CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
	text,
	content='chunks',
	content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS chunks_ai AFTER INSERT ON chunks BEGIN
	INSERT INTO chunks_fts(rowid, text) VALUES (new.rowid, new.text);
END;

CREATE TRIGGER IF NOT EXISTS chunks_ad AFTER DELETE ON chunks BEGIN
	INSERT INTO chunks_fts(chunks_fts, rowid, text) VALUES ('delete', old.rowid, old.text);
END;

CREATE TRIGGER IF NOT EXISTS chunks_au AFTER UPDATE ON chunks BEGIN
	INSERT INTO chunks_fts(chunks_fts, rowid, text) VALUES ('delete', old.rowid, old.text);
	INSERT INTO chunks_fts(rowid, text) VALUES (new.rowid, new.text);
END;
`

// Store is the sqlite-backed retrieval.ChunkStore implementation.
type Store struct {
	db *sql.DB
}

var _ retrieval.ChunkStore = (*Store)(nil)

// Open opens (creating if necessary) a chunk store at path. Pass ":memory:"
// for an ephemeral store.
func Open(path string) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitechunks: open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitechunks: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// IndexChunk inserts or replaces a chunk row. A blank ID is assigned a new
// UUID.
func (s *Store) IndexChunk(ctx context.Context, c retrieval.Chunk) (retrieval.Chunk, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	embedding, err := json.Marshal(c.Embedding)
	if err != nil {
		return c, fmt.Errorf("sqlitechunks: marshal embedding: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO chunks (id, path, start_line, end_line, text, embedding, source, updated_at, model)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Path, c.StartLine, c.EndLine, c.Text, string(embedding), c.Source, c.UpdatedAtMillis, c.Model,
	)
	if err != nil {
		return c, fmt.Errorf("sqlitechunks: insert chunk: %w: %w", retrieval.ErrStoreError, err)
	}
	return c, nil
}

// ensureVectorReady reports whether an accelerated vector index (a
// sqlite-vec-style virtual table backed by the C vec0 extension) is
// available. modernc.org/sqlite is a pure-Go driver and cannot load C
// extensions, so this always returns false and SearchVector always takes
// the brute-force cosine fallback branch.
func (s *Store) ensureVectorReady(dimension int) bool {
	return false
}

// SearchVector implements C8's dense-vector search primitive.
func (s *Store) SearchVector(ctx context.Context, queryVec []float32, limit int, filter retrieval.SearchFilter, cfg retrieval.RecencyConfig, nowMillis int64) ([]retrieval.VectorResult, error) {
	if limit <= 0 || len(queryVec) == 0 {
		return nil, nil
	}

	if s.ensureVectorReady(len(queryVec)) {
		// Reserved for a future cgo build with the vec0 extension loaded:
		// ORDER BY vec_distance_cosine(embedding, ?) ASC LIMIT ?.
		panic("sqlitechunks: accelerated vector path not implemented under the pure-Go driver")
	}

	query := `SELECT id, path, start_line, end_line, text, source, updated_at, embedding FROM chunks WHERE model = ?`
	args := []any{filter.Model}
	if filter.Source != "" {
		query += " AND source = ?"
		args = append(args, filter.Source)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("sqlitechunks: search cancelled: %w", retrieval.ErrCancelled)
		}
		return nil, fmt.Errorf("sqlitechunks: query chunks: %w: %w", retrieval.ErrStoreError, err)
	}
	defer rows.Close()

	var results []retrieval.VectorResult
	for rows.Next() {
		var c retrieval.Chunk
		var embeddingJSON string
		var updatedAt sql.NullInt64
		if err := rows.Scan(&c.ID, &c.Path, &c.StartLine, &c.EndLine, &c.Text, &c.Source, &updatedAt, &embeddingJSON); err != nil {
			return nil, fmt.Errorf("sqlitechunks: scan chunk: %w: %w", retrieval.ErrStoreError, err)
		}
		if updatedAt.Valid {
			v := updatedAt.Int64
			c.UpdatedAtMillis = &v
		}
		var embedding []float32
		if embeddingJSON != "" {
			if err := json.Unmarshal([]byte(embeddingJSON), &embedding); err != nil {
				return nil, fmt.Errorf("sqlitechunks: unmarshal embedding: %w: %w", retrieval.ErrStoreError, err)
			}
		}

		score := cosineSimilarity(queryVec, embedding)
		if math.IsNaN(score) || math.IsInf(score, 0) {
			continue
		}
		results = append(results, retrieval.VectorResult{Chunk: c, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlitechunks: iterate chunks: %w: %w", retrieval.ErrStoreError, err)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}

	results = retrieval.ApplyRecencyPenaltyVector(results, cfg, nowMillis)

	return results, nil
}

// SearchKeyword implements C8's sparse lexical search primitive.
func (s *Store) SearchKeyword(ctx context.Context, query string, limit int, filter retrieval.SearchFilter) ([]retrieval.KeywordResult, error) {
	if limit <= 0 {
		return nil, nil
	}
	ftsQuery, ok := retrieval.BuildFtsQuery(query)
	if !ok {
		return nil, nil
	}

	sqlQuery := `
		SELECT c.id, c.path, c.start_line, c.end_line, c.text, c.source, c.updated_at, bm25(chunks_fts) AS rank
		FROM chunks_fts f
		JOIN chunks c ON c.rowid = f.rowid
		WHERE chunks_fts MATCH ? AND c.model = ?`
	args := []any{ftsQuery, filter.Model}
	if filter.Source != "" {
		sqlQuery += " AND c.source = ?"
		args = append(args, filter.Source)
	}
	sqlQuery += " ORDER BY rank ASC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("sqlitechunks: search cancelled: %w", retrieval.ErrCancelled)
		}
		return nil, fmt.Errorf("sqlitechunks: fts query: %w: %w", retrieval.ErrStoreError, err)
	}
	defer rows.Close()

	var results []retrieval.KeywordResult
	for rows.Next() {
		var c retrieval.Chunk
		var updatedAt sql.NullInt64
		var rank float64
		if err := rows.Scan(&c.ID, &c.Path, &c.StartLine, &c.EndLine, &c.Text, &c.Source, &updatedAt, &rank); err != nil {
			return nil, fmt.Errorf("sqlitechunks: scan fts row: %w: %w", retrieval.ErrStoreError, err)
		}
		if updatedAt.Valid {
			v := updatedAt.Int64
			c.UpdatedAtMillis = &v
		}
		results = append(results, retrieval.KeywordResult{Chunk: c, TextScore: retrieval.Bm25RankToScore(rank)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlitechunks: iterate fts rows: %w: %w", retrieval.ErrStoreError, err)
	}
	return results, nil
}

// cosineSimilarity computes the cosine similarity between two equal-length
// vectors, returning 0 for mismatched or empty input.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		af, bf := float64(a[i]), float64(b[i])
		dot += af * bf
		normA += af * af
		normB += bf * bf
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
