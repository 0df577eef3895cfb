package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/didi/gendry/builder"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/askdocs/askdocs/internal/config"
	"github.com/askdocs/askdocs/internal/model"
	"github.com/askdocs/askdocs/internal/pkg/dbutil"
	errs "github.com/askdocs/askdocs/internal/pkg/errors"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type postgresStore struct {
	db *sql.DB
}

func init() {
	Register("postgres", func(cfg config.StoreConfig) (Store, error) {
		return openPostgres(cfg.Postgres)
	})
}

func openPostgres(cfg config.PostgresConfig) (*postgresStore, error) {
	dsn := cfg.DSN
	if dsn == "" {
		sslmode := cfg.SSLMode
		if sslmode == "" {
			sslmode = "disable"
		}
		dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslmode)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping store: %v: %w", err, errs.ErrStoreUnavailable)
	}
	if err := applyMigrations(db); err != nil {
		return nil, err
	}
	return &postgresStore{db: db}, nil
}

func applyMigrations(db *sql.DB) error {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	for _, file := range files {
		content, err := fs.ReadFile(migrationsFS, "migrations/"+file)
		if err != nil {
			return err
		}
		for _, q := range strings.Split(string(content), ";") {
			q = strings.TrimSpace(q)
			if q == "" {
				continue
			}
			if _, err := db.Exec(q); err != nil {
				if strings.Contains(err.Error(), "already exists") {
					continue
				}
				return fmt.Errorf("execute query in %s: %w", file, err)
			}
		}
	}
	return nil
}

// storeErr tags backend failures so handlers can answer 503 instead of a
// generic 500. Row-level conditions are mapped before reaching it.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, errs.ErrStoreUnavailable)
}

func (s *postgresStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storeErr("ping", err)
	}
	return nil
}

func (s *postgresStore) Close() error {
	return s.db.Close()
}

func (s *postgresStore) ReplaceDocument(ctx context.Context, doc model.Document, chunks []model.Chunk) (int, error) {
	metaJSON, err := json.Marshal(orEmpty(doc.Metadata))
	if err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storeErr("begin replace", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, doc.ID)
	if err != nil {
		return 0, storeErr("delete prior chunks", err)
	}
	removed, _ := res.RowsAffected()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, content, metadata, ctime, mtime)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			mtime = EXCLUDED.mtime
	`, doc.ID, doc.Content, metaJSON, doc.Ctime, doc.Mtime)
	if err != nil {
		return 0, storeErr("upsert document", err)
	}

	for _, chunk := range chunks {
		chunkMeta, err := json.Marshal(orEmpty(chunk.Metadata))
		if err != nil {
			return 0, err
		}
		var embedding interface{}
		if len(chunk.Embedding) > 0 {
			embedding = pgvector.NewVector(chunk.Embedding)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO chunks (id, document_id, chunk_index, content, metadata, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, chunk.ID, chunk.DocumentID, chunk.ChunkIndex, chunk.Content, chunkMeta, embedding)
		if err != nil {
			return 0, storeErr("insert chunk", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, storeErr("commit replace", err)
	}
	return int(removed), nil
}

func (s *postgresStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	where := map[string]interface{}{"id": id}
	sqlStr, args, err := builder.BuildSelect("documents", where, []string{"id", "content", "metadata", "ctime", "mtime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	row := s.db.QueryRowContext(ctx, sqlStr, args...)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document %q: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, storeErr("get document", err)
	}
	return doc, nil
}

func (s *postgresStore) DeleteDocument(ctx context.Context, id string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storeErr("begin delete", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, id)
	if err != nil {
		return 0, storeErr("delete chunks", err)
	}
	removed, _ := res.RowsAffected()

	docRes, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return 0, storeErr("delete document", err)
	}
	if affected, _ := docRes.RowsAffected(); affected == 0 {
		return 0, fmt.Errorf("document %q: %w", id, errs.ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return 0, storeErr("commit delete", err)
	}
	return int(removed), nil
}

func (s *postgresStore) ListDocuments(ctx context.Context, filters model.Metadata, limit int) ([]model.Document, int, error) {
	filterJSON, err := json.Marshal(orEmpty(filters))
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE metadata @> $1`, filterJSON,
	).Scan(&total); err != nil {
		return nil, 0, storeErr("count documents", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, metadata, ctime, mtime
		FROM documents
		WHERE metadata @> $1
		ORDER BY seq ASC
		LIMIT $2
	`, filterJSON, limit)
	if err != nil {
		return nil, 0, storeErr("list documents", err)
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, 0, storeErr("scan document", err)
		}
		docs = append(docs, *doc)
	}
	return docs, total, rows.Err()
}

func (s *postgresStore) CountDocuments(ctx context.Context) (int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&total); err != nil {
		return 0, storeErr("count documents", err)
	}
	return total, nil
}

func (s *postgresStore) SemanticSearch(ctx context.Context, embedding []float32, topK int, filters model.Metadata) ([]ScoredChunk, error) {
	filterJSON, err := json.Marshal(orEmpty(filters))
	if err != nil {
		return nil, err
	}
	// Cosine distance is in [0,2]; 1-dist/2 matches CosineScore's mapping.
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, chunk_index, content, metadata, seq,
		       GREATEST(0::float8, LEAST(1::float8, 1 - (embedding <=> $1) / 2)) AS score
		FROM chunks
		WHERE embedding IS NOT NULL AND metadata @> $2
		ORDER BY score DESC, seq ASC
		LIMIT $3
	`, pgvector.NewVector(embedding), filterJSON, topK)
	if err != nil {
		return nil, storeErr("semantic search", err)
	}
	defer rows.Close()
	return scanHits(rows)
}

func (s *postgresStore) KeywordSearch(ctx context.Context, query string, topK int, filters model.Metadata) ([]ScoredChunk, error) {
	filterJSON, err := json.Marshal(orEmpty(filters))
	if err != nil {
		return nil, err
	}
	// ts_rank is unbounded; r/(r+1) squashes it into [0,1).
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, chunk_index, content, metadata, seq,
		       r / (r + 1) AS score
		FROM (
			SELECT id, document_id, chunk_index, content, metadata, seq,
			       ts_rank(to_tsvector('simple', content), plainto_tsquery('simple', $1)) AS r
			FROM chunks
			WHERE metadata @> $2
			  AND to_tsvector('simple', content) @@ plainto_tsquery('simple', $1)
		) ranked
		ORDER BY score DESC, seq ASC
		LIMIT $3
	`, query, filterJSON, topK)
	if err != nil {
		return nil, storeErr("keyword search", err)
	}
	defer rows.Close()
	return scanHits(rows)
}

func (s *postgresStore) ListUnembeddedChunks(ctx context.Context, limit int) ([]model.Chunk, error) {
	where := map[string]interface{}{
		"_custom_pending": builder.Custom("embedding IS NULL"),
		"_orderby":        "seq ASC",
		"_limit":          []uint{0, uint(limit)},
	}
	sqlStr, args, err := builder.BuildSelect("chunks", where, []string{"id", "document_id", "chunk_index", "content", "metadata", "seq"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, storeErr("list pending chunks", err)
	}
	defer rows.Close()

	var out []model.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows, nil)
		if err != nil {
			return nil, storeErr("scan chunk", err)
		}
		out = append(out, chunk)
	}
	return out, rows.Err()
}

func (s *postgresStore) UpdateChunkEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE chunks SET embedding = $1 WHERE id = $2`,
		pgvector.NewVector(embedding), chunkID)
	if err != nil {
		return storeErr("update embedding", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("chunk %q: %w", chunkID, errs.ErrNotFound)
	}
	return nil
}

// Persistent embedding cache (embedcache.CacheStore).

func (s *postgresStore) GetCachedEmbedding(ctx context.Context, modelName, taskType, contentHash string) ([]float32, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT embedding FROM embedding_cache
		WHERE model_name = $1 AND task_type = $2 AND content_hash = $3
	`, modelName, taskType, contentHash)
	var embedding pgvector.Vector
	if err := row.Scan(&embedding); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, storeErr("get cached embedding", err)
	}
	return embedding.Slice(), true, nil
}

func (s *postgresStore) SaveCachedEmbedding(ctx context.Context, modelName, taskType, contentHash string, embedding []float32, ctime int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embedding_cache (model_name, task_type, content_hash, embedding, ctime)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (model_name, task_type, content_hash) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			ctime = EXCLUDED.ctime
	`, modelName, taskType, contentHash, pgvector.NewVector(embedding), ctime)
	if err != nil {
		return storeErr("save cached embedding", err)
	}
	return nil
}

func (s *postgresStore) DeleteCachedEmbeddingsBefore(ctx context.Context, cutoff int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM embedding_cache WHERE ctime < $1`, cutoff)
	if err != nil {
		return 0, storeErr("cleanup embedding cache", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var doc model.Document
	var metaJSON []byte
	if err := row.Scan(&doc.ID, &doc.Content, &metaJSON, &doc.Ctime, &doc.Mtime); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(metaJSON, &doc.Metadata); err != nil {
		return nil, err
	}
	return &doc, nil
}

func scanChunk(row rowScanner, score *float64) (model.Chunk, error) {
	var chunk model.Chunk
	var metaJSON []byte
	dest := []interface{}{&chunk.ID, &chunk.DocumentID, &chunk.ChunkIndex, &chunk.Content, &metaJSON, &chunk.Seq}
	if score != nil {
		dest = append(dest, score)
	}
	if err := row.Scan(dest...); err != nil {
		return model.Chunk{}, err
	}
	if err := json.Unmarshal(metaJSON, &chunk.Metadata); err != nil {
		return model.Chunk{}, err
	}
	return chunk, nil
}

func scanHits(rows *sql.Rows) ([]ScoredChunk, error) {
	var hits []ScoredChunk
	for rows.Next() {
		var score float64
		chunk, err := scanChunk(rows, &score)
		if err != nil {
			return nil, storeErr("scan hit", err)
		}
		hits = append(hits, ScoredChunk{Chunk: chunk, Score: score})
	}
	return hits, rows.Err()
}

func orEmpty(m model.Metadata) model.Metadata {
	if m == nil {
		return model.Metadata{}
	}
	return m
}
