// Package sqlite persists the vector index in a SQLite database file.
//
// The database lives at <dir>/<collection>.db. A marker file <dir>/index is
// written once an upsert commits; its presence is what Exists reports, so a
// build interrupted before that point is redone on the next run. The marker
// holds the IndexMeta given to Init as JSON.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite" // SQLite driver

	"druglookup/internal/domain"
	"druglookup/internal/vectorstore"
)

var _ domain.VectorStore = (*Storage)(nil)

// MarkerName is the file whose presence signals a completed build.
const MarkerName = "index"

const docsSchema = `
CREATE TABLE IF NOT EXISTS docs (
    id        TEXT PRIMARY KEY,
    content   TEXT NOT NULL,
    drug_name TEXT NOT NULL,
    embedding BLOB NOT NULL
);
`

// Storage is a SQLite-backed vector store with brute-force cosine search.
type Storage struct {
	db     *sql.DB
	dir    string
	path   string
	marker string
	meta   domain.IndexMeta
}

// Config locates the database.
type Config struct {
	Dir        string
	Collection string
}

// NewStorage opens (creating if needed) the database under cfg.Dir.
func NewStorage(cfg Config) (*Storage, error) {
	if cfg.Dir == "" {
		return nil, errors.New("sqlite: persist directory is required")
	}
	if cfg.Collection == "" {
		cfg.Collection = "documents"
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: creating persist directory: %w", err)
	}
	path := filepath.Join(cfg.Dir, cfg.Collection+".db")
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	if _, err := db.Exec(docsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: creating schema: %w", err)
	}
	return &Storage{
		db:     db,
		dir:    cfg.Dir,
		path:   path,
		marker: filepath.Join(cfg.Dir, MarkerName),
	}, nil
}

// Close closes the database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Storage) Path() string {
	return s.path
}

// Exists reports whether the persistence marker is present.
func (s *Storage) Exists(context.Context) (bool, error) {
	_, err := os.Stat(s.marker)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("sqlite: checking marker: %w", err)
}

// Meta reads the build metadata from the marker. A missing or unreadable
// marker yields the zero value.
func (s *Storage) Meta(context.Context) (domain.IndexMeta, error) {
	var meta domain.IndexMeta
	data, err := os.ReadFile(s.marker)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return meta, nil
		}
		return meta, fmt.Errorf("sqlite: reading marker: %w", err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return domain.IndexMeta{}, nil
	}
	return meta, nil
}

// Init drops any previous content and the marker, and records meta for the
// marker written by the next Upsert.
func (s *Storage) Init(ctx context.Context, meta domain.IndexMeta) error {
	if meta.Dimension <= 0 {
		return errors.New("sqlite: invalid dimension")
	}
	if err := s.Clear(ctx); err != nil {
		return err
	}
	s.meta = meta
	return nil
}

// Upsert stores documents and their vectors in one transaction, then writes
// the marker.
func (s *Storage) Upsert(ctx context.Context, docs []domain.Document, vectors [][]float64) error {
	if len(docs) != len(vectors) {
		return errors.New("sqlite: documents and vectors length mismatch")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO docs(id, content, drug_name, embedding) VALUES(?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET content = excluded.content,
			drug_name = excluded.drug_name, embedding = excluded.embedding`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i, d := range docs {
		if d.ID == "" {
			return errors.New("sqlite: document ID must be set")
		}
		if _, err := stmt.ExecContext(ctx, d.ID, d.Content, d.DrugName, vectorstore.EncodeEmbedding(vectors[i])); err != nil {
			return fmt.Errorf("sqlite: upsert %s: %w", d.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	data, err := json.Marshal(s.meta)
	if err != nil {
		return fmt.Errorf("sqlite: encoding marker: %w", err)
	}
	if err := os.WriteFile(s.marker, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("sqlite: writing marker: %w", err)
	}
	return nil
}

// Search scans every stored vector and returns the topK most similar.
func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, content, drug_name, embedding FROM docs ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query: %w", err)
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var d domain.Document
		var blob []byte
		if err := rows.Scan(&d.ID, &d.Content, &d.DrugName, &blob); err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}
		emb, err := vectorstore.DecodeEmbedding(blob)
		if err != nil {
			return nil, err
		}
		if err := vectorstore.CheckDimension(len(emb), len(vector)); err != nil {
			return nil, fmt.Errorf("sqlite: search: %w", err)
		}
		results = append(results, domain.SearchResult{Document: d, Score: vectorstore.Cosine(emb, vector)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: rows: %w", err)
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK], nil
}

// Clear deletes every document and the marker.
func (s *Storage) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM docs`); err != nil {
		return fmt.Errorf("sqlite: clear: %w", err)
	}
	if err := os.Remove(s.marker); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("sqlite: removing marker: %w", err)
	}
	return nil
}
