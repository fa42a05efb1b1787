// Package memory is an ephemeral vector store using brute-force cosine
// similarity. Nothing survives the process, so Exists only reports true for
// a store populated earlier in the same run.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"druglookup/internal/domain"
	"druglookup/internal/vectorstore"
)

var _ domain.VectorStore = (*Storage)(nil)

// Storage keeps documents and vectors in memory.
type Storage struct {
	mu        sync.RWMutex
	meta      domain.IndexMeta
	dimension int
	vectors   [][]float64
	docs      []domain.Document
}

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Exists(context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs) > 0, nil
}

func (s *Storage) Meta(context.Context) (domain.IndexMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta, nil
}

func (s *Storage) Init(_ context.Context, meta domain.IndexMeta) error {
	if meta.Dimension <= 0 {
		return errors.New("memory: invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta = meta
	s.dimension = meta.Dimension
	s.vectors = nil
	s.docs = nil
	return nil
}

func (s *Storage) Upsert(_ context.Context, docs []domain.Document, vectors [][]float64) error {
	if len(docs) != len(vectors) {
		return errors.New("memory: documents and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		if len(v) != s.dimension {
			return errors.New("memory: vector dimension mismatch")
		}
	}
	pos := make(map[string]int, len(s.docs))
	for i, d := range s.docs {
		pos[d.ID] = i
	}
	for i, d := range docs {
		if j, ok := pos[d.ID]; ok {
			s.docs[j] = d
			s.vectors[j] = vectors[i]
			continue
		}
		pos[d.ID] = len(s.docs)
		s.docs = append(s.docs, d)
		s.vectors = append(s.vectors, vectors[i])
	}
	return nil
}

func (s *Storage) Search(_ context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = 5
	}
	if len(s.docs) > 0 {
		if err := vectorstore.CheckDimension(s.dimension, len(vector)); err != nil {
			return nil, fmt.Errorf("memory: search: %w", err)
		}
	}
	results := make([]domain.SearchResult, len(s.docs))
	for i := range s.docs {
		results[i] = domain.SearchResult{Document: s.docs[i], Score: vectorstore.Cosine(s.vectors[i], vector)}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK], nil
}

func (s *Storage) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = nil
	s.docs = nil
	s.meta = domain.IndexMeta{}
	return nil
}
