// Package index builds or reopens the vector index over the local documents
// and answers similarity lookups against it.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"

	"druglookup/internal/domain"
)

// Index is a handle over a populated vector store.
type Index struct {
	embedder domain.Embedder
	store    domain.VectorStore
	docs     []domain.Document
	logger   *slog.Logger
}

// Open returns an Index over docs. An existing persisted index is reused
// when it was built by the same embedder over the same documents; otherwise
// every document is embedded and upserted. Embedding failures are returned
// unchanged in the chain of wrapped errors.
func Open(ctx context.Context, embedder domain.Embedder, store domain.VectorStore, docs []domain.Document, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ix := &Index{embedder: embedder, store: store, docs: docs, logger: logger}

	corpus := make([]string, len(docs))
	for i, d := range docs {
		corpus[i] = d.Content
	}
	if len(corpus) > 0 {
		if err := embedder.Prepare(corpus); err != nil {
			return nil, fmt.Errorf("index: prepare embedder: %w", err)
		}
	}
	want := domain.IndexMeta{Embedder: embedder.Name(), Dimension: embedder.Dimension(), Digest: Digest(docs)}

	exists, err := store.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("index: check store: %w", err)
	}
	if exists {
		have, err := store.Meta(ctx)
		if err != nil {
			return nil, fmt.Errorf("index: read store meta: %w", err)
		}
		reason := staleReason(have, want)
		if reason == "" {
			logger.Info("loading existing vector index")
			return ix, nil
		}
		logger.Info("rebuilding vector index", "reason", reason)
	}
	if len(docs) == 0 {
		return nil, errors.New("index: no documents to index")
	}

	logger.Info("creating new vector index", "documents", len(docs), "embedder", embedder.Name())
	vectors := make([][]float64, len(docs))
	for i := range docs {
		vec, err := embedder.Embed(ctx, docs[i].Content)
		if err != nil {
			return nil, fmt.Errorf("index: embed %q: %w", docs[i].DrugName, err)
		}
		vectors[i] = vec
	}
	want.Dimension = len(vectors[0])
	if err := store.Init(ctx, want); err != nil {
		return nil, fmt.Errorf("index: init store: %w", err)
	}
	if err := store.Upsert(ctx, docs, vectors); err != nil {
		return nil, fmt.Errorf("index: upsert: %w", err)
	}
	return ix, nil
}

// staleReason explains why an index built as have cannot serve want, or
// returns "" when it can. A want dimension of 0 means the embedder learns
// it on first use.
func staleReason(have, want domain.IndexMeta) string {
	switch {
	case have.Embedder != want.Embedder:
		return fmt.Sprintf("embedder %q, want %q", have.Embedder, want.Embedder)
	case have.Digest != want.Digest:
		return "documents changed"
	case have.Dimension <= 0:
		return "dimension unknown"
	case want.Dimension > 0 && have.Dimension != want.Dimension:
		return fmt.Sprintf("dimension %d, want %d", have.Dimension, want.Dimension)
	}
	return ""
}

// Digest fingerprints the documents that make up an index.
func Digest(docs []domain.Document) string {
	h := sha256.New()
	for _, d := range docs {
		fmt.Fprintf(h, "%s\x00%s\x00%s\x00", d.ID, d.DrugName, d.Content)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Retrieve returns up to k documents most similar to query. When the query
// embeds to the zero vector, or nothing scores above zero, documents are
// ranked by token overlap instead.
func (ix *Index) Retrieve(ctx context.Context, query string, k int) ([]domain.Document, error) {
	vec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("index: embed query: %w", err)
	}
	if isZero(vec) {
		return ix.lexicalSearch(query, k), nil
	}
	res, err := ix.store.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	allZero := true
	for _, r := range res {
		if r.Score > 1e-9 {
			allZero = false
			break
		}
	}
	if allZero {
		return ix.lexicalSearch(query, k), nil
	}
	out := make([]domain.Document, len(res))
	for i, r := range res {
		out[i] = r.Document
	}
	return out, nil
}

func isZero(vec []float64) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

var wordRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

// lexicalSearch ranks the loaded documents by the Ochiai coefficient between
// query tokens and the tokens of the drug name plus content.
func (ix *Index) lexicalSearch(query string, k int) []domain.Document {
	qset := tokenSet(query)
	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(ix.docs))
	for i, d := range ix.docs {
		scores[i] = pair{i, ochiai(qset, tokenSet(d.DrugName+" "+d.Content))}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if k <= 0 {
		k = 5
	}
	if k > len(scores) {
		k = len(scores)
	}
	out := make([]domain.Document, 0, k)
	for _, p := range scores[:k] {
		out = append(out, ix.docs[p.idx])
	}
	return out
}

func tokenSet(s string) map[string]struct{} {
	tokens := wordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// ochiai returns |A∩B| / sqrt(|A||B|).
func ochiai(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(a))*float64(len(b)))
}
