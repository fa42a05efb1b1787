package domain

import "context"

// DrugRecord is one complete row of the local drug dataset.
// Ingredient fields hold a comma-joined list.
type DrugRecord struct {
	BrandName           string
	GenericName         string
	Manufacturer        string
	ApplicationNumber   string
	DosageForm          string
	ActiveIngredients   string
	InactiveIngredients string
}

// Document is the indexed form of a DrugRecord.
type Document struct {
	ID       string
	Content  string
	DrugName string
}

// SearchResult represents a matching document with a relevance score.
type SearchResult struct {
	Document Document
	Score    float64
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// IndexMeta records how a stored index was built. An index is only
// reusable by the same embedder over the same documents.
type IndexMeta struct {
	Embedder  string `json:"embedder"`
	Dimension int    `json:"dimension"`
	Digest    string `json:"digest"`
}

// VectorStore persists vectors and supports similarity search.
// Exists reports whether a previously built index is available; Meta
// returns what Init recorded for it, or the zero value when unknown.
type VectorStore interface {
	Exists(ctx context.Context) (bool, error)
	Meta(ctx context.Context) (IndexMeta, error)
	Init(ctx context.Context, meta IndexMeta) error
	Upsert(ctx context.Context, docs []Document, vectors [][]float64) error
	Search(ctx context.Context, vector []float64, topK int) ([]SearchResult, error)
	Clear(ctx context.Context) error
}

// ChatMessage is a single message exchanged with a chat model.
type ChatMessage struct {
	Role    string
	Content string
}

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatModel answers a conversation.
type ChatModel interface {
	Chat(ctx context.Context, messages []ChatMessage) (string, error)
}
