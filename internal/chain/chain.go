// Package chain implements a conversational retrieval chain: an optional
// question-condensing step over the chat history, top-k retrieval and an
// answer generated from the retrieved context.
package chain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"druglookup/internal/domain"
)

const condensePrompt = `Given the following conversation and a follow up question, rephrase the follow up question to be a standalone question, in its original language.

Chat History:
%s
Follow Up Input: %s
Standalone question:`

const answerPrompt = `Use the following pieces of context to answer the user's question.
If you don't know the answer, just say that you don't know, don't try to make up an answer.
----------------
%s`

// Retriever returns the k documents most relevant to query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]domain.Document, error)
}

// Config configures a Chain.
type Config struct {
	// TopK is the number of documents retrieved per question (default 1).
	TopK int

	// Memory holds past exchanges. A window of DefaultWindow is created when nil.
	Memory *Memory
}

// Result is the output of one Invoke.
type Result struct {
	Answer          string
	Question        string
	SourceDocuments []domain.Document
}

// Chain answers questions from retrieved documents.
type Chain struct {
	model     domain.ChatModel
	retriever Retriever
	memory    *Memory
	topK      int
	logger    *slog.Logger
}

// New builds a chain over model and retriever.
func New(model domain.ChatModel, retriever Retriever, cfg Config, logger *slog.Logger) *Chain {
	if cfg.TopK <= 0 {
		cfg.TopK = 1
	}
	if cfg.Memory == nil {
		cfg.Memory = NewMemory(DefaultWindow)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		model:     model,
		retriever: retriever,
		memory:    cfg.Memory,
		topK:      cfg.TopK,
		logger:    logger,
	}
}

// Memory returns the chain's conversation memory.
func (c *Chain) Memory() *Memory { return c.memory }

type invokeOptions struct {
	history    []Turn
	overridden bool
}

// Option modifies a single Invoke call.
type Option func(*invokeOptions)

// WithHistory replaces the memory's turns with history for one call.
// WithHistory(nil) runs the call with an empty history.
func WithHistory(history []Turn) Option {
	return func(o *invokeOptions) {
		o.history = history
		o.overridden = true
	}
}

// Invoke runs the chain for question. Chat and retrieval errors are returned
// wrapped; the exchange is saved to memory only on success.
func (c *Chain) Invoke(ctx context.Context, question string, opts ...Option) (Result, error) {
	var o invokeOptions
	for _, opt := range opts {
		opt(&o)
	}
	history := o.history
	if !o.overridden {
		history = c.memory.Turns()
	}

	standalone := question
	if len(history) > 0 {
		rephrased, err := c.model.Chat(ctx, []domain.ChatMessage{
			{Role: domain.RoleUser, Content: fmt.Sprintf(condensePrompt, formatHistory(history), question)},
		})
		if err != nil {
			return Result{}, fmt.Errorf("chain: condense question: %w", err)
		}
		if s := strings.TrimSpace(rephrased); s != "" {
			standalone = s
		}
		c.logger.Debug("condensed question", "question", question, "standalone", standalone)
	}

	docs, err := c.retriever.Retrieve(ctx, standalone, c.topK)
	if err != nil {
		return Result{}, fmt.Errorf("chain: retrieve: %w", err)
	}

	answer, err := c.model.Chat(ctx, []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: fmt.Sprintf(answerPrompt, stuff(docs))},
		{Role: domain.RoleUser, Content: standalone},
	})
	if err != nil {
		return Result{}, fmt.Errorf("chain: answer: %w", err)
	}

	c.memory.Save(question, answer)
	return Result{Answer: answer, Question: standalone, SourceDocuments: docs}, nil
}

func formatHistory(turns []Turn) string {
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "\nHuman: %s\nAssistant: %s", t.Question, t.Answer)
	}
	return b.String()
}

func stuff(docs []domain.Document) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Content
	}
	return strings.Join(parts, "\n\n")
}
