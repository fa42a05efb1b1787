// Package azure embeds text with an Azure OpenAI embeddings deployment.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Embedder is an Azure OpenAI embeddings client implementing domain.Embedder.
type Embedder struct {
	endpoint   string
	apiKey     string
	deployment string
	apiVersion string
	dimension  int
	client     *http.Client
	maxRetries int
	sleep      func(context.Context, time.Duration) error
}

// Config configures the embeddings client. Nothing is validated here; a
// missing key or deployment surfaces as an error on the first Embed call.
type Config struct {
	Endpoint   string
	APIKey     string
	Deployment string
	APIVersion string
	Timeout    time.Duration
	MaxRetries int
}

// NewEmbedder creates a new embeddings client using the provided configuration.
func NewEmbedder(cfg Config) *Embedder {
	t := cfg.Timeout
	if t == 0 {
		t = 60 * time.Second
	}
	retries := cfg.MaxRetries
	if retries == 0 {
		retries = 5
	}
	return &Embedder{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:     cfg.APIKey,
		deployment: cfg.Deployment,
		apiVersion: cfg.APIVersion,
		client:     &http.Client{Timeout: t},
		maxRetries: retries,
		sleep:      sleepContext,
	}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "azure" }

// Prepare is not required for remote embedding. Dimension is set on first embed.
func (e *Embedder) Prepare(corpus []string) error { return nil }

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed returns an embedding vector for the given text. 429 and 5xx answers
// are retried with capped exponential backoff, honouring Retry-After.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	type reqBody struct {
		Input []string `json:"input"`
	}
	u := fmt.Sprintf("%s/openai/deployments/%s/embeddings?api-version=%s",
		e.endpoint, url.PathEscape(e.deployment), url.QueryEscape(e.apiVersion))
	data, err := json.Marshal(reqBody{Input: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("azure embeddings: marshal request: %w", err)
	}

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("azure embeddings: create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("api-key", e.apiKey)

		resp, err := e.client.Do(req)
		if err != nil {
			if attempt < e.maxRetries && ctx.Err() == nil {
				if err := e.sleep(ctx, retryDelay(attempt)); err != nil {
					return nil, fmt.Errorf("azure embeddings: %w", err)
				}
				continue
			}
			return nil, fmt.Errorf("azure embeddings: send request: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			if attempt < e.maxRetries {
				if err := e.sleep(ctx, retryAfter(resp.Header.Get("Retry-After"), attempt)); err != nil {
					return nil, fmt.Errorf("azure embeddings: %w", err)
				}
				continue
			}
			return nil, fmt.Errorf("azure embeddings failed: %s", resp.Status)
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("azure embeddings: read response: %w", err)
		}
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("azure embeddings failed: %s: %s", resp.Status, strings.TrimSpace(string(payload)))
		}

		var out struct {
			Data []struct {
				Embedding []float64 `json:"embedding"`
			} `json:"data"`
		}
		if err := json.Unmarshal(payload, &out); err != nil {
			return nil, fmt.Errorf("azure embeddings: decode response: %w", err)
		}
		if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
			return nil, errors.New("azure embeddings: no embedding returned")
		}
		v := out.Data[0].Embedding
		if e.dimension == 0 {
			e.dimension = len(v)
		}
		return v, nil
	}
}

// maxRetryAfter bounds how long a Retry-After header can hold a request.
const maxRetryAfter = 30 * time.Second

func retryAfter(header string, attempt int) time.Duration {
	if header != "" {
		if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
			d := time.Duration(secs) * time.Second
			if d > maxRetryAfter {
				d = maxRetryAfter
			}
			return d
		}
	}
	return retryDelay(attempt)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
