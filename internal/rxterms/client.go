// Package rxterms queries the NLM Clinical Tables drug ingredient search,
// used as a fallback source when a label carries no ingredient lists.
package rxterms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://clinicaltables.nlm.nih.gov/api/drug_ingredients/v3/search"
	DefaultTimeout = 30 * time.Second
)

// Ingredients holds the fallback ingredient lists for a drug.
type Ingredients struct {
	Active   []string `json:"active_ingredient"`
	Inactive []string `json:"inactive_ingredient"`
}

// Config configures the ingredient client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client queries the ingredient search endpoint.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates an ingredient client using the provided configuration.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// LookupIngredients returns the ingredient lists for name. A nil result with a
// nil error means the service had nothing usable: a non-200 status, or a
// response array without the extra-fields element.
func (c *Client) LookupIngredients(ctx context.Context, name string) (*Ingredients, error) {
	params := url.Values{}
	params.Set("drug", name)
	params.Set("ef", "active_ingredient,inactive_ingredient")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("rxterms: create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rxterms: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("rxterms: read response: %w", err)
	}

	// [total, codes, extra fields, display strings]
	var parts []json.RawMessage
	if err := json.Unmarshal(body, &parts); err != nil {
		return nil, fmt.Errorf("rxterms: decode response: %w", err)
	}
	if len(parts) < 3 {
		return nil, nil
	}
	var ing *Ingredients
	if err := json.Unmarshal(parts[2], &ing); err != nil {
		return nil, fmt.Errorf("rxterms: decode extra fields: %w", err)
	}
	return ing, nil
}
