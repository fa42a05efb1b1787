// Package openfda is a small client for the openFDA drug label endpoint.
package openfda

import (
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

// Default configuration values.
const (
	DefaultBaseURL = "https://api.fda.gov/drug/label.json"
	DefaultTimeout = 30 * time.Second
)

// ErrNotFound is returned by LookupBrand when the API has no matching label.
var ErrNotFound = errors.New("openfda: no matching label")

// OpenFDA holds the harmonized identity fields of a label.
type OpenFDA struct {
	BrandName         []string `json:"brand_name"`
	GenericName       []string `json:"generic_name"`
	ManufacturerName  []string `json:"manufacturer_name"`
	ApplicationNumber []string `json:"application_number"`
}

// Label is one result of the drug label endpoint. List fields are nil when
// the label does not carry them.
type Label struct {
	OpenFDA            OpenFDA  `json:"openfda"`
	DosageForm         []string `json:"dosage_form"`
	ActiveIngredient   []string `json:"active_ingredient"`
	InactiveIngredient []string `json:"inactive_ingredient"`
}

type labelResponse struct {
	Results []Label `json:"results"`
}

// Config configures the label client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client queries the openFDA drug label endpoint.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a label client using the provided configuration.
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

// FetchLabels returns one page of labels. openFDA answers 404 once skip runs
// past the data set; that is reported as an empty page.
func (c *Client) FetchLabels(ctx context.Context, limit, skip int) ([]Label, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("skip", strconv.Itoa(skip))

	out, status, err := c.get(ctx, params)
	if err != nil {
		if status == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("openfda: fetch labels (limit=%d skip=%d): %w", limit, skip, err)
	}
	return out.Results, nil
}

// LookupBrand returns the first label whose brand name matches name.
func (c *Client) LookupBrand(ctx context.Context, name string) (*Label, error) {
	params := url.Values{}
	params.Set("search", "openfda.brand_name:"+name)
	params.Set("limit", "1")

	out, status, err := c.get(ctx, params)
	if err != nil {
		if status == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("openfda: lookup %q: %w", name, err)
	}
	if len(out.Results) == 0 {
		return nil, ErrNotFound
	}
	return &out.Results[0], nil
}

func (c *Client) get(ctx context.Context, params url.Values) (*labelResponse, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, fmt.Errorf("status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out labelResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return &out, resp.StatusCode, nil
}

// First returns the trimmed first element of a label list, or "" when empty.
func First(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}
