// Package resolver answers drug name queries locally when the name is known
// and from the labeling API otherwise.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"druglookup/internal/chain"
	"druglookup/internal/openfda"
)

// NotFoundMessage is printed when neither source has the drug.
const NotFoundMessage = "Drug not found in local DB or FDA API."

// Kind classifies the outcome of one query.
type Kind int

const (
	FoundLocal Kind = iota
	FoundRemote
	NotFound
	RemoteError
)

func (k Kind) String() string {
	switch k {
	case FoundLocal:
		return "found_local"
	case FoundRemote:
		return "found_remote"
	case NotFound:
		return "not_found"
	case RemoteError:
		return "remote_error"
	default:
		return "unknown"
	}
}

// Outcome is the result of resolving one query.
type Outcome struct {
	Kind  Kind
	Route Route
	// Text is the rendered ingredients for Found kinds.
	Text string
	// Err is the remote failure for RemoteError.
	Err error
}

// Message renders the text shown to the user.
func (o Outcome) Message() string {
	switch o.Kind {
	case FoundLocal, FoundRemote:
		return o.Text
	default:
		return NotFoundMessage
	}
}

// Chain is the retrieval chain used on the local path.
type Chain interface {
	Invoke(ctx context.Context, question string, opts ...chain.Option) (chain.Result, error)
}

// LabelLookup finds a label by brand name.
type LabelLookup interface {
	LookupBrand(ctx context.Context, name string) (*openfda.Label, error)
}

// Options configures a Resolver.
type Options struct {
	// OverrideHistory passes an empty history to the chain on every call,
	// so its memory never feeds the question.
	OverrideHistory bool
}

// Resolver routes queries and renders their outcome.
type Resolver struct {
	router *Router
	chain  Chain
	labels LabelLookup
	opts   Options
	logger *slog.Logger
}

// New creates a resolver.
func New(router *Router, ch Chain, labels LabelLookup, opts Options, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{router: router, chain: ch, labels: labels, opts: opts, logger: logger}
}

// Resolve answers query. Only chain failures are returned as errors; remote
// lookup failures become a NotFound or RemoteError outcome.
func (r *Resolver) Resolve(ctx context.Context, query string) (Outcome, error) {
	route := r.router.Route(query)
	r.logger.Debug("routing query", "query", query, "route", route)

	if route == RouteLocal {
		var opts []chain.Option
		if r.opts.OverrideHistory {
			opts = append(opts, chain.WithHistory(nil))
		}
		res, err := r.chain.Invoke(ctx, query, opts...)
		if err != nil {
			return Outcome{}, fmt.Errorf("resolver: local lookup %q: %w", query, err)
		}
		parts := make([]string, len(res.SourceDocuments))
		for i, d := range res.SourceDocuments {
			parts[i] = d.Content
		}
		return Outcome{Kind: FoundLocal, Route: route, Text: strings.Join(parts, "\n")}, nil
	}

	label, err := r.labels.LookupBrand(ctx, query)
	switch {
	case errors.Is(err, openfda.ErrNotFound):
		return Outcome{Kind: NotFound, Route: route}, nil
	case err != nil:
		r.logger.Warn("FDA API error", "query", query, "error", err)
		return Outcome{Kind: RemoteError, Route: route, Err: err}, nil
	case label == nil:
		return Outcome{Kind: NotFound, Route: route}, nil
	}
	return Outcome{Kind: FoundRemote, Route: route, Text: FormatLabel(label)}, nil
}

// FormatLabel renders a label's ingredients. A field the label does not
// carry is shown as "N/A".
func FormatLabel(label *openfda.Label) string {
	return fmt.Sprintf("Active Ingredients: %s\nInactive Ingredients: %s",
		joinOrNA(label.ActiveIngredient), joinOrNA(label.InactiveIngredient))
}

func joinOrNA(values []string) string {
	if values == nil {
		return "N/A"
	}
	return strings.Join(values, ", ")
}
