// Package collector builds the local drug dataset from the label API.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"druglookup/internal/domain"
	"druglookup/internal/openfda"
)

// Default collection parameters.
const (
	DefaultTarget    = 50
	DefaultBatchSize = 10
	DefaultInterval  = time.Second
)

// LabelSource returns pages of raw labels.
type LabelSource interface {
	FetchLabels(ctx context.Context, limit, skip int) ([]openfda.Label, error)
}

// Options tunes the batch loop. Zero values take the defaults; a negative
// Interval disables pacing.
type Options struct {
	Target    int
	BatchSize int
	Interval  time.Duration
}

// Collector pages through the label source until enough unique complete
// records are gathered.
type Collector struct {
	labels    LabelSource
	completer *Completer
	target    int
	batchSize int
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// New creates a Collector.
func New(labels LabelSource, completer *Completer, opts Options, logger *slog.Logger) *Collector {
	if opts.Target <= 0 {
		opts.Target = DefaultTarget
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Interval == 0 {
		opts.Interval = DefaultInterval
	}
	limit := rate.Inf
	if opts.Interval > 0 {
		limit = rate.Every(opts.Interval)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		labels:    labels,
		completer: completer,
		target:    opts.Target,
		batchSize: opts.BatchSize,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger,
	}
}

// Collect returns up to the target number of records, unique by application
// number. It stops early when a page comes back empty. On a fetch error the
// records gathered so far are returned along with the error.
func (c *Collector) Collect(ctx context.Context) ([]domain.DrugRecord, error) {
	collected := make([]domain.DrugRecord, 0, c.target)
	seen := make(map[string]struct{})

	for skip := 0; len(collected) < c.target; skip += c.batchSize {
		if err := c.limiter.Wait(ctx); err != nil {
			return collected, fmt.Errorf("collector: %w", err)
		}
		labels, err := c.labels.FetchLabels(ctx, c.batchSize, skip)
		if err != nil {
			return collected, fmt.Errorf("collector: batch at skip=%d: %w", skip, err)
		}
		if len(labels) == 0 {
			c.logger.Info("no more labels returned", "skip", skip)
			break
		}

		for _, label := range labels {
			rec, ok := c.completer.Complete(ctx, label)
			if !ok {
				continue
			}
			if _, dup := seen[rec.ApplicationNumber]; dup {
				continue
			}
			seen[rec.ApplicationNumber] = struct{}{}
			collected = append(collected, rec)
			c.logger.Info("collected record",
				"n", len(collected), "brand", rec.BrandName, "generic", rec.GenericName)
			if len(collected) >= c.target {
				break
			}
		}
	}
	return collected, nil
}
