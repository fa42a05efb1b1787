package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"druglookup/internal/openfda"
	"druglookup/internal/rxterms"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeLabels serves pages out of a fixed slice.
type fakeLabels struct {
	labels []openfda.Label
	calls  int
	skips  []int
	err    error
	errAt  int
}

func (f *fakeLabels) FetchLabels(_ context.Context, limit, skip int) ([]openfda.Label, error) {
	f.calls++
	f.skips = append(f.skips, skip)
	if f.err != nil && f.calls == f.errAt {
		return nil, f.err
	}
	if skip >= len(f.labels) {
		return nil, nil
	}
	end := skip + limit
	if end > len(f.labels) {
		end = len(f.labels)
	}
	return f.labels[skip:end], nil
}

// fakeIngredients counts lookups and answers from a map.
type fakeIngredients struct {
	byName map[string]*rxterms.Ingredients
	err    error
	calls  int
	names  []string
}

func (f *fakeIngredients) LookupIngredients(_ context.Context, name string) (*rxterms.Ingredients, error) {
	f.calls++
	f.names = append(f.names, name)
	if f.err != nil {
		return nil, f.err
	}
	return f.byName[name], nil
}

func completeLabel(brand, app string) openfda.Label {
	return openfda.Label{
		OpenFDA: openfda.OpenFDA{
			BrandName:         []string{brand},
			GenericName:       []string{brand + " generic"},
			ManufacturerName:  []string{"Acme"},
			ApplicationNumber: []string{app},
		},
		DosageForm:         []string{"TABLET"},
		ActiveIngredient:   []string{"A"},
		InactiveIngredient: []string{"B"},
	}
}

func completeLabels(n int) []openfda.Label {
	out := make([]openfda.Label, n)
	for i := range out {
		out[i] = completeLabel(fmt.Sprintf("Drug%d", i), fmt.Sprintf("NDA%06d", i))
	}
	return out
}

func newCollector(labels LabelSource, fallback IngredientSource, target int) *Collector {
	return New(labels, NewCompleter(fallback, quiet), Options{Target: target, Interval: -1}, quiet)
}

func TestCollect_StopsAtTarget(t *testing.T) {
	src := &fakeLabels{labels: completeLabels(80)}
	c := newCollector(src, &fakeIngredients{}, 50)

	records, err := c.Collect(context.Background())
	require.NoError(t, err)

	assert.Len(t, records, 50)
	assert.Equal(t, 5, src.calls)
	assert.Equal(t, []int{0, 10, 20, 30, 40}, src.skips)
}

func TestCollect_StopsMidBatchAtTarget(t *testing.T) {
	src := &fakeLabels{labels: completeLabels(30)}
	c := newCollector(src, &fakeIngredients{}, 15)

	records, err := c.Collect(context.Background())
	require.NoError(t, err)

	require.Len(t, records, 15)
	assert.Equal(t, "Drug14", records[14].BrandName)
	assert.Equal(t, 2, src.calls)
}

func TestCollect_EarlyTerminationOnEmptyBatch(t *testing.T) {
	src := &fakeLabels{labels: completeLabels(23)}
	c := newCollector(src, &fakeIngredients{}, 50)

	records, err := c.Collect(context.Background())
	require.NoError(t, err)

	assert.Len(t, records, 23)
	// three pages with data and one empty page
	assert.Equal(t, 4, src.calls)
}

func TestCollect_DeduplicatesByApplicationNumber(t *testing.T) {
	labels := []openfda.Label{
		completeLabel("First", "NDA1"),
		completeLabel("Second", "NDA1"),
		completeLabel("Third", "NDA2"),
	}
	c := newCollector(&fakeLabels{labels: labels}, &fakeIngredients{}, 50)

	records, err := c.Collect(context.Background())
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "First", records[0].BrandName)
	assert.Equal(t, "Third", records[1].BrandName)
}

func TestCollect_SkipsIncompleteLabels(t *testing.T) {
	incomplete := completeLabel("Partial", "NDA9")
	incomplete.InactiveIngredient = nil
	labels := []openfda.Label{incomplete, completeLabel("Whole", "NDA8")}
	fallback := &fakeIngredients{}

	c := newCollector(&fakeLabels{labels: labels}, fallback, 50)
	records, err := c.Collect(context.Background())
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "Whole", records[0].BrandName)
	assert.Equal(t, 1, fallback.calls)
}

func TestCollect_FetchErrorReturnsPartial(t *testing.T) {
	boom := errors.New("boom")
	src := &fakeLabels{labels: completeLabels(40), err: boom, errAt: 2}
	c := newCollector(src, &fakeIngredients{}, 50)

	records, err := c.Collect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, records, 10)
}

func TestCollect_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &fakeLabels{labels: completeLabels(40)}
	c := New(src, NewCompleter(nil, quiet), Options{Target: 50}, quiet)

	_, err := c.Collect(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, src.calls)
}

func TestNew_Defaults(t *testing.T) {
	c := New(&fakeLabels{}, NewCompleter(nil, nil), Options{}, nil)

	assert.Equal(t, DefaultTarget, c.target)
	assert.Equal(t, DefaultBatchSize, c.batchSize)
	assert.InDelta(t, 1.0, float64(c.limiter.Limit()), 1e-9)
}
