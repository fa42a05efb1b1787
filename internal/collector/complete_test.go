package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"druglookup/internal/openfda"
	"druglookup/internal/rxterms"
)

func TestComplete_PrimaryPathSkipsFallback(t *testing.T) {
	fallback := &fakeIngredients{}
	c := NewCompleter(fallback, quiet)
	label := openfda.Label{
		OpenFDA: openfda.OpenFDA{
			BrandName:         []string{" Tylenol "},
			GenericName:       []string{"acetaminophen"},
			ManufacturerName:  []string{"Acme"},
			ApplicationNumber: []string{"NDA1"},
		},
		DosageForm:         []string{"TABLET"},
		ActiveIngredient:   []string{"Acetaminophen", "Caffeine"},
		InactiveIngredient: []string{"Starch"},
	}

	rec, ok := c.Complete(context.Background(), label)
	require.True(t, ok)

	assert.Zero(t, fallback.calls)
	assert.Equal(t, "Tylenol", rec.BrandName)
	assert.Equal(t, "acetaminophen", rec.GenericName)
	assert.Equal(t, "Acme", rec.Manufacturer)
	assert.Equal(t, "NDA1", rec.ApplicationNumber)
	assert.Equal(t, "TABLET", rec.DosageForm)
	assert.Equal(t, "Acetaminophen, Caffeine", rec.ActiveIngredients)
	assert.Equal(t, "Starch", rec.InactiveIngredients)
}

func TestComplete_FallbackReplacesIngredientsAndFillsPlaceholders(t *testing.T) {
	fallback := &fakeIngredients{byName: map[string]*rxterms.Ingredients{
		"acetaminophen": {Active: []string{"X", "Y"}, Inactive: []string{"Z"}},
	}}
	c := NewCompleter(fallback, quiet)
	label := openfda.Label{
		OpenFDA:          openfda.OpenFDA{GenericName: []string{"acetaminophen"}},
		ActiveIngredient: []string{"label active"},
	}

	rec, ok := c.Complete(context.Background(), label)
	require.True(t, ok)

	assert.Equal(t, []string{"acetaminophen"}, fallback.names)
	assert.Equal(t, UnknownBrand, rec.BrandName)
	assert.Equal(t, "acetaminophen", rec.GenericName)
	assert.Equal(t, Unknown, rec.Manufacturer)
	assert.Equal(t, Unknown, rec.ApplicationNumber)
	assert.Equal(t, Unknown, rec.DosageForm)
	assert.Equal(t, "X, Y", rec.ActiveIngredients)
	assert.Equal(t, "Z", rec.InactiveIngredients)
}

func TestComplete_FallbackUsesBrandFirst(t *testing.T) {
	fallback := &fakeIngredients{byName: map[string]*rxterms.Ingredients{
		"Advil": {Active: []string{"Ibuprofen"}, Inactive: []string{"Wax"}},
	}}
	c := NewCompleter(fallback, quiet)
	label := openfda.Label{OpenFDA: openfda.OpenFDA{
		BrandName:   []string{"Advil"},
		GenericName: []string{"ibuprofen"},
	}}

	rec, ok := c.Complete(context.Background(), label)
	require.True(t, ok)
	assert.Equal(t, []string{"Advil"}, fallback.names)
	assert.Equal(t, "Advil", rec.BrandName)
	assert.Equal(t, "ibuprofen", rec.GenericName)
}

func TestComplete_FallbackIncompleteDiscards(t *testing.T) {
	fallback := &fakeIngredients{byName: map[string]*rxterms.Ingredients{
		"Advil": {Active: []string{"Ibuprofen"}},
	}}
	c := NewCompleter(fallback, quiet)
	label := openfda.Label{OpenFDA: openfda.OpenFDA{BrandName: []string{"Advil"}}}

	_, ok := c.Complete(context.Background(), label)
	assert.False(t, ok)
	assert.Equal(t, 1, fallback.calls)
}

func TestComplete_FallbackMissingDiscards(t *testing.T) {
	c := NewCompleter(&fakeIngredients{}, quiet)
	label := openfda.Label{OpenFDA: openfda.OpenFDA{BrandName: []string{"Nothing"}}}

	_, ok := c.Complete(context.Background(), label)
	assert.False(t, ok)
}

func TestComplete_FallbackErrorDiscards(t *testing.T) {
	fallback := &fakeIngredients{err: errors.New("network down")}
	c := NewCompleter(fallback, quiet)
	label := openfda.Label{OpenFDA: openfda.OpenFDA{BrandName: []string{"Advil"}}}

	_, ok := c.Complete(context.Background(), label)
	assert.False(t, ok)
	assert.Equal(t, 1, fallback.calls)
}

func TestComplete_NoNameSkipsFallback(t *testing.T) {
	fallback := &fakeIngredients{}
	c := NewCompleter(fallback, quiet)

	_, ok := c.Complete(context.Background(), openfda.Label{})
	assert.False(t, ok)
	assert.Zero(t, fallback.calls)
}
