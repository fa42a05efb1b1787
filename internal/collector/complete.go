package collector

import (
	"context"
	"log/slog"
	"strings"

	"druglookup/internal/domain"
	"druglookup/internal/openfda"
	"druglookup/internal/rxterms"
)

// Placeholders for identity fields a fallback-completed record is missing.
const (
	UnknownBrand   = "Unknown brand"
	UnknownGeneric = "Unknown generic"
	Unknown        = "Unknown"
)

// IngredientSource looks up ingredient lists by drug name. A nil result with
// a nil error means the source had nothing for the name.
type IngredientSource interface {
	LookupIngredients(ctx context.Context, name string) (*rxterms.Ingredients, error)
}

// Completer turns raw labels into complete drug records.
type Completer struct {
	fallback IngredientSource
	logger   *slog.Logger
}

// NewCompleter creates a Completer that consults fallback for labels
// without ingredient lists.
func NewCompleter(fallback IngredientSource, logger *slog.Logger) *Completer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Completer{fallback: fallback, logger: logger}
}

// Complete builds a record from label. The label's own ingredients win when
// both lists are present; otherwise the fallback lists replace them
// entirely. ok is false when neither source yields both lists.
func (c *Completer) Complete(ctx context.Context, label openfda.Label) (domain.DrugRecord, bool) {
	rec := domain.DrugRecord{
		BrandName:         openfda.First(label.OpenFDA.BrandName),
		GenericName:       openfda.First(label.OpenFDA.GenericName),
		Manufacturer:      openfda.First(label.OpenFDA.ManufacturerName),
		ApplicationNumber: openfda.First(label.OpenFDA.ApplicationNumber),
		DosageForm:        openfda.First(label.DosageForm),
	}
	if len(label.ActiveIngredient) > 0 && len(label.InactiveIngredient) > 0 {
		rec.ActiveIngredients = strings.Join(label.ActiveIngredient, ", ")
		rec.InactiveIngredients = strings.Join(label.InactiveIngredient, ", ")
		return rec, true
	}

	name := rec.BrandName
	if name == "" {
		name = rec.GenericName
	}
	if name == "" || c.fallback == nil {
		return domain.DrugRecord{}, false
	}
	ing, err := c.fallback.LookupIngredients(ctx, name)
	if err != nil {
		c.logger.Warn("ingredient fallback failed", "drug", name, "err", err)
		return domain.DrugRecord{}, false
	}
	if ing == nil || len(ing.Active) == 0 || len(ing.Inactive) == 0 {
		return domain.DrugRecord{}, false
	}

	rec.BrandName = orDefault(rec.BrandName, UnknownBrand)
	rec.GenericName = orDefault(rec.GenericName, UnknownGeneric)
	rec.Manufacturer = orDefault(rec.Manufacturer, Unknown)
	rec.ApplicationNumber = orDefault(rec.ApplicationNumber, Unknown)
	rec.DosageForm = orDefault(rec.DosageForm, Unknown)
	rec.ActiveIngredients = strings.Join(ing.Active, ", ")
	rec.InactiveIngredients = strings.Join(ing.Inactive, ", ")
	return rec, true
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
