// Package dataset reads and writes the drug ingredient CSV shared by the
// collector and the resolver, and derives the resolver's in-memory views.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"druglookup/internal/domain"
)

// ErrSourceMissing is returned by Read when the CSV file does not exist.
var ErrSourceMissing = errors.New("dataset: source file missing")

// Column names of the flat file, in order.
const (
	ColBrandName           = "Brand Name"
	ColGenericName         = "Generic Name"
	ColManufacturer        = "Manufacturer"
	ColApplicationNumber   = "Application Number"
	ColDosageForm          = "Dosage Form"
	ColActiveIngredients   = "Active Ingredients"
	ColInactiveIngredients = "Inactive Ingredients"
)

// Header is the first row of the flat file.
var Header = []string{
	ColBrandName,
	ColGenericName,
	ColManufacturer,
	ColApplicationNumber,
	ColDosageForm,
	ColActiveIngredients,
	ColInactiveIngredients,
}

// docNamespace scopes document IDs derived from records.
var docNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("druglookup/documents"))

// Write stores records at path, replacing any existing file.
func Write(path string, records []domain.DrugRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dataset: create %s: %w", path, err)
	}
	if err := WriteTo(f, records); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// WriteTo encodes records as CSV. Fields containing commas are quoted so an
// ingredient list stays in one column.
func WriteTo(w io.Writer, records []domain.DrugRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("dataset: write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.BrandName,
			r.GenericName,
			r.Manufacturer,
			r.ApplicationNumber,
			r.DosageForm,
			r.ActiveIngredients,
			r.InactiveIngredients,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("dataset: write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read loads records from path.
func Read(path string) ([]domain.DrugRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceMissing, path)
		}
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()
	return ReadFrom(f)
}

// ReadFrom decodes CSV records. Columns are matched by header name; unknown
// columns are ignored and missing ones read as empty.
func ReadFrom(r io.Reader) ([]domain.DrugRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("dataset: read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	if _, ok := idx[ColBrandName]; !ok {
		return nil, fmt.Errorf("dataset: header has no %q column", ColBrandName)
	}
	field := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var out []domain.DrugRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: read row: %w", err)
		}
		out = append(out, domain.DrugRecord{
			BrandName:           field(row, ColBrandName),
			GenericName:         field(row, ColGenericName),
			Manufacturer:        field(row, ColManufacturer),
			ApplicationNumber:   field(row, ColApplicationNumber),
			DosageForm:          field(row, ColDosageForm),
			ActiveIngredients:   field(row, ColActiveIngredients),
			InactiveIngredients: field(row, ColInactiveIngredients),
		})
	}
	return out, nil
}

// Content renders the indexed text of a record.
func Content(r domain.DrugRecord) string {
	return fmt.Sprintf("Active Ingredients: %s\nInactive Ingredients: %s", r.ActiveIngredients, r.InactiveIngredients)
}

// Documents converts records into indexable documents, one per record.
func Documents(records []domain.DrugRecord) []domain.Document {
	docs := make([]domain.Document, len(records))
	for i, r := range records {
		docs[i] = domain.Document{
			ID:       uuid.NewSHA1(docNamespace, []byte(fmt.Sprintf("%d|%s|%s", i, r.ApplicationNumber, r.BrandName))).String(),
			Content:  Content(r),
			DrugName: r.BrandName,
		}
	}
	return docs
}

// NameSet returns the lower-cased, trimmed brand names of records.
func NameSet(records []domain.DrugRecord) map[string]struct{} {
	set := make(map[string]struct{}, len(records))
	for _, r := range records {
		set[NormalizeName(r.BrandName)] = struct{}{}
	}
	return set
}

// NormalizeName is the key used for local name matching.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
