package dataset

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"druglookup/internal/domain"
)

var sample = []domain.DrugRecord{
	{
		BrandName:           "Tylenol",
		GenericName:         "acetaminophen",
		Manufacturer:        "Acme",
		ApplicationNumber:   "NDA1",
		DosageForm:          "TABLET",
		ActiveIngredients:   "Acetaminophen, Caffeine",
		InactiveIngredients: "Starch, Water",
	},
	{
		BrandName:           " Aspirin ",
		GenericName:         "aspirin",
		Manufacturer:        "Bayer",
		ApplicationNumber:   "NDA2",
		DosageForm:          "TABLET",
		ActiveIngredients:   "Aspirin",
		InactiveIngredients: `Wax "E", Corn starch`,
	},
}

func TestWriteTo_Header(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTo(&buf, nil))

	assert.Equal(t, "Brand Name,Generic Name,Manufacturer,Application Number,Dosage Form,Active Ingredients,Inactive Ingredients\n", buf.String())
}

func TestWriteRead_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drugs.csv")
	require.NoError(t, Write(path, sample))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, sample, got)
}

func TestWriteTo_QuotesIngredientLists(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTo(&buf, sample[:1]))

	assert.Contains(t, buf.String(), `"Acetaminophen, Caffeine"`)
}

func TestRead_Missing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "absent.csv"))
	assert.ErrorIs(t, err, ErrSourceMissing)
}

func TestReadFrom_ColumnsByName(t *testing.T) {
	data := "\ufeffActive Ingredients,Brand Name,Extra\nA,Foo,x\n"

	got, err := ReadFrom(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Foo", got[0].BrandName)
	assert.Equal(t, "A", got[0].ActiveIngredients)
	assert.Empty(t, got[0].InactiveIngredients)
}

func TestReadFrom_NoBrandColumn(t *testing.T) {
	_, err := ReadFrom(strings.NewReader("a,b\n1,2\n"))
	assert.Error(t, err)
}

func TestReadFrom_Empty(t *testing.T) {
	got, err := ReadFrom(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDocuments(t *testing.T) {
	docs := Documents(sample)
	require.Len(t, docs, 2)

	assert.Equal(t, "Active Ingredients: Acetaminophen, Caffeine\nInactive Ingredients: Starch, Water", docs[0].Content)
	assert.Equal(t, "Tylenol", docs[0].DrugName)
	assert.NotEmpty(t, docs[0].ID)
	assert.NotEqual(t, docs[0].ID, docs[1].ID)
	// IDs are stable across runs
	assert.Equal(t, docs[0].ID, Documents(sample)[0].ID)
}

func TestNameSet(t *testing.T) {
	set := NameSet(sample)

	assert.Len(t, set, 2)
	assert.Contains(t, set, "tylenol")
	assert.Contains(t, set, "aspirin")
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "aspirin", NormalizeName("  AsPiRin \t"))
}
