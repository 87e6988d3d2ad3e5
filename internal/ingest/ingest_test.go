package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sam0per/belgian-brewery/internal/model"
	"github.com/sam0per/belgian-brewery/internal/normalize"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadSource_CSV(t *testing.T) {
	path := writeFile(t, "beers.csv",
		"Beer,Brewery,Alcohol percentage,Style\n"+
			"Westmalle Tripel,Brouwerij der Trappisten van Westmalle,9.5,Tripel\n"+
			"Orval, Brasserie d'Orval ,6.2,Belgian Pale Ale\n")

	src := Source{
		ID:   "beer_catalog",
		Kind: model.KindBeer,
		Path: path,
		FieldMap: map[string]string{
			"beer":               normalize.FieldName,
			"brewery":            normalize.FieldBrewery,
			"alcohol percentage": normalize.FieldABV,
			"style":              normalize.FieldStyle,
		},
	}

	records, err := NewReader().ReadSource(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "beer_catalog", records[0].Source)
	assert.Equal(t, model.KindBeer, records[0].Kind)
	assert.Equal(t, "Westmalle Tripel", records[0].Fields[normalize.FieldName])
	assert.Equal(t, "9.5", records[0].Fields[normalize.FieldABV])

	// Cell whitespace is trimmed before storage.
	assert.Equal(t, "Brasserie d'Orval", records[1].Fields[normalize.FieldBrewery])
}

func TestReadSource_CSVUnmappedColumnsKeepHeaderName(t *testing.T) {
	path := writeFile(t, "extra.csv", "Name,Bottle Size\nChimay Bleue,33cl\n")
	src := Source{ID: "s", Kind: model.KindBeer, Path: path}

	records, err := NewReader().ReadSource(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "33cl", records[0].Fields["bottle_size"])
}

func TestReadSource_CSVDropsEmptyValues(t *testing.T) {
	path := writeFile(t, "sparse.csv", "name,abv_pct\nOrval,\n")
	src := Source{ID: "s", Kind: model.KindBeer, Path: path}

	records, err := NewReader().ReadSource(context.Background(), src)
	require.NoError(t, err)
	_, present := records[0].Fields[normalize.FieldABV]
	assert.False(t, present)
}

func TestReadSource_JSONLines(t *testing.T) {
	path := writeFile(t, "breweries.jsonl",
		`{"name":"Brouwerij Westmalle","municipality":"Westmalle","postcode":2390,"active":true}`+"\n"+
			`{"name":"Abbaye d'Orval","municipality":"Villers-devant-Orval","details":{"ignored":"yes"}}`+"\n")

	src := Source{ID: "brewery_registry", Kind: model.KindBrewery, Path: path}
	records, err := NewReader().ReadSource(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Brouwerij Westmalle", records[0].Fields[normalize.FieldName])
	assert.Equal(t, "2390", records[0].Fields[normalize.FieldPostcode])
	assert.Equal(t, "true", records[0].Fields["active"])

	// Nested values are not representable as record fields.
	_, present := records[1].Fields["details"]
	assert.False(t, present)
}

func TestReadSource_XLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Breweries")
	require.NoError(t, err)
	for _, rowData := range [][]string{
		{"Name", "City", "Province"},
		{"Brouwerij Het Anker", "Mechelen", "Antwerpen"},
	} {
		row := sheet.AddRow()
		for _, v := range rowData {
			row.AddCell().SetString(v)
		}
	}
	path := filepath.Join(t.TempDir(), "breweries.xlsx")
	require.NoError(t, f.Save(path))

	src := Source{
		ID:   "xlsx_export",
		Kind: model.KindBrewery,
		Path: path,
		FieldMap: map[string]string{
			"name": normalize.FieldName,
			"city": normalize.FieldMunicipality,
		},
	}
	records, err := NewReader().ReadSource(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Brouwerij Het Anker", records[0].Fields[normalize.FieldName])
	assert.Equal(t, "Mechelen", records[0].Fields[normalize.FieldMunicipality])
	assert.Equal(t, "Antwerpen", records[0].Fields[normalize.FieldProvince])
}

func TestReadSource_UnsupportedExtension(t *testing.T) {
	_, err := NewReader().ReadSource(context.Background(), Source{ID: "s", Path: "records.parquet"})
	assert.ErrorContains(t, err, "unsupported extension")
}

func TestReadSource_MissingFile(t *testing.T) {
	_, err := NewReader().ReadSource(context.Background(), Source{ID: "s", Path: "/nonexistent/x.csv"})
	assert.Error(t, err)
}

func TestReadSource_StampsFetchedAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(now)

	path := writeFile(t, "one.csv", "name\nOrval\n")
	records, err := NewReader(WithClock(clock)).ReadSource(context.Background(), Source{
		ID: "s", Kind: model.KindBrewery, Path: path,
	})
	require.NoError(t, err)
	assert.Equal(t, now, records[0].FetchedAt)
}

func TestReadSources_ConcatenatesInOrder(t *testing.T) {
	a := writeFile(t, "a.csv", "name\nFirst\n")
	b := writeFile(t, "b.csv", "name\nSecond\n")

	records, err := NewReader().ReadSources(context.Background(), []Source{
		{ID: "a", Kind: model.KindBrewery, Path: a},
		{ID: "b", Kind: model.KindBrewery, Path: b},
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].Source)
	assert.Equal(t, "b", records[1].Source)
}

func TestReadSources_FailFast(t *testing.T) {
	a := writeFile(t, "a.csv", "name\nFirst\n")
	_, err := NewReader().ReadSources(context.Background(), []Source{
		{ID: "a", Kind: model.KindBrewery, Path: a},
		{ID: "broken", Kind: model.KindBrewery, Path: "/nope.csv"},
	})
	assert.Error(t, err)
}

func TestReadSource_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := writeFile(t, "one.csv", "name\nOrval\n")
	_, err := NewReader().ReadSource(ctx, Source{ID: "s", Kind: model.KindBrewery, Path: path})
	assert.Error(t, err)
}
