package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sam0per/belgian-brewery/internal/model"
)

// readCSV streams a headered CSV file into records. Rows are consumed
// one at a time so arbitrarily large exports never load whole into
// memory before conversion.
func (r *Reader) readCSV(ctx context.Context, src Source) ([]model.RawRecord, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", src.Path)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // sources disagree on trailing columns
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: source %s: read header", src.ID)
	}
	fieldNames := make([]string, len(header))
	for i, h := range header {
		fieldNames[i] = canonicalField(src, h)
	}

	var records []model.RawRecord
	for {
		if ctx.Err() != nil {
			return nil, eris.Wrapf(ctx.Err(), "ingest: source %s cancelled", src.ID)
		}

		row, err := reader.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: source %s: read row", src.ID)
		}

		fields := make(map[string]string, len(fieldNames))
		for i, v := range row {
			if i >= len(fieldNames) {
				break
			}
			fields[fieldNames[i]] = strings.TrimSpace(v)
		}
		records = append(records, r.record(src, fields))
	}
}
