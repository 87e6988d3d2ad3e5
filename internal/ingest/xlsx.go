package ingest

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sam0per/belgian-brewery/internal/model"
)

// readXLSX parses the first sheet of a spreadsheet export. The first
// row is the header; the rest map to records the same way CSV rows do.
func (r *Reader) readXLSX(ctx context.Context, src Source) ([]model.RawRecord, error) {
	f, err := xlsx.OpenFile(src.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", src.Path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("ingest: source %s: workbook has no sheets", src.ID)
	}
	sheet := f.Sheets[0]

	var fieldNames []string
	var records []model.RawRecord
	for i, row := range sheet.Rows {
		if ctx.Err() != nil {
			return nil, eris.Wrapf(ctx.Err(), "ingest: source %s cancelled", src.ID)
		}

		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}

		if i == 0 {
			fieldNames = make([]string, len(cells))
			for j, h := range cells {
				fieldNames[j] = canonicalField(src, h)
			}
			continue
		}

		fields := make(map[string]string, len(fieldNames))
		for j, v := range cells {
			if j >= len(fieldNames) {
				break
			}
			fields[fieldNames[j]] = v
		}
		records = append(records, r.record(src, fields))
	}
	return records, nil
}
