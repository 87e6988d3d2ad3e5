package ingest

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sam0per/belgian-brewery/internal/model"
)

// readJSONLines parses a file of newline-delimited JSON objects. Field
// names go through the same column mapping as CSV headers; scalar
// values are coerced to strings, nested values are skipped.
func (r *Reader) readJSONLines(ctx context.Context, src Source) ([]model.RawRecord, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", src.Path)
	}
	defer func() { _ = f.Close() }()

	dec := json.NewDecoder(f)
	var records []model.RawRecord
	for {
		if ctx.Err() != nil {
			return nil, eris.Wrapf(ctx.Err(), "ingest: source %s cancelled", src.ID)
		}

		var obj map[string]any
		if err := dec.Decode(&obj); err == io.EOF {
			return records, nil
		} else if err != nil {
			return nil, eris.Wrapf(err, "ingest: source %s: decode object %d", src.ID, len(records))
		}

		fields := make(map[string]string, len(obj))
		for k, v := range obj {
			if s, ok := scalarString(v); ok {
				fields[canonicalField(src, k)] = s
			}
		}
		records = append(records, r.record(src, fields))
	}
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}
