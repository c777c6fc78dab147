package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"mercator-hq/tablint/pkg/rules/engine"
	rulesErrors "mercator-hq/tablint/pkg/rules/errors"
)

// CSV reads a comma-separated file with a header row. Every value is a
// string; identifiers that parse as integers become int64.
type CSV struct {
	path string
}

// NewCSV returns a CSV source. The file is opened by Records.
func NewCSV(path string) (*CSV, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, rulesErrors.NewDataAccessError("csv:"+path, "open", err)
	}
	return &CSV{path: path}, nil
}

func (c *CSV) Name() string { return "csv:" + c.path }

func (c *CSV) Records(_ context.Context, fields []string, idField string) (Iterator, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, rulesErrors.NewDataAccessError(c.Name(), "open", err)
	}

	r := csv.NewReader(f)
	r.ReuseRecord = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		f.Close()
		if errors.Is(err, io.EOF) {
			err = errors.New("file has no header row")
		}
		return nil, rulesErrors.NewDataAccessError(c.Name(), "read header", err)
	}
	header = append([]string(nil), header...)
	if len(header) > 0 {
		header[0] = trimBOM(header[0])
	}

	names, positions, idPos := project(header, fields, idField)
	if idPos < 0 {
		f.Close()
		return nil, missingIDError(c.Name(), idField)
	}

	return &csvIterator{file: f, reader: r, names: names, positions: positions, idPos: idPos}, nil
}

func (c *CSV) Close() error { return nil }

type csvIterator struct {
	file      *os.File
	reader    *csv.Reader
	names     []string
	positions []int
	idPos     int

	current engine.Record
	err     error
	line    int
}

func (it *csvIterator) Next() bool {
	if it.err != nil {
		return false
	}

	row, err := it.reader.Read()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			it.err = err
		}
		return false
	}
	it.line++

	if it.idPos >= len(row) {
		it.err = fmt.Errorf("row %d has no identifier column", it.line)
		return false
	}

	values := make(map[string]any, len(it.names))
	for i, name := range it.names {
		if p := it.positions[i]; p < len(row) {
			values[name] = row[p]
		}
	}
	it.current = engine.Record{ID: parseID(row[it.idPos]), Values: values}
	return true
}

func (it *csvIterator) Record() engine.Record { return it.current }

func (it *csvIterator) Err() error { return it.err }

func (it *csvIterator) Close() error {
	if it.file == nil {
		return nil
	}
	err := it.file.Close()
	it.file = nil
	return err
}

// parseID keeps integer identifiers numeric so reports match the source's
// native identifier type.
func parseID(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}

func trimBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}
