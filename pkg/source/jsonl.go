package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"mercator-hq/tablint/pkg/rules/engine"
	rulesErrors "mercator-hq/tablint/pkg/rules/errors"
)

const maxJSONLLine = 16 * 1024 * 1024

// JSONL reads one JSON object per line. Numbers are kept as json.Number;
// integral identifiers become int64.
type JSONL struct {
	path string
}

// NewJSONL returns a JSON Lines source. The file is opened by Records.
func NewJSONL(path string) (*JSONL, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, rulesErrors.NewDataAccessError("jsonl:"+path, "open", err)
	}
	return &JSONL{path: path}, nil
}

func (j *JSONL) Name() string { return "jsonl:" + j.path }

func (j *JSONL) Records(_ context.Context, fields []string, idField string) (Iterator, error) {
	f, err := os.Open(j.path)
	if err != nil {
		return nil, rulesErrors.NewDataAccessError(j.Name(), "open", err)
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxJSONLLine)

	return &jsonlIterator{
		name:    j.Name(),
		file:    f,
		scanner: scanner,
		fields:  fields,
		idField: idField,
	}, nil
}

func (j *JSONL) Close() error { return nil }

type jsonlIterator struct {
	name    string
	file    *os.File
	scanner *bufio.Scanner
	fields  []string
	idField string

	current engine.Record
	err     error
	line    int
}

func (it *jsonlIterator) Next() bool {
	if it.err != nil {
		return false
	}

	for it.scanner.Scan() {
		it.line++
		line := bytes.TrimSpace(it.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			it.err = rulesErrors.NewDataAccessError(it.name, "decode", fmt.Errorf("line %d: %w", it.line, err))
			return false
		}

		id, ok := obj[it.idField]
		if !ok {
			it.err = rulesErrors.NewDataAccessError(it.name, "locate identifier",
				fmt.Errorf("line %d: identifier field %q not found", it.line, it.idField))
			return false
		}

		values := make(map[string]any, len(it.fields))
		for _, f := range it.fields {
			if v, ok := obj[f]; ok {
				values[f] = v
			}
		}
		it.current = engine.Record{ID: normalizeJSONID(id), Values: values}
		return true
	}

	if err := it.scanner.Err(); err != nil {
		it.err = rulesErrors.NewDataAccessError(it.name, "read", err)
	}
	return false
}

func (it *jsonlIterator) Record() engine.Record { return it.current }

func (it *jsonlIterator) Err() error { return it.err }

func (it *jsonlIterator) Close() error {
	if it.file == nil {
		return nil
	}
	err := it.file.Close()
	it.file = nil
	return err
}

func normalizeJSONID(id any) any {
	if n, ok := id.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i
		}
		return n.String()
	}
	return id
}
