package source

import (
	"context"

	"mercator-hq/tablint/pkg/rules/engine"
)

// Memory is a source over records held in memory.
type Memory struct {
	name    string
	records []engine.Record
}

// NewMemory returns a source over records. Records carry their identifier
// already, so the idField passed to Records is ignored.
func NewMemory(name string, records []engine.Record) *Memory {
	return &Memory{name: name, records: records}
}

func (m *Memory) Name() string { return "memory:" + m.name }

func (m *Memory) Records(_ context.Context, fields []string, _ string) (Iterator, error) {
	projected := make([]engine.Record, len(m.records))
	for i, r := range m.records {
		values := make(map[string]any, len(fields))
		for _, f := range fields {
			if v, ok := r.Values[f]; ok {
				values[f] = v
			}
		}
		projected[i] = engine.Record{ID: r.ID, Values: values}
	}
	return &memoryIterator{SliceIterator: engine.NewSliceIterator(projected)}, nil
}

func (m *Memory) Close() error { return nil }

type memoryIterator struct {
	*engine.SliceIterator
}

func (it *memoryIterator) Close() error { return nil }
