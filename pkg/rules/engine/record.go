package engine

// Record is one row of the dataset: an identifier plus field values.
// Fields absent from Values are not evaluated for that record.
type Record struct {
	ID     any
	Values map[string]any
}

// Iterator yields records in the source's natural order. It is exhausted
// exactly once.
type Iterator interface {
	// Next advances to the next record and reports whether there is one.
	Next() bool

	// Record returns the current record.
	Record() Record

	// Err returns the error that stopped iteration, if any.
	Err() error
}

// SliceIterator iterates over records held in memory.
type SliceIterator struct {
	records []Record
	pos     int
}

// NewSliceIterator returns an iterator over records.
func NewSliceIterator(records []Record) *SliceIterator {
	return &SliceIterator{records: records, pos: -1}
}

func (it *SliceIterator) Next() bool {
	if it.pos+1 >= len(it.records) {
		it.pos = len(it.records)
		return false
	}
	it.pos++
	return true
}

func (it *SliceIterator) Record() Record {
	return it.records[it.pos]
}

func (it *SliceIterator) Err() error {
	return nil
}
