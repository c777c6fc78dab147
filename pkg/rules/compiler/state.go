package compiler

// State holds the failure sets of one evaluation run. It is owned by a
// single run and is not safe for concurrent use.
type State struct {
	plan *Plan

	fieldFailures [][]any
	fieldIndex    []map[any]struct{}
	groupFailures [][]any
}

// NewState returns empty accumulators for one run over p.
func (p *Plan) NewState() *State {
	s := &State{
		plan:          p,
		fieldFailures: make([][]any, len(p.Bindings)),
		fieldIndex:    make([]map[any]struct{}, len(p.Bindings)),
		groupFailures: make([][]any, len(p.Groups)),
	}
	for i := range p.Bindings {
		s.fieldFailures[i] = []any{}
		s.fieldIndex[i] = make(map[any]struct{})
	}
	for i := range p.Groups {
		s.groupFailures[i] = []any{}
	}
	return s
}

// Plan returns the plan the state was created from.
func (s *State) Plan() *Plan { return s.plan }

// AddFieldFailure appends id to the failure set of binding i. id must be
// comparable.
func (s *State) AddFieldFailure(i int, id any) {
	s.fieldFailures[i] = append(s.fieldFailures[i], id)
	s.fieldIndex[i][id] = struct{}{}
}

// FieldFailed reports whether binding i's failure set contains id.
func (s *State) FieldFailed(i int, id any) bool {
	_, ok := s.fieldIndex[i][id]
	return ok
}

// AddGroupFailure appends id to the failure set of group g.
func (s *State) AddGroupFailure(g int, id any) {
	s.groupFailures[g] = append(s.groupFailures[g], id)
}

// FieldFailures returns binding i's failure set in insertion order.
func (s *State) FieldFailures(i int) []any {
	return s.fieldFailures[i]
}

// GroupFailures returns group g's failure set in insertion order.
func (s *State) GroupFailures(g int) []any {
	return s.groupFailures[g]
}

// FieldViolations returns the total number of field failure entries.
func (s *State) FieldViolations() int {
	n := 0
	for _, f := range s.fieldFailures {
		n += len(f)
	}
	return n
}

// GroupViolations returns the total number of group failure entries.
func (s *State) GroupViolations() int {
	n := 0
	for _, g := range s.groupFailures {
		n += len(g)
	}
	return n
}
