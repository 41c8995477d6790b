package gp

import (
	"github.com/YuminosukeSato/gpseq/pkg/errors"
)

// SequenceSet is an ordered collection of unique sequence identifiers, each
// resolving to an opaque sequence representation. The representation is only
// ever interpreted by the Kernel; the model treats it as a payload.
type SequenceSet struct {
	ids  []string
	seqs map[string]interface{}
}

// NewSequenceSet creates an empty SequenceSet.
func NewSequenceSet() *SequenceSet {
	return &SequenceSet{seqs: make(map[string]interface{})}
}

// Add appends a sequence under the given identifier.
// Duplicate identifiers are rejected.
func (s *SequenceSet) Add(id string, seq interface{}) error {
	if id == "" {
		return errors.NewValueError("SequenceSet.Add", "identifier must not be empty")
	}
	if _, ok := s.seqs[id]; ok {
		return errors.NewValidationError("id", "duplicate sequence identifier", id)
	}
	s.ids = append(s.ids, id)
	s.seqs[id] = seq
	return nil
}

// Len returns the number of sequences in the set.
func (s *SequenceSet) Len() int {
	return len(s.ids)
}

// IDs returns the identifiers in insertion order.
func (s *SequenceSet) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Has reports whether the identifier is present.
func (s *SequenceSet) Has(id string) bool {
	_, ok := s.seqs[id]
	return ok
}

// Get returns the sequence stored under the identifier.
func (s *SequenceSet) Get(id string) (interface{}, bool) {
	seq, ok := s.seqs[id]
	return seq, ok
}

// At returns the identifier and sequence at position i.
func (s *SequenceSet) At(i int) (string, interface{}) {
	id := s.ids[i]
	return id, s.seqs[id]
}

// Subset returns a new SequenceSet containing the given identifiers in the
// given order. Unknown identifiers are an error.
func (s *SequenceSet) Subset(ids []string) (*SequenceSet, error) {
	out := NewSequenceSet()
	for _, id := range ids {
		seq, ok := s.seqs[id]
		if !ok {
			return nil, errors.NewValidationError("id", "identifier not in sequence set", id)
		}
		if err := out.Add(id, seq); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Clone returns a copy sharing the (immutable) sequence payloads.
func (s *SequenceSet) Clone() *SequenceSet {
	out := NewSequenceSet()
	out.ids = make([]string, len(s.ids))
	copy(out.ids, s.ids)
	for id, seq := range s.seqs {
		out.seqs[id] = seq
	}
	return out
}
