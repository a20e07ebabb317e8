package model

import (
	"sort"
	"time"
)

// OutcomeStatus labels what happened to one resource during a cycle.
type OutcomeStatus string

const (
	OutcomeOK              OutcomeStatus = "ok"
	OutcomeStatic          OutcomeStatus = "static"
	OutcomeEmpty           OutcomeStatus = "empty"
	OutcomeDecodeError     OutcomeStatus = "decode_error"
	OutcomeInvalidResponse OutcomeStatus = "invalid_response"
	OutcomeUnauthorized    OutcomeStatus = "unauthorized"
	OutcomeTransportError  OutcomeStatus = "transport_error"
)

// Outcome is the per-resource result of a cycle.
type Outcome struct {
	Status OutcomeStatus `json:"status"`
	Items  int           `json:"items"`
	Error  string        `json:"error,omitempty"`
}

// Snapshot is the full, atomic result of one poll cycle.
// It is built once and never mutated after being published.
type Snapshot struct {
	CycleID   string           `json:"cycle_id"`
	FetchedAt time.Time        `json:"fetched_at"`
	Records   map[Kind]Record  `json:"records"`
	Outcomes  map[Kind]Outcome `json:"outcomes"`
}

// NewSnapshot copies records and outcomes into a fresh snapshot.
func NewSnapshot(cycleID string, fetchedAt time.Time, records map[Kind]Record, outcomes map[Kind]Outcome) Snapshot {
	s := Snapshot{
		CycleID:   cycleID,
		FetchedAt: fetchedAt,
		Records:   make(map[Kind]Record, len(records)),
		Outcomes:  make(map[Kind]Outcome, len(outcomes)),
	}
	for k, r := range records {
		if r != nil {
			s.Records[k] = r
		}
	}
	for k, o := range outcomes {
		s.Outcomes[k] = o
	}
	return s
}

// Get returns the record for k, if present.
func (s Snapshot) Get(k Kind) (Record, bool) {
	r, ok := s.Records[k]
	return r, ok
}

// Has reports whether k produced a record this cycle.
func (s Snapshot) Has(k Kind) bool {
	_, ok := s.Records[k]
	return ok
}

// Len returns the number of records.
func (s Snapshot) Len() int { return len(s.Records) }

// IsZero reports whether no cycle has produced this snapshot yet.
func (s Snapshot) IsZero() bool { return s.CycleID == "" && len(s.Records) == 0 }

// Kinds returns the kinds present, in fetch order.
func (s Snapshot) Kinds() []Kind {
	out := make([]Kind, 0, len(s.Records))
	for k := range s.Records {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Ring returns the ring configuration record, if present.
func (s Snapshot) Ring() (RingConfiguration, bool) {
	r, ok := s.Records[KindRing].(RingConfiguration)
	return r, ok
}
