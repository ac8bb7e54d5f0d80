package asset

import "sort"

// Registry is the ordered set of records of one batch. It is append-only
// until Sort, after which only the records themselves change.
type Registry struct {
	records []*Record
	sorted  bool
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Add(rec *Record) {
	r.records = append(r.records, rec)
}

func (r *Registry) Len() int {
	return len(r.records)
}

// Records returns the records in registry order. The slice is shared.
func (r *Registry) Records() []*Record {
	return r.records
}

// Sort orders records by unique key length, longest first. Ties keep
// ingestion order.
func (r *Registry) Sort() {
	sort.SliceStable(r.records, func(i, j int) bool {
		return len(r.records[i].UniqueKey) > len(r.records[j].UniqueKey)
	})
	r.sorted = true
}

func (r *Registry) Sorted() bool {
	return r.sorted
}
