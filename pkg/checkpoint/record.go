package checkpoint

// FieldTaskCount is the record field holding a worker's committed task count
const FieldTaskCount = "task_count"

// Record is the persisted progress of one worker: an open mapping of field name to value.
// Saves merge records field by field, so fields other than task_count survive untouched.
type Record map[string]int

// NewRecord returns the record of a worker that has never saved
func NewRecord() Record {
	return Record{FieldTaskCount: 0}
}

// TaskCount returns the task_count field, zero when absent
func (r Record) TaskCount() int {
	return r[FieldTaskCount]
}

// Clone returns an independent copy of r
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge copies every field of partial into r, overwriting fields present in both, and returns r
func (r Record) Merge(partial Record) Record {
	for k, v := range partial {
		r[k] = v
	}
	return r
}
