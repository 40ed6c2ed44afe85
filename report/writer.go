package report

// Writer is the C6 output sink the fusion controller emits every tagged
// Record through. DumpAtTU/DumpAtMU/DumpStdDev, independently settable per
// spec.md §4.6/§6, govern which transitions and which extra columns a
// concrete Writer actually emits; an implementation that wants no
// filtering at all can just ignore those and write unconditionally.
type Writer interface {
	Write(r Record)
	Close() error
}

// Filter wraps a Writer so only the transitions and columns spec.md §6's
// --dump_update/--dump_correct/--dump_stddev flags select actually reach
// it, without every Writer implementation re-deriving this policy.
type Filter struct {
	Next       Writer
	DumpAtTU   bool
	DumpAtMU   bool
	DumpStdDev bool
}

// Write drops Records whose tag isn't enabled, and strips StdDev from
// Records that survive when DumpStdDev is off.
func (f *Filter) Write(r Record) {
	switch r.Tag {
	case "TU", "BP_TU":
		if !f.DumpAtTU {
			return
		}
	case "MU", "BP_MU":
		if !f.DumpAtMU {
			return
		}
	}
	if !f.DumpStdDev {
		r.HasStdDev = false
		r.StdDev = nil
	}
	f.Next.Write(r)
}

// Close closes the wrapped Writer.
func (f *Filter) Close() error { return f.Next.Close() }
