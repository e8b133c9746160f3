package stats

import (
	"sort"
	"sync"

	"github.com/kolkov/lockelide/internal/elide/htm"
	"github.com/kolkov/lockelide/internal/elide/scope"
)

// Registry maps scope names to their Counters.
//
// Implementation:
//   - Uses sync.Map: names are a small, stable set and lookups vastly
//     outnumber insertions
//   - Counters are allocated on first use of a name and never freed
//
// Thread Safety: All methods are safe for concurrent calls.
type Registry struct {
	counters sync.Map // string -> *Counters
}

var _ scope.Observer = (*Registry)(nil)

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// GetOrCreate returns the counters for name, creating them if needed.
// Concurrent callers racing on a new name all get the same Counters.
func (r *Registry) GetOrCreate(name string) *Counters {
	if v, ok := r.counters.Load(name); ok {
		return v.(*Counters)
	}
	v, _ := r.counters.LoadOrStore(name, &Counters{})
	return v.(*Counters)
}

// Snapshot returns the counters of name. An unknown name yields zero
// counts.
func (r *Registry) Snapshot(name string) Snapshot {
	if v, ok := r.counters.Load(name); ok {
		return v.(*Counters).Snapshot(name)
	}
	return (&Counters{}).Snapshot(name)
}

// Snapshots returns the counters of every known name, sorted by name.
func (r *Registry) Snapshots() []Snapshot {
	var out []Snapshot
	r.Range(func(name string, c *Counters) bool {
		out = append(out, c.Snapshot(name))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Range calls fn for each name until fn returns false.
func (r *Registry) Range(fn func(name string, c *Counters) bool) {
	r.counters.Range(func(k, v interface{}) bool {
		return fn(k.(string), v.(*Counters))
	})
}

// Reset zeroes every counter. Names stay registered, so Counters handed
// out earlier keep counting into the registry.
func (r *Registry) Reset() {
	r.Range(func(_ string, c *Counters) bool {
		c.reset()
		return true
	})
}

// Aborted implements scope.Observer.
func (r *Registry) Aborted(name string, s htm.Status) {
	r.GetOrCreate(name).RecordAbort(s)
}

// Fenced implements scope.Observer.
func (r *Registry) Fenced(name string) {
	r.GetOrCreate(name).RecordFence()
}

// Committed implements scope.Observer.
func (r *Registry) Committed(name string) {
	r.GetOrCreate(name).RecordCommit()
}

// FellBack implements scope.Observer.
func (r *Registry) FellBack(name string, reason scope.FallbackReason) {
	r.GetOrCreate(name).RecordFallback(reason)
}
