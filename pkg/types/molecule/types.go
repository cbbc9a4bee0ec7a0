// Package molecule defines the fragment-decomposition Data Transfer Objects
// shared by every layer of autofragment: the per-molecule fragment table, the
// batch result, and the request/response envelopes used by the HTTP and
// Kafka surfaces.  No domain logic lives here, only plain data types that are
// safe to import from any layer.
package molecule

import "sort"

// ─────────────────────────────────────────────────────────────────────────────
// FragmentCountMap: sparse per-molecule feature vector
// ─────────────────────────────────────────────────────────────────────────────

// FragmentCountMap maps a canonical fragment string to the number of atoms
// whose environment rendered to it.  Values are always positive.
type FragmentCountMap map[string]int

// Total returns the sum of all counts, which equals the heavy-atom count of
// the molecule the map was computed for.
func (m FragmentCountMap) Total() int {
	total := 0
	for _, n := range m {
		total += n
	}
	return total
}

// Keys returns the fragment strings in sorted order.
func (m FragmentCountMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge adds every count of other into m.
func (m FragmentCountMap) Merge(other FragmentCountMap) {
	for k, n := range other {
		m[k] += n
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// DecompositionResult: batch output
// ─────────────────────────────────────────────────────────────────────────────

// Failure records why one molecule could not be decomposed.
type Failure struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// DecompositionResult is the outcome of decomposing a batch of molecules.
// Fragments holds an entry for every molecule that succeeded; FailedIDs lists
// every molecule that did not, in sorted id order.  Failures carries the same
// ids with the error code and message that caused them.
type DecompositionResult struct {
	RunID     string                      `json:"run_id,omitempty"`
	Radius    int                         `json:"radius"`
	Fragments map[string]FragmentCountMap `json:"fragments"`
	FailedIDs []string                    `json:"failed_ids"`
	Failures  []Failure                   `json:"failures,omitempty"`
}

// NewDecompositionResult returns an empty result for the given radius.
func NewDecompositionResult(radius int) *DecompositionResult {
	return &DecompositionResult{
		Radius:    radius,
		Fragments: make(map[string]FragmentCountMap),
		FailedIDs: []string{},
	}
}

// Stats summarises a DecompositionResult.
type Stats struct {
	Molecules         int `json:"molecules"`
	Succeeded         int `json:"succeeded"`
	Failed            int `json:"failed"`
	DistinctFragments int `json:"distinct_fragments"`
	TotalAtoms        int `json:"total_atoms"`
}

// Stats computes summary statistics over r.
func (r *DecompositionResult) Stats() Stats {
	distinct := make(map[string]struct{})
	atoms := 0
	for _, m := range r.Fragments {
		for k, n := range m {
			distinct[k] = struct{}{}
			atoms += n
		}
	}
	return Stats{
		Molecules:         len(r.Fragments) + len(r.FailedIDs),
		Succeeded:         len(r.Fragments),
		Failed:            len(r.FailedIDs),
		DistinctFragments: len(distinct),
		TotalAtoms:        atoms,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Wire envelopes
// ─────────────────────────────────────────────────────────────────────────────

// DecomposeRequest asks for a batch decomposition.  Molecules maps an opaque
// identifier to a SMILES string.
type DecomposeRequest struct {
	RunID      string            `json:"run_id,omitempty"`
	Radius     *int              `json:"radius,omitempty"`
	Cumulative bool              `json:"cumulative,omitempty"`
	Molecules  map[string]string `json:"molecules"`
}

// DecomposeResponse carries a finished batch.
type DecomposeResponse struct {
	Result *DecompositionResult `json:"result"`
	Stats  Stats                `json:"stats"`
	// Location names the stored copy of Result when it was uploaded.
	Location string `json:"location,omitempty"`
}

// CountRequest asks for the fragment table of a single structure.
type CountRequest struct {
	SMILES     string `json:"smiles"`
	Radius     *int   `json:"radius,omitempty"`
	Cumulative bool   `json:"cumulative,omitempty"`
}

// CountResponse is the fragment table of a single structure.
type CountResponse struct {
	SMILES    string           `json:"smiles"`
	Radius    int              `json:"radius"`
	Fragments FragmentCountMap `json:"fragments"`
}

//Personal.AI order the ending
