package models

import "sort"

// Names of the sub-models whose votes are recorded in the ledger
const (
	ModelTrend  = "trend"
	ModelShort  = "short"
	ModelMean   = "mean"
	ModelSwitch = "switch"
	ModelBridge = "bridge"

	// ModelClassifier participates in the ensemble but is never scored
	ModelClassifier = "classifier"
)

// TrackedModels lists the ledger-tracked sub-models in evaluation order
var TrackedModels = []string{ModelTrend, ModelShort, ModelMean, ModelSwitch, ModelBridge}

// Ledger maps a sub-model name to the vote it cast for each round id, where
// the id is the last round seen at prediction time.
type Ledger map[string]map[int64]Direction

// NewLedger creates an empty ledger with a slot for every tracked model
func NewLedger() Ledger {
	l := make(Ledger, len(TrackedModels))
	for _, name := range TrackedModels {
		l[name] = make(map[int64]Direction)
	}
	return l
}

// Ensure returns a ledger with a slot for every tracked model, allocating
// one when l is nil. Existing entries are kept.
func (l Ledger) Ensure() Ledger {
	if l == nil {
		return NewLedger()
	}
	for _, name := range TrackedModels {
		if l[name] == nil {
			l[name] = make(map[int64]Direction)
		}
	}
	return l
}

// Record stores the vote a model cast while roundID was the latest round
func (l Ledger) Record(model string, roundID int64, direction Direction) {
	votes, ok := l[model]
	if !ok {
		votes = make(map[int64]Direction)
		l[model] = votes
	}
	votes[roundID] = direction
}

// Lookup returns the vote stored for a model and round
func (l Ledger) Lookup(model string, roundID int64) (Direction, bool) {
	votes, ok := l[model]
	if !ok {
		return DirectionNone, false
	}
	d, ok := votes[roundID]
	return d, ok
}

// Has reports whether the ledger holds a slot for the model
func (l Ledger) Has(model string) bool {
	_, ok := l[model]
	return ok
}

// Size returns the number of votes stored for a model
func (l Ledger) Size(model string) int {
	return len(l[model])
}

// Clone returns a deep copy of the ledger
func (l Ledger) Clone() Ledger {
	if l == nil {
		return nil
	}
	out := make(Ledger, len(l))
	for name, votes := range l {
		cp := make(map[int64]Direction, len(votes))
		for id, d := range votes {
			cp[id] = d
		}
		out[name] = cp
	}
	return out
}

// Prune drops the oldest votes so that each model keeps at most keep round
// ids, returning how many votes were removed. keep <= 0 disables pruning.
func (l Ledger) Prune(keep int) int {
	if keep <= 0 {
		return 0
	}
	removed := 0
	for _, votes := range l {
		if len(votes) <= keep {
			continue
		}
		ids := make([]int64, 0, len(votes))
		for id := range votes {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids[:len(ids)-keep] {
			delete(votes, id)
			removed++
		}
	}
	return removed
}

// Entries returns the total number of votes held across all models
func (l Ledger) Entries() int {
	total := 0
	for _, votes := range l {
		total += len(votes)
	}
	return total
}
