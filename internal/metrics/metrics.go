// Package metrics provides application-level counters using stdlib expvar.
// Counters are automatically exported on the /debug/vars HTTP endpoint
// when expvar's handler is mounted in the serving binary.
package metrics

import "expvar"

// Operation counters.
var (
	SearchTotal   = expvar.NewInt("tarix_search_total")
	LookupTotal   = expvar.NewInt("tarix_lookup_total")
	AnswerTotal   = expvar.NewInt("tarix_answer_total")
	IndexedRows   = expvar.NewInt("tarix_indexed_rows_total")
	EmbedFailures = expvar.NewInt("tarix_embed_failures_total")
)

// Inc increments the given counter by 1.
func Inc(counter *expvar.Int) { counter.Add(1) }
