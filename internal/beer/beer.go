// Package beer implements the fermentation decision contract from
// spec.md §3/§4.C: given the freshest gravity/temperature samples, decide
// whether heating or cooling is required. A Beer holds a non-owning handle
// to the DataSource it reads from (see Binding in source.go) and pulls its
// own samples on every Evaluate call, rather than being handed a reading
// by its Manager.
package beer

import "context"

// Decision is the result of one Beer evaluation.
type Decision struct {
	RequiresHeating bool
	RequiresCooling bool

	// Contradiction is true if both RequiresHeating and RequiresCooling
	// were independently true before the Manager's forced-off rule was
	// applied — always a Beer implementation bug (spec.md §7/§8).
	Contradiction bool
}

// Beer evaluates a fermentation's current state against its target curve
// and decides whether heating, cooling, neither, or both (a
// contradiction) are required.
type Beer interface {
	// Name returns the configured name of this Beer.
	Name() string

	// Evaluate reads the Beer's bound DataSource and returns the
	// heating/cooling decision. A read failure or missing sample degrades
	// to Decision{} (both false) per spec.md §4.C, never an error return
	// to the Manager — DataSource faults are tick-local.
	Evaluate(ctx context.Context) (Decision, error)

	// CheckFreshness reports whether the most recently polled sample
	// exceeded data_age_warning_time (spec.md §4.C's check_freshness()).
	CheckFreshness() bool
}
