// Package adapt derives diff streams from diff streams.
//
// Each constructor takes the upstream's current values and its
// [vector.Stream], and returns the derived values together with an
// [Adapter] that turns every upstream diff into the diffs of the derived
// sequence. Adapters are streams themselves, so they chain:
//
//	values, sub := o.Subscribe()
//	values, evens := adapt.Filter(values, sub, isEven)
//	values, sorted := adapt.Sort(values, evens)
//	values, top := adapt.Head(values, sorted, 10)
//
// Applying an adapter's diffs to its initial values always yields the
// adapter's function of the upstream's current values. No adapter
// recomputes its output from scratch except on an upstream reset.
//
// # Ordering
//
// Sort, SortBy and SortByKey order equal elements by their upstream
// position, so the output is the stable sort of the upstream.
//
// # Windows
//
// Head, Tail and Skip keep a copy of the upstream values, so an element
// leaving the window is backfilled from just outside it. The dynamic
// variants take their size from a channel; when the channel is closed the
// last size stays in effect.
package adapt
