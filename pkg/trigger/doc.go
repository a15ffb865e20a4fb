// Package trigger implements the visibility trigger that drives infinite
// scrolling: a sensor that reports when a sentinel marker at the end of a
// rendered list becomes visible.
//
// Handlers fire at most once per hidden-to-visible transition and re-arm
// when the sentinel is hidden again. Hosts push visibility changes into an
// Edge (an interactive view reporting after every scroll), or let a Poller
// sample visibility checks on an interval:
//
//	edge := trigger.NewEdge()
//	_ = edge.Observe("list-end", func() { go loader.LoadNext(ctx) })
//	edge.Report("list-end", true) // fires
//	edge.Report("list-end", true) // still visible, no-op
//	edge.Report("list-end", false)
//	edge.Report("list-end", true) // fires again
package trigger
