// Package pagination provides the paginated loader behind the infinite-scroll
// gallery.
//
// A Loader fetches fixed-size pages (PageSize items) from the catalog, one at
// a time, and appends them to an in-memory list. It owns the list, the page
// cursor and the load state; everything else reads immutable snapshots.
//
//	Idle --load--> Loading --items--> Idle
//	                       --empty--> Exhausted (terminal)
//	                       --error--> Idle (retry on next trigger)
//
// Loads are started by a visibility trigger watching a sentinel at the end of
// the rendered list:
//
//	loader := pagination.NewLoader(client, pagination.Config{OnChange: render})
//	if err := loader.Activate(ctx, edge, "list-end"); err != nil {
//		return err
//	}
//	defer loader.Deactivate()
//
// A load requested while another is in flight is a no-op, so a trigger that
// fires twice in quick succession produces a single request. Results that
// arrive after Deactivate are discarded.
package pagination
