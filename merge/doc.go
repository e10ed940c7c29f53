// Package merge runs a merge plan over the detections of one page.
//
// [Merger.MergePage] filters malformed detections, lifts the rest into
// singleton items, then runs every pass of the plan in order. Each pass
// clusters its target class, builds merged objects and replaces the
// clustered and absorbed items by those objects; all other items flow
// through to the next pass untouched. Whatever is left at the end is
// emitted in reading order with deterministic IDs.
//
// The result depends only on the page ID and its detections, so running the
// merger twice over the same page yields identical output.
//
//	m, err := merge.New(policy.DefaultPlan())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res := m.MergePage(page)
//	fmt.Printf("%d detections merged into %d objects\n", res.InputCount, len(res.Objects))
package merge
