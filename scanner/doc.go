// Package scanner merges every eligible page of a corpus exactly once.
//
// A [Scanner] pulls postprocessed, unmerged pages from a [Repository] in
// batches ordered by page ID, merges each page on a bounded worker pool and
// commits the result. Every page ends a scan in one of three outcomes:
//
//   - merged: objects committed and the merged flag set
//   - skipped: the page is not ready (not postprocessed, or no detection
//     list); nothing is written and the page is not retried in the same scan
//   - failed: the commit returned an error; the page stays unmerged and is
//     selected again by the next scan
//
// A scan never aborts because of one page. Only a failing fetch or a
// cancelled context ends it early, and pages already dispatched still finish.
//
// Basic usage:
//
//	sc, err := scanner.New(repo, merger, scanner.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	report, err := sc.Scan(ctx)
//	fmt.Println(report)
package scanner
