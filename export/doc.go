// Package export renders merged pages for downstream consumers.
//
// [Retrieval] flattens merged objects into the per-detection records served
// by the search API, optionally with PNG crops of the page image. [HTML]
// renders a page as a standalone HTML document, one section per merged
// object. [Annotate] draws object and member boxes over the page image for
// visual inspection.
package export
