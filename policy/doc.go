// Package policy declares how each target class is merged.
//
// A [Policy] names a target class, the pass-through classes whose
// detections may sit between two target detections without breaking their
// cluster, whether table merge mode is on, and whether the class bears a
// header. A [Plan] is an ordered list of policies. Passes run in plan order
// and each pass consumes the output of the previous one, so the order is
// part of the contract:
//
//	plan := policy.DefaultPlan() // Table, then Figure
//	if err := plan.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
// Plans can also be read from YAML:
//
//	margin: 10
//	passes:
//	  - target: Table
//	    pass_through: [Figure, Section Header, Page Footer, Page Header]
//	    table_merge: true
//	    header_bearing: true
//	  - target: Figure
//	    header_bearing: false
package policy
