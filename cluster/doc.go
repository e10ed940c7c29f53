// Package cluster groups the items of one merge pass into clusters.
//
// Every target-class item and every pass-through item becomes a node.
// Adjacent nodes (see [spatial.Adjacent]) are joined with a disjoint-set
// forest, so two target items end up in the same cluster when they touch
// directly or through a chain of pass-through items. Pass-through nodes only
// bridge: they are never cluster members. In table merge mode pass-through
// items that lie inside a cluster's union box are attached to it as
// non-voting members.
//
// Basic usage:
//
//	engine := cluster.NewEngine()
//	clusters := engine.Cluster(items, plan.Passes[0])
//	for _, c := range clusters {
//	    fmt.Println(c.Target, c.Members, c.PassThrough)
//	}
package cluster
