// Package dag holds the stage graph of the bootstrap pipeline: a small,
// concurrency-safe directed acyclic graph keyed by stage name. The pipeline
// uses it to validate declared dependencies and to derive a deterministic
// start order.
package dag
