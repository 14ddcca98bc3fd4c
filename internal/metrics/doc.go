// Package metrics exports graph activity as Prometheus metrics.
//
// Collector implements graph.Observer; install it with graph.WithObserver.
// Metrics are labelled by change type only. Slot numbers are recycled and
// would make poor label values.
package metrics
