// Package aggregator runs one monitoring cycle over every configured instance.
//
// A cycle probes all instances concurrently, samples traffic only from the
// instances found healthy, and folds both into a snapshot.Snapshot. Every
// call is bounded by its own timeout and the fan-out waits for all of them to
// settle, so a cycle takes roughly probeTimeout + sampleTimeout no matter how
// many instances are down. Per-instance failures are data; only configuration
// problems make RunCycle return an error.
package aggregator
