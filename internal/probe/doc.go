// Package probe performs the per-instance network calls of a monitoring cycle.
//
// Prober checks an instance's health endpoint and returns a tri-state Result
// (reachable and healthy, reachable but unhealthy, unreachable). Sampler reads
// an instance's traffic statistics and returns the active user count, or an
// unknown count when it could not be read.
//
// Both enforce their timeout strictly through the request context and never
// return errors: every failure mode is folded into the returned value. Neither
// retries; the scheduler's cadence is the retry policy.
package probe
