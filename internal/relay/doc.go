// Package relay pushes published snapshots to external sinks such as a Redis
// key or a NATS subject.
//
// The relay holds at most one pending snapshot. A newer snapshot replaces an
// undelivered older one, so a slow sink never backs up the scheduler.
package relay
