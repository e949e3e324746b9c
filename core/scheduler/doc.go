// Package scheduler implements the capacity-aware greedy planner. An Engine
// is built per invocation from an immutable Snapshot; Run orders jobs by
// effective due date, walks forward through the calendar reserving cell
// capacity day by day and returns the planned operations together with the
// per-operation failures. The engine performs no I/O.
package scheduler
