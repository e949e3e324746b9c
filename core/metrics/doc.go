// Package metrics defines the sinks that observe scheduling runs. Sinks such
// as PromSink and InfluxSink record run outcomes, persistence timings and
// per cell utilisation; several sinks combine with NewMultiSink. The factory
// helpers build a MultiSink automatically when more than one sink is
// configured.
package metrics
