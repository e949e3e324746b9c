// Package infra contains technical adapters: allocation stores, the
// snapshot loader, metrics sinks, the MQTT notifier and Sentry. These
// packages should depend only on the interfaces defined in the core packages.
package infra
