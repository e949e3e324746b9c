package metrics

import (
	"fmt"
	"strconv"

	"github.com/kilianp07/cellsched/core/factory"
)

// Config defines metrics sinks and the Prometheus endpoint.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusPort exposes /metrics when non-empty.
	PrometheusPort string `json:"prometheus_port"`
}

// Validate checks the port and that every sink names a type.
func (c Config) Validate() error {
	if c.PrometheusPort != "" {
		if p, err := strconv.Atoi(c.PrometheusPort); err != nil || p <= 0 || p > 65535 {
			return fmt.Errorf("metrics.prometheus_port invalid: %q", c.PrometheusPort)
		}
	}
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics.sinks[%d].type is required", i)
		}
	}
	return nil
}

// Addr returns the listen address of the Prometheus server.
func (c Config) Addr() string {
	if c.PrometheusPort == "" {
		return ""
	}
	return ":" + c.PrometheusPort
}
