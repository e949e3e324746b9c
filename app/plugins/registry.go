// Package plugins maps configuration backend names to store implementations.
package plugins

import (
	"github.com/kilianp07/cellsched/core/allocation"
	"github.com/kilianp07/cellsched/core/factory"
	"github.com/kilianp07/cellsched/core/runlog"
)

var (
	// Stores builds allocation stores from a raw configuration map.
	Stores = factory.NewRegistry[allocation.Store]()
	// RunLogs builds run log stores from a raw configuration map.
	RunLogs = factory.NewRegistry[runlog.Store]()
)

func RegisterStore(name string, f factory.Factory[allocation.Store]) error {
	return Stores.Register(name, f)
}

func RegisterRunLog(name string, f factory.Factory[runlog.Store]) error {
	return RunLogs.Register(name, f)
}

// NewStore builds the allocation store named by cfg.Type.
func NewStore(cfg factory.ModuleConfig) (allocation.Store, error) { return Stores.Create(cfg) }

// NewRunLog builds the run log store named by cfg.Type.
func NewRunLog(cfg factory.ModuleConfig) (runlog.Store, error) { return RunLogs.Create(cfg) }
