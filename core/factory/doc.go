// Package factory provides a small generic registry used to build pluggable
// modules (allocation stores, metrics sinks) from configuration. A module is
// described by a type string and a map of raw settings; its factory decodes
// the settings into a typed struct and returns the implementation.
//
// Example usage:
//
//	stores := factory.NewRegistry[allocation.Store]()
//	stores.Register("sqlite", func(conf map[string]any) (allocation.Store, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return sqlite.New(c.Path)
//	})
//	s, err := stores.Create(factory.ModuleConfig{Type: "sqlite", Conf: map[string]any{"path": "plans.db"}})
package factory
