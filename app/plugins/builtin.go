package plugins

import (
	"context"
	"time"

	"github.com/kilianp07/cellsched/core/allocation"
	"github.com/kilianp07/cellsched/core/factory"
	"github.com/kilianp07/cellsched/core/runlog"
	"github.com/kilianp07/cellsched/infra/store/postgres"
	"github.com/kilianp07/cellsched/infra/store/sqlite"
)

// connectTimeout bounds the initial PostgreSQL connection and migration.
const connectTimeout = 10 * time.Second

type storeConf struct {
	Path string `json:"path"`
	DSN  string `json:"dsn"`
}

type runLogConf struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

func init() {
	_ = RegisterStore("memory", func(map[string]any) (allocation.Store, error) {
		return allocation.NewMemoryStore(), nil
	})
	_ = RegisterStore("sqlite", func(conf map[string]any) (allocation.Store, error) {
		var c storeConf
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return sqlite.New(c.Path)
	})
	_ = RegisterStore("postgres", func(conf map[string]any) (allocation.Store, error) {
		var c storeConf
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		return postgres.Open(ctx, c.DSN)
	})

	_ = RegisterRunLog("none", func(map[string]any) (runlog.Store, error) {
		return runlog.NopStore{}, nil
	})
	_ = RegisterRunLog("jsonl", func(conf map[string]any) (runlog.Store, error) {
		var c runLogConf
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return runlog.NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
	})
	_ = RegisterRunLog("sqlite", func(conf map[string]any) (runlog.Store, error) {
		var c runLogConf
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return runlog.NewSQLiteStore(c.Path)
	})
}
