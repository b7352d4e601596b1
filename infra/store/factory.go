// Package store provides the file and database backed report stores. Importing
// it registers the "jsonl" and "sqlite" backends with core/store.
package store

import (
	"fmt"

	"github.com/kilianp07/cityguard/core/factory"
	corestore "github.com/kilianp07/cityguard/core/store"
)

func init() {
	_ = corestore.Register("jsonl", func(conf map[string]any) (corestore.ReportStore, error) {
		var c struct {
			Path string `json:"path"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			return nil, fmt.Errorf("jsonl store: path is required")
		}
		return NewJSONLStore(c.Path)
	})

	_ = corestore.Register("sqlite", func(conf map[string]any) (corestore.ReportStore, error) {
		var c struct {
			DSN string `json:"dsn"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.DSN == "" {
			return nil, fmt.Errorf("sqlite store: dsn is required")
		}
		return NewSQLiteStore(c.DSN)
	})
}
