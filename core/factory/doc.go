// Package factory provides a small generic registry used to instantiate modules
// from configuration. Modules are defined by a type string and a map of raw
// settings. Factories decode the settings into typed structs and return the
// concrete implementation.
//
// Example usage:
//
//	reg := factory.NewRegistry[store.ReportStore]()
//	reg.Register("jsonl", func(conf map[string]any) (store.ReportStore, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return store.NewJSONLStore(c.Path)
//	})
//	r, err := reg.Create(factory.ModuleConfig{Type: "jsonl", Conf: map[string]any{"path": "foo"}})
package factory
