package badger

import (
	"sync"

	"github.com/poiesic/docit/plugin"
)

const defaultPath = "docit-data"

// Descriptors advertises the document and structured stores under the
// name "badger". Both factories share one lazily opened backend so a
// settings file naming "badger" for both groups gets a single database
// directory.
func Descriptors() []plugin.Descriptor {
	var (
		once    sync.Once
		backend *Backend
		openErr error
	)
	open := func(cfg plugin.Config) (*Backend, error) {
		once.Do(func() {
			backend, openErr = OpenBackend(
				cfg.String("path", defaultPath),
				cfg.Bool("in_memory", false),
			)
		})
		return backend, openErr
	}

	schema := plugin.Schema{
		{Key: "path", Kind: plugin.KindString, Default: defaultPath, Description: "database directory"},
		{Key: "in_memory", Kind: plugin.KindBool, Default: false, Description: "keep all data in memory, ignoring path"},
	}

	return []plugin.Descriptor{
		{
			Name:  "badger",
			Group: plugin.GroupDocumentStores,
			Factory: func(cfg plugin.Config) (any, error) {
				b, err := open(cfg)
				if err != nil {
					return nil, err
				}
				return NewDocumentStore(b), nil
			},
			Schema: schema,
		},
		{
			Name:  "badger",
			Group: plugin.GroupStructuredStores,
			Factory: func(cfg plugin.Config) (any, error) {
				b, err := open(cfg)
				if err != nil {
					return nil, err
				}
				return NewStructuredStore(b), nil
			},
			Schema: schema,
		},
	}
}
