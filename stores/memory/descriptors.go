package memory

import "github.com/poiesic/docit/plugin"

// Descriptors advertises the three memory stores under the name
// "memory" in their respective capability groups. None of them takes
// configuration.
func Descriptors() []plugin.Descriptor {
	return []plugin.Descriptor{
		{
			Name:    "memory",
			Group:   plugin.GroupDocumentStores,
			Factory: func(cfg plugin.Config) (any, error) { return NewDocumentStore(), nil },
		},
		{
			Name:    "memory",
			Group:   plugin.GroupVectorStores,
			Factory: func(cfg plugin.Config) (any, error) { return NewVectorStore(), nil },
		},
		{
			Name:    "memory",
			Group:   plugin.GroupStructuredStores,
			Factory: func(cfg plugin.Config) (any, error) { return NewStructuredStore(), nil },
		},
	}
}
