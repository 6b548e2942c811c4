package badger

import (
	"fmt"

	"github.com/poiesic/docit/core"
)

// Key prefixes for the stored data types. Records carry their
// collection in the key so collections iterate as contiguous ranges.
const (
	documentPrefix = "docrec"
	recordPrefix   = "strec"
)

// makeDocumentKey generates the key for a document by ID.
func makeDocumentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%s", documentPrefix, id))
}

// makeRecordKey generates the key for a structured record.
// Format: prefix:collection:id
func makeRecordKey(collection string, id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", recordPrefix, collection, id))
}

// makeCollectionPrefix generates the iteration prefix for a collection.
func makeCollectionPrefix(collection string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", recordPrefix, collection))
}
