package repo

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	tupleSize   = 3
	tupleLevels = 3

	inventoryFile = "inventory.json"
	contentDir    = "content"
)

// objectRoot maps an object id to its storage root using a hashed n-tuple
// layout: the digest is split into tupleLevels directories of tupleSize
// characters, followed by the full digest.
func objectRoot(objectID string) string {
	digest := fmt.Sprintf("%016x", xxhash.Sum64String(objectID))

	parts := make([]string, 0, tupleLevels+1)
	for i := range tupleLevels {
		parts = append(parts, digest[i*tupleSize:(i+1)*tupleSize])
	}
	parts = append(parts, digest)
	return strings.Join(parts, "/")
}

func inventoryKey(root string) string {
	return root + "/" + inventoryFile
}

func contentKey(root, version, relPath string) string {
	return root + "/" + version + "/" + contentDir + "/" + relPath
}
