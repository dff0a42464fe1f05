package state

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash"
	snapdiff "github.com/goliatone/go-snapdiff"
	"github.com/goliatone/go-snapdiff/document"
)

// Fingerprint hashes the canonical JSON form of doc. Equal fingerprints imply
// equal documents; the converse does not hold because sequences are compared
// order-insensitively by the engine but hashed in order.
func Fingerprint(doc snapdiff.Document) (string, error) {
	raw, err := json.Marshal(document.Normalize(doc))
	if err != nil {
		return "", fmt.Errorf("state: fingerprint: %w", err)
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(raw)), nil
}
