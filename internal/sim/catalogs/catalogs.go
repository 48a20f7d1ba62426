package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
)

type digestDoc struct {
	Tiles   []TileDef `json:"tiles"`
	Items   []ItemDef `json:"items"`
	Recipes []Recipe  `json:"recipes"`
}

var (
	digestOnce sync.Once
	digest     string
)

// Digest fingerprints the compiled-in registries. Peers running a different
// build advertise a different digest in the world document.
func Digest() string {
	digestOnce.Do(func() {
		doc := digestDoc{
			Tiles:   tiles[:],
			Items:   items[:],
			Recipes: Recipes(),
		}
		b, err := json.Marshal(doc)
		if err != nil {
			panic("catalogs: digest: " + err.Error())
		}
		sum := sha256.Sum256(b)
		digest = hex.EncodeToString(sum[:])
	})
	return digest
}
