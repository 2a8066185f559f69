// Package assets embeds the base pattern blocks. Each asset is a front
// flat with the sleeves drawn attached, so the sleeve caps share points
// with the body armholes, and carries a data-height-cm reference
// measurement for unit-scale derivation.
package assets

import (
	"embed"
	"sort"
	"strings"
)

//go:embed tshirt.svg long_sleeve.svg crop_top.svg
var files embed.FS

// All returns pattern id -> raw SVG for every embedded base block.
func All() map[string]string {
	entries, err := files.ReadDir(".")
	if err != nil {
		// The FS is embedded at build time; this cannot fail at runtime.
		panic(err)
	}

	out := make(map[string]string, len(entries))
	for _, entry := range entries {
		data, err := files.ReadFile(entry.Name())
		if err != nil {
			panic(err)
		}
		id := strings.TrimSuffix(entry.Name(), ".svg")
		out[id] = string(data)
	}
	return out
}

// Get returns the raw SVG for one pattern id.
func Get(id string) (string, bool) {
	svg, ok := All()[id]
	return svg, ok
}

// IDs returns the embedded pattern ids in sorted order.
func IDs() []string {
	all := All()
	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
