// Package catalog pairs stream identifiers with their output schemas and
// shapes raw API records to match the declared field set.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// Entry pairs one stream with its output schema.
type Entry struct {
	// Stream is the tap stream identifier.
	Stream string `json:"stream"`

	// Schema is the JSON schema records are shaped against. Only the
	// property set is consulted here; deeper validation is the sink's
	// concern.
	Schema map[string]any `json:"schema"`

	// Selected marks whether this stream should be synced.
	Selected bool `json:"selected"`
}

// Catalog is the set of configured stream entries.
type Catalog struct {
	Streams []Entry `json:"streams"`
}

// Load reads a catalog JSON file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var cat Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return &cat, nil
}

// Selected returns the entries marked for syncing, in catalog order.
func (c *Catalog) Selected() []Entry {
	var out []Entry
	for _, e := range c.Streams {
		if e.Selected {
			out = append(out, e)
		}
	}
	return out
}

// Properties returns the schema's declared property names. Nil when the
// schema declares none, which disables trimming.
func (e Entry) Properties() map[string]bool {
	props, ok := e.Schema["properties"].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]bool, len(props))
	for name := range props {
		out[name] = true
	}
	return out
}

// Trim shapes raw records for emission: each record is augmented with the
// added properties (parent keys), then cut down to the schema's property
// set. Input records are not mutated.
func (e Entry) Trim(records []map[string]any, added map[string]any) []map[string]any {
	props := e.Properties()

	out := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		shaped := make(map[string]any, len(rec)+len(added))
		for k, v := range rec {
			shaped[k] = v
		}
		for k, v := range added {
			shaped[k] = v
		}
		if props != nil {
			for k := range shaped {
				if !props[k] {
					delete(shaped, k)
				}
			}
		}
		out = append(out, shaped)
	}
	return out
}
