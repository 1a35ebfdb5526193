package sector

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Unclassified labels listings no category could be resolved for.
const Unclassified = "Sin Clasificar"

// Category is a curated neighborhood grouping and its known textual variants.
type Category struct {
	Name     string
	Variants []string
}

// Map is the ordered neighborhood taxonomy. Category order is significant:
// the first matching category wins during resolution.
type Map struct {
	Categories []Category
}

func (m Map) Clone() Map {
	out := Map{Categories: make([]Category, len(m.Categories))}
	for i, c := range m.Categories {
		out.Categories[i] = Category{Name: c.Name, Variants: append([]string(nil), c.Variants...)}
	}
	return out
}

func (m Map) index(name string) int {
	for i, c := range m.Categories {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// MarshalJSON writes the map as a JSON object keeping category order.
func (m Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range m.Categories {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		variants := c.Variants
		if variants == nil {
			variants = []string{}
		}
		value, err := json.Marshal(variants)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of category -> variants, preserving the
// document order of categories.
func (m *Map) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to read neighborhood map: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("neighborhood map must be a JSON object")
	}

	var categories []Category
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to read category name: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected category key %v", tok)
		}

		var variants []string
		if err := dec.Decode(&variants); err != nil {
			return fmt.Errorf("failed to read variants for %q: %w", name, err)
		}

		categories = append(categories, Category{Name: name, Variants: variants})
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to close neighborhood map: %w", err)
	}

	m.Categories = categories
	return nil
}
