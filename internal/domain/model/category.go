package model

import (
	"fmt"
	"strings"
)

// Category is a labeled evaluation template against which a profile record
// is scored. The set is closed; fallback ordering between categories is
// configuration, not a property of the enum itself.
type Category string

const (
	// CategoryEngineering scores records against the engineering template.
	CategoryEngineering Category = "engineering"
	// CategoryProduct scores records against the product template.
	CategoryProduct Category = "product"
	// CategoryDesign scores records against the design template.
	CategoryDesign Category = "design"
)

// Categories returns all known categories in declaration order.
func Categories() []Category {
	return []Category{CategoryEngineering, CategoryProduct, CategoryDesign}
}

// Valid returns true if the Category is one of the known values.
func (c Category) Valid() bool {
	return c == CategoryEngineering || c == CategoryProduct || c == CategoryDesign
}

// UnmarshalText implements encoding.TextUnmarshaler to allow env and JSON
// parsing of category names.
func (c *Category) UnmarshalText(text []byte) error {
	v := Category(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid Category: %q", string(text))
	}
	*c = v
	return nil
}

// FallbackOrder maps a requested category to the ordered list of alternate
// categories the classifier probes when the requested one scores below the
// confidence threshold. The requested category itself never appears in its
// own fallback list.
type FallbackOrder map[Category][]Category

// DefaultFallbackOrder returns the built-in fallback priority table.
func DefaultFallbackOrder() FallbackOrder {
	return FallbackOrder{
		CategoryEngineering: {CategoryProduct, CategoryDesign},
		CategoryProduct:     {CategoryEngineering, CategoryDesign},
		CategoryDesign:      {CategoryProduct, CategoryEngineering},
	}
}

// For returns the fallback list for the requested category, excluding the
// requested category itself even if the table misconfigures it in.
func (f FallbackOrder) For(requested Category) []Category {
	order := f[requested]
	out := make([]Category, 0, len(order))
	for _, c := range order {
		if c == requested || !c.Valid() {
			continue
		}
		out = append(out, c)
	}
	return out
}
