// Package models provides data model definitions for Inkpad Core.
package models

// Preferences is the flat key/value settings bag. There is exactly one
// preferences record per installation, stored in a single singleton slot.
type Preferences map[string]string

// Clone returns a copy of the preferences bag.
func (p Preferences) Clone() Preferences {
	c := make(Preferences, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

// LabelColorMap maps a label name to its display color.
// Insertion order is irrelevant.
type LabelColorMap map[string]string

// Clone returns a copy of the label color map.
func (m LabelColorMap) Clone() LabelColorMap {
	c := make(LabelColorMap, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
