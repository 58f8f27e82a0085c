// Package models provides data model definitions for Inkpad Core.
package models

import "time"

// Collection represents a notebook grouping documents.
type Collection struct {
	ID        UUID   `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	ParentRef UUID   `json:"parent_ref,omitempty"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (c *Collection) CreatedAtTime() time.Time {
	return time.Unix(c.CreatedAt, 0)
}

// UpdatedAtTime returns the UpdatedAt as time.Time.
func (c *Collection) UpdatedAtTime() time.Time {
	return time.Unix(c.UpdatedAt, 0)
}

// Touch updates the UpdatedAt timestamp.
func (c *Collection) Touch() {
	c.UpdatedAt = time.Now().Unix()
}
