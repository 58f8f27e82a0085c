// Package models provides data model definitions for Inkpad Core.
package models

import (
	"time"
)

// UUID is a wrapper around string for UUID v4 type safety.
type UUID string

// String returns the string representation of the UUID.
func (u UUID) String() string {
	return string(u)
}

// DocumentStatus represents the workflow status of a document.
type DocumentStatus string

const (
	StatusActive   DocumentStatus = "active"
	StatusArchived DocumentStatus = "archived"
)

// Document represents a single note. The ID is assigned at creation and
// never changes; it is the coalescing key for the write-behind cache.
type Document struct {
	ID            UUID           `json:"id"`
	Title         string         `json:"title"`
	Body          string         `json:"body"`
	CollectionRef UUID           `json:"collection_ref,omitempty"`
	Labels        []string       `json:"labels,omitempty"`
	Status        DocumentStatus `json:"status"`
	Pinned        bool           `json:"pinned"`
	Trashed       bool           `json:"trashed"`
	TrashedAt     *int64         `json:"trashed_at,omitempty"`
	CreatedAt     int64          `json:"created_at"`
	UpdatedAt     int64          `json:"updated_at"`
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (d *Document) CreatedAtTime() time.Time {
	return time.Unix(d.CreatedAt, 0)
}

// UpdatedAtTime returns the UpdatedAt as time.Time.
func (d *Document) UpdatedAtTime() time.Time {
	return time.Unix(d.UpdatedAt, 0)
}

// Touch updates the UpdatedAt timestamp. Called on every successful
// physical write, never on enqueue alone.
func (d *Document) Touch() {
	d.UpdatedAt = time.Now().Unix()
}

// MoveToTrash flips the soft-delete flag and stamps TrashedAt.
// The document is never physically removed by this operation.
func (d *Document) MoveToTrash() {
	now := time.Now().Unix()
	d.Trashed = true
	d.TrashedAt = &now
}

// Restore flips the soft-delete flag back.
func (d *Document) Restore() {
	d.Trashed = false
	d.TrashedAt = nil
}

// HasLabel reports whether the document carries the given label.
func (d *Document) HasLabel(label string) bool {
	for _, l := range d.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// AddLabel adds a label, preserving set semantics.
func (d *Document) AddLabel(label string) {
	if !d.HasLabel(label) {
		d.Labels = append(d.Labels, label)
	}
}

// RemoveLabel removes a label if present.
func (d *Document) RemoveLabel(label string) {
	for i, l := range d.Labels {
		if l == label {
			d.Labels = append(d.Labels[:i], d.Labels[i+1:]...)
			return
		}
	}
}

// Clone returns a deep copy of the document. The coalescer stores clones
// so a caller mutating its copy after Enqueue cannot alter pending state.
func (d *Document) Clone() *Document {
	c := *d
	if d.Labels != nil {
		c.Labels = append([]string(nil), d.Labels...)
	}
	if d.TrashedAt != nil {
		ts := *d.TrashedAt
		c.TrashedAt = &ts
	}
	return &c
}

// Equal reports whether two documents hold the same state.
// Used by the post-write verification read-back.
func (d *Document) Equal(other *Document) bool {
	if other == nil {
		return false
	}
	if d.ID != other.ID || d.Title != other.Title || d.Body != other.Body ||
		d.CollectionRef != other.CollectionRef || d.Status != other.Status ||
		d.Pinned != other.Pinned || d.Trashed != other.Trashed ||
		d.CreatedAt != other.CreatedAt || d.UpdatedAt != other.UpdatedAt {
		return false
	}
	if (d.TrashedAt == nil) != (other.TrashedAt == nil) {
		return false
	}
	if d.TrashedAt != nil && *d.TrashedAt != *other.TrashedAt {
		return false
	}
	if len(d.Labels) != len(other.Labels) {
		return false
	}
	for i := range d.Labels {
		if d.Labels[i] != other.Labels[i] {
			return false
		}
	}
	return true
}
