// Package types defines the shared data types for strata.
package types

// Record is a single produced item flowing through the export pipeline.
// Records arrive one at a time from a feed reader and land in exactly
// one chunk.
type Record struct {
	// ItemType is an optional caller-defined type label.
	ItemType string `json:"item_type,omitempty" msgpack:"item_type"`
	// Data is the record payload. Encoders serialize Data, not the
	// surrounding Record, so the exported artifact contains flat items.
	Data map[string]any `json:"data" msgpack:"data"`
}

// NewRecord creates a record with the given payload.
func NewRecord(data map[string]any) *Record {
	return &Record{Data: data}
}
