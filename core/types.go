// Package core defines the shared types, interfaces, and format registry
// for the metadata scrubber.
package core

import (
	"context"
	"time"
)

// UploadedFile is one user-supplied file. It is immutable once accepted.
type UploadedFile struct {
	Name         string    // Declared file name (e.g. "holiday.jpg")
	MediaType    string    // Declared media type (e.g. "image/jpeg")
	Data         []byte    // Raw bytes; read-only after handoff
	LastModified time.Time // Zero when unknown
}

// Size returns the file size in bytes.
func (f *UploadedFile) Size() int64 { return int64(len(f.Data)) }

// MetaField is a single metadata name/value pair.
type MetaField struct {
	Name  string
	Value string
}

// StatusField is the synthetic field emitted when extraction finds nothing.
const StatusField = "Status"

// Snapshot is the ordered field mapping extracted from one file, plus the
// format-specific context the matching scrubber needs.
type Snapshot struct {
	Kind    FormatKind
	Fields  []MetaField
	Context any // Format-specific; only the handler for Kind understands it
}

// Set inserts or replaces a field. Names are unique; a repeated name keeps
// its original position and takes the new value.
func (s *Snapshot) Set(name, value string) {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			s.Fields[i].Value = value
			return
		}
	}
	s.Fields = append(s.Fields, MetaField{Name: name, Value: value})
}

// Get returns the value for name.
func (s *Snapshot) Get(name string) (string, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Has reports whether name is a field of the snapshot.
func (s *Snapshot) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Names returns field names in discovery order.
func (s *Snapshot) Names() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// Len returns the number of fields.
func (s *Snapshot) Len() int { return len(s.Fields) }

// EnsureStatus replaces an empty field list with the single Status field.
func (s *Snapshot) EnsureStatus(msg string) {
	if len(s.Fields) == 0 {
		s.Fields = []MetaField{{Name: StatusField, Value: msg}}
	}
}

// IsStatusOnly reports whether the snapshot carries only the synthetic field.
func (s *Snapshot) IsStatusOnly() bool {
	return len(s.Fields) == 1 && s.Fields[0].Name == StatusField
}

// ScrubResult is a cleaned output file ready for delivery.
type ScrubResult struct {
	Name      string // OutputPrefix + original name
	MediaType string // Original declared media type
	Data      []byte
}

// OutputPrefix is prepended to every cleaned file name.
const OutputPrefix = "scrubbed-"

// OutputName returns the suggested name for the cleaned copy of name.
func OutputName(name string) string { return OutputPrefix + name }

// NewResult builds a ScrubResult for f with the given output bytes.
func NewResult(f *UploadedFile, data []byte) *ScrubResult {
	return &ScrubResult{Name: OutputName(f.Name), MediaType: f.MediaType, Data: data}
}

// Handler is the interface every format family must implement. Both halves
// are required so a format cannot be extracted without being scrubbable.
type Handler interface {
	// Kind returns the format family this handler serves.
	Kind() FormatKind
	// Extract reads metadata from f. It fails with *ParseError on
	// malformed input.
	Extract(ctx context.Context, f *UploadedFile) (*Snapshot, error)
	// Scrub clears the selected fields of f, using the snapshot produced
	// by Extract. It fails with *ScrubError and never returns partial output.
	Scrub(ctx context.Context, f *UploadedFile, snap *Snapshot, sel *Selection) (*ScrubResult, error)
	// Info returns format capabilities.
	Info() FormatInfo
}

// FormatInfo describes what a handler supports.
type FormatInfo struct {
	Name       string
	MediaTypes []string // Media types or prefixes (ending in "/") accepted
	Selective  bool     // Whether Scrub honours the selection per field
	Notes      string
}
