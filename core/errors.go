package core

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned when an operation is already outstanding.
	ErrBusy = errors.New("another operation is in progress")
	// ErrSuperseded is returned when a reset or new upload discarded the
	// result of an operation that was still running.
	ErrSuperseded = errors.New("operation superseded by a newer file")
	// ErrNoFile is returned when an operation needs a loaded file.
	ErrNoFile = errors.New("no file loaded")
	// ErrWrongState is returned for transitions not allowed from the
	// current step.
	ErrWrongState = errors.New("operation not allowed in current step")
	// ErrUnknownField is returned when selecting a name that is not in
	// the current snapshot.
	ErrUnknownField = errors.New("field not present in metadata")
	// ErrKindMismatch is returned when a snapshot reaches a scrubber for a
	// different format.
	ErrKindMismatch = errors.New("snapshot belongs to a different format")
)

// UnsupportedFormatError reports a declared media type outside every kind.
type UnsupportedFormatError struct {
	MediaType string
}

func (e *UnsupportedFormatError) Error() string {
	if e.MediaType == "" {
		return "unsupported file type: no media type declared"
	}
	return fmt.Sprintf("unsupported file type %q", e.MediaType)
}

// ParseError reports malformed input for a recognised format.
type ParseError struct {
	Kind  FormatKind
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not read %s metadata: %v", e.Kind, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// ScrubError reports a failure while producing the cleaned output.
type ScrubError struct {
	Kind  FormatKind
	Cause error
}

func (e *ScrubError) Error() string {
	return fmt.Sprintf("could not scrub %s metadata: %v", e.Kind, e.Cause)
}

func (e *ScrubError) Unwrap() error { return e.Cause }

// RemoteServiceError reports a failed call to the video service.
type RemoteServiceError struct {
	Op      string // "read" or "scrub"
	Status  int    // HTTP status; 0 when the request never completed
	Message string // Service "error" text
	Details string // Service "details" text
	Cause   error
}

func (e *RemoteServiceError) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("status %d: %s", e.Status, msg)
	}
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return "video service " + e.Op + ": " + msg
}

func (e *RemoteServiceError) Unwrap() error { return e.Cause }

// NewParseError wraps cause as a ParseError for kind.
func NewParseError(kind FormatKind, cause error) error {
	return &ParseError{Kind: kind, Cause: cause}
}

// NewScrubError wraps cause as a ScrubError for kind.
func NewScrubError(kind FormatKind, cause error) error {
	return &ScrubError{Kind: kind, Cause: cause}
}

// CheckKind verifies snap was produced for kind.
func CheckKind(kind FormatKind, snap *Snapshot) error {
	if snap == nil {
		return NewScrubError(kind, errors.New("missing metadata snapshot"))
	}
	if snap.Kind != kind {
		return NewScrubError(kind, fmt.Errorf("%w: got %s", ErrKindMismatch, snap.Kind))
	}
	return nil
}
