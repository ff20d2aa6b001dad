package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ankit-chaubey/media-metadata-scrubber/core"
)

// Step is the session's position in the processing cycle.
type Step int

const (
	StepUpload Step = iota
	StepReviewing
	StepDownloading
)

func (s Step) String() string {
	switch s {
	case StepReviewing:
		return "reviewing"
	case StepDownloading:
		return "downloading"
	default:
		return "upload"
	}
}

// Session owns one file at a time and the state derived from it. It is safe
// for concurrent use. Extract and Scrub run without the lock held; a Load or
// Reset that happens meanwhile bumps the generation and the stale call's
// result is discarded with core.ErrSuperseded.
type Session struct {
	d   *Dispatcher
	log *slog.Logger

	mu      sync.Mutex
	step    Step
	busy    bool
	gen     uint64
	file    *core.UploadedFile
	handler core.Handler
	snap    *core.Snapshot
	sel     *core.Selection
	result  *core.ScrubResult
}

// NewSession returns a Session in StepUpload.
func NewSession(d *Dispatcher, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{d: d, log: log}
}

// resetLocked discards everything tied to the current file.
func (s *Session) resetLocked() {
	s.gen++
	s.step = StepUpload
	s.busy = false
	s.file, s.handler, s.snap, s.sel, s.result = nil, nil, nil, nil, nil
}

// Reset returns to StepUpload. An operation still running will have its
// result discarded.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

// Load starts a new cycle with f: it resets, classifies and extracts. On
// success the session moves to StepReviewing with an empty selection; on
// failure it stays in StepUpload and f is discarded.
func (s *Session) Load(ctx context.Context, f *core.UploadedFile) (*core.Snapshot, error) {
	s.mu.Lock()
	s.resetLocked()
	gen := s.gen
	s.busy = true
	s.mu.Unlock()

	h, err := s.d.Route(f)
	var snap *core.Snapshot
	if err == nil {
		snap, err = h.Extract(ctx, f)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return nil, core.ErrSuperseded
	}
	s.busy = false
	if err != nil {
		s.log.Warn("extraction failed", "file", f.Name, "type", f.MediaType, "error", err)
		return nil, err
	}
	s.file, s.handler, s.snap = f, h, snap
	s.sel = core.NewSelection(snap)
	s.step = StepReviewing
	s.log.Info("metadata extracted", "file", f.Name, "kind", h.Kind(), "fields", snap.Len())
	return snap, nil
}

// reviewing checks that selection edits are allowed right now.
func (s *Session) reviewing() error {
	switch {
	case s.file == nil:
		return core.ErrNoFile
	case s.busy:
		return core.ErrBusy
	case s.step != StepReviewing:
		return fmt.Errorf("%w: %s", core.ErrWrongState, s.step)
	}
	return nil
}

// Toggle adds or removes one field from the selection.
func (s *Session) Toggle(name string, included bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reviewing(); err != nil {
		return err
	}
	return s.sel.Toggle(name, included)
}

// SelectAll selects every field of the current snapshot.
func (s *Session) SelectAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reviewing(); err != nil {
		return err
	}
	s.sel.SelectAll()
	return nil
}

// Clear empties the selection.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reviewing(); err != nil {
		return err
	}
	s.sel.Clear()
	return nil
}

// SelectAllState is the derived state of a "select all" checkbox.
func (s *Session) SelectAllState() core.CheckState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.State()
}

// Selected returns the selected names in snapshot order.
func (s *Session) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.Names()
}

// Commit scrubs the current file with the current selection. On success the
// session moves to StepDownloading; on failure it stays in StepReviewing
// with the selection untouched so the caller can retry.
func (s *Session) Commit(ctx context.Context) (*core.ScrubResult, error) {
	s.mu.Lock()
	if err := s.reviewing(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.busy = true
	gen := s.gen
	h, f, snap, sel := s.handler, s.file, s.snap, s.sel
	s.mu.Unlock()

	res, err := h.Scrub(ctx, f, snap, sel)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return nil, core.ErrSuperseded
	}
	s.busy = false
	if err != nil {
		s.log.Warn("scrub failed", "file", f.Name, "error", err)
		return nil, err
	}
	s.result = res
	s.step = StepDownloading
	s.log.Info("file scrubbed", "file", f.Name, "output", res.Name, "fields", sel.Names())
	return res, nil
}

// Step returns the current step.
func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

func (s *Session) File() *core.UploadedFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file
}

func (s *Session) Snapshot() *core.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Result returns the scrub output while in StepDownloading.
func (s *Session) Result() *core.ScrubResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}
