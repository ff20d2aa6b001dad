// Package document handles metadata for document formats:
// PDF (Info dictionary) and OOXML (DOCX, XLSX, PPTX docProps parts).
package document

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ankit-chaubey/media-metadata-scrubber/core"
)

// Options configures a document Handler.
type Options struct {
	Logger *slog.Logger
	// Now returns the time written to reset modification timestamps.
	Now func() time.Time
}

// Handler implements core.Handler for one document kind.
type Handler struct {
	kind core.FormatKind
	log  *slog.Logger
	now  func() time.Time
}

// New returns a document Handler for core.KindPDF or core.KindOffice.
func New(kind core.FormatKind, opts Options) (*Handler, error) {
	if kind != core.KindPDF && kind != core.KindOffice {
		return nil, fmt.Errorf("document handler cannot serve %s", kind)
	}
	h := &Handler{kind: kind, log: opts.Logger, now: opts.Now}
	if h.log == nil {
		h.log = slog.Default()
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h, nil
}

func (h *Handler) Kind() core.FormatKind { return h.kind }

func (h *Handler) Info() core.FormatInfo {
	if h.kind == core.KindPDF {
		return core.FormatInfo{
			Name:       "PDF",
			MediaTypes: []string{core.MIMEPDF},
			Selective:  true,
			Notes: "Author, Creator, Producer, Subject, Title, Keywords and both dates. " +
				"Values are overwritten in place; the modification date is reset to now.",
		}
	}
	return core.FormatInfo{
		Name:       "Office (OOXML)",
		MediaTypes: []string{core.MIMEDocx, core.MIMEXlsx, core.MIMEPptx},
		Selective:  true,
		Notes:      "docProps/core.xml and docProps/app.xml. Other container entries are copied unchanged.",
	}
}

func (h *Handler) Extract(ctx context.Context, f *core.UploadedFile) (*core.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.NewParseError(h.kind, err)
	}
	var (
		snap *core.Snapshot
		err  error
	)
	switch h.kind {
	case core.KindPDF:
		snap, err = extractPDF(f)
	default:
		snap, err = extractOffice(f)
	}
	if err != nil {
		return nil, err
	}
	h.log.Debug("document metadata extracted", "file", f.Name, "kind", h.kind, "fields", snap.Len())
	return snap, nil
}

func (h *Handler) Scrub(ctx context.Context, f *core.UploadedFile, snap *core.Snapshot, sel *core.Selection) (*core.ScrubResult, error) {
	if err := core.CheckKind(h.kind, snap); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, core.NewScrubError(h.kind, err)
	}
	var (
		res *core.ScrubResult
		err error
	)
	switch h.kind {
	case core.KindPDF:
		res, err = scrubPDF(f, snap, sel, h.now())
	default:
		res, err = scrubOffice(f, snap, sel, h.now())
	}
	if err != nil {
		return nil, core.NewScrubError(h.kind, err)
	}
	h.log.Debug("document scrubbed", "file", f.Name, "kind", h.kind, "fields", sel.Names())
	return res, nil
}
