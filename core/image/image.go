// Package image handles metadata for raster image formats:
// JPEG, PNG, GIF, WebP, TIFF, BMP
package image

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	stdimage "image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"sort"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/ankit-chaubey/media-metadata-scrubber/core"
)

const noMetadataStatus = "No readable EXIF metadata found. The file may not contain any, or it might not be a supported format."

// excludedTags are never emitted: the maker notes blob, free-text user
// comments, the embedded thumbnail and the offsets of the sub-directories.
var excludedTags = map[exif.FieldName]bool{
	exif.MakerNote:                        true,
	exif.UserComment:                      true,
	exif.ThumbJPEGInterchangeFormat:       true,
	exif.ThumbJPEGInterchangeFormatLength: true,

	exif.ExifIFDPointer:             true,
	exif.GPSInfoIFDPointer:          true,
	exif.InteroperabilityIFDPointer: true,
}

// Options configures the image handler.
type Options struct {
	// JPEGQuality is used when re-encoding JPEG output (1-100).
	JPEGQuality int
	Logger      *slog.Logger
}

// Handler implements core.Handler for images.
type Handler struct {
	quality int
	log     *slog.Logger
}

// New returns an image Handler.
func New(opts Options) *Handler {
	h := &Handler{quality: opts.JPEGQuality, log: opts.Logger}
	if h.quality <= 0 || h.quality > 100 {
		h.quality = DefaultJPEGQuality
	}
	if h.log == nil {
		h.log = slog.Default()
	}
	return h
}

func (h *Handler) Kind() core.FormatKind { return core.KindImage }

func (h *Handler) Info() core.FormatInfo {
	return core.FormatInfo{
		Name:       "Image",
		MediaTypes: []string{"image/"},
		Selective:  false,
		Notes: "EXIF and IPTC tags. Scrubbing re-encodes the pixels, so every tag " +
			"is removed regardless of the selection.",
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Extract
// ──────────────────────────────────────────────────────────────────────────────

func (h *Handler) Extract(ctx context.Context, f *core.UploadedFile) (*core.Snapshot, error) {
	_, format, err := stdimage.DecodeConfig(bytes.NewReader(f.Data))
	if err != nil {
		return nil, core.NewParseError(core.KindImage, fmt.Errorf("decode image header: %w", err))
	}

	snap := &core.Snapshot{Kind: core.KindImage}

	if raw := exifPayload(format, f.Data); raw != nil {
		x, err := exif.Decode(bytes.NewReader(raw))
		switch {
		case err == nil:
			addEXIF(x, snap)
		case exif.IsCriticalError(err):
			h.log.Debug("exif unreadable", "file", f.Name, "error", err)
		default:
			// Non-critical errors still leave the parsed tags usable.
			if x != nil {
				addEXIF(x, snap)
			}
		}
	}

	if format == "jpeg" {
		if iptc := jpegSegment(f.Data, 0xED, []byte("Photoshop 3.0\x00")); iptc != nil {
			addIPTC(iptc, snap)
		}
	}

	snap.EnsureStatus(noMetadataStatus)
	return snap, nil
}

type exifEntry struct {
	id    uint16
	name  string
	value string
}

type exifWalker struct {
	entries *[]exifEntry
}

func (w exifWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if excludedTags[name] {
		return nil
	}
	val := tagValue(tag)
	if val == "" {
		return nil
	}
	*w.entries = append(*w.entries, exifEntry{id: tag.Id, name: string(name), value: val})
	return nil
}

// addEXIF emits the walked tags ordered by tag id so output is stable.
func addEXIF(x *exif.Exif, snap *core.Snapshot) {
	var entries []exifEntry
	if err := x.Walk(exifWalker{entries: &entries}); err != nil {
		return
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].id != entries[j].id {
			return entries[i].id < entries[j].id
		}
		return entries[i].name < entries[j].name
	})
	for _, e := range entries {
		snap.Set(e.name, e.value)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Scrub
// ──────────────────────────────────────────────────────────────────────────────

// Scrub re-renders the pixels and re-encodes them. A freshly encoded image
// carries no tag block, so the selection is not consulted.
func (h *Handler) Scrub(ctx context.Context, f *core.UploadedFile, snap *core.Snapshot, sel *core.Selection) (*core.ScrubResult, error) {
	if err := core.CheckKind(core.KindImage, snap); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, core.NewScrubError(core.KindImage, err)
	}
	out, err := reencode(f.Data, f.MediaType, h.quality)
	if err != nil {
		return nil, core.NewScrubError(core.KindImage, err)
	}
	if len(out) == 0 {
		return nil, core.NewScrubError(core.KindImage, errors.New("encoder produced no data"))
	}
	h.log.Debug("image re-encoded", "file", f.Name, "in", len(f.Data), "out", len(out), "selected", sel.Len())
	return core.NewResult(f, out), nil
}
