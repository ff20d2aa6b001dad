// Package video handles metadata for video formats by delegating container
// work to a remote video service.
package video

import (
	"context"
	"log/slog"

	"github.com/ankit-chaubey/media-metadata-scrubber/core"
)

const (
	noMetadataStatus = "No readable metadata found in this video."
	degradedStatus   = "Showing basic file information only. The video service could not read this file."
)

// Remote is the capability the handler needs from the video service.
// *Client implements it.
type Remote interface {
	Metadata(ctx context.Context, f *core.UploadedFile) (Fields, error)
	Scrub(ctx context.Context, f *core.UploadedFile, fields []string) ([]byte, error)
}

// Handler implements core.Handler for video.
type Handler struct {
	remote Remote
	log    *slog.Logger
}

// New returns a video Handler backed by remote. A nil logger uses slog.Default().
func New(remote Remote, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{remote: remote, log: log}
}

func (h *Handler) Kind() core.FormatKind { return core.KindVideo }

func (h *Handler) Info() core.FormatInfo {
	return core.FormatInfo{
		Name:       "Video",
		MediaTypes: []string{"video/"},
		Selective:  false,
		Notes: "Read and stripped by the video service. Streams are copied without " +
			"re-encoding; all container metadata is removed.",
	}
}

// Extract never fails on a service error. It returns the file facts known
// locally plus Error and Details fields instead.
func (h *Handler) Extract(ctx context.Context, f *core.UploadedFile) (*core.Snapshot, error) {
	fields, err := h.remote.Metadata(ctx, f)
	if err != nil {
		h.log.Warn("video service read failed, using basic file facts", "file", f.Name, "error", err)
		return degraded(f, err), nil
	}
	snap := &core.Snapshot{Kind: core.KindVideo}
	for _, fld := range fields {
		snap.Set(fld.Name, fld.Value)
	}
	snap.EnsureStatus(noMetadataStatus)
	return snap, nil
}

func degraded(f *core.UploadedFile, err error) *core.Snapshot {
	snap := &core.Snapshot{Kind: core.KindVideo}
	snap.Set("File Name", f.Name)
	snap.Set("File Size", core.FormatMB(f.Size()))
	snap.Set("File Type", f.MediaType)
	if !f.LastModified.IsZero() {
		snap.Set("Last Modified", core.FormatTimestamp(f.LastModified))
	}
	snap.Set("Error", "Failed to read video metadata")
	snap.Set("Details", err.Error())
	snap.Set(core.StatusField, degradedStatus)
	return snap
}

func (h *Handler) Scrub(ctx context.Context, f *core.UploadedFile, snap *core.Snapshot, sel *core.Selection) (*core.ScrubResult, error) {
	if err := core.CheckKind(core.KindVideo, snap); err != nil {
		return nil, err
	}
	data, err := h.remote.Scrub(ctx, f, sel.Names())
	if err != nil {
		return nil, core.NewScrubError(core.KindVideo, err)
	}
	h.log.Debug("video scrubbed", "file", f.Name, "in", f.Size(), "out", len(data))
	return core.NewResult(f, data), nil
}
