// Package pipeline routes files to format handlers and runs the
// upload → review → download cycle for one file at a time.
package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ankit-chaubey/media-metadata-scrubber/core"
	"github.com/ankit-chaubey/media-metadata-scrubber/core/audio"
	"github.com/ankit-chaubey/media-metadata-scrubber/core/document"
	"github.com/ankit-chaubey/media-metadata-scrubber/core/image"
	"github.com/ankit-chaubey/media-metadata-scrubber/core/video"
)

// Dispatcher holds exactly one Handler per FormatKind.
type Dispatcher struct {
	handlers map[core.FormatKind]core.Handler
}

// NewDispatcher fails unless handlers cover every kind in core.Kinds
// exactly once.
func NewDispatcher(handlers ...core.Handler) (*Dispatcher, error) {
	d := &Dispatcher{handlers: make(map[core.FormatKind]core.Handler, len(handlers))}
	for _, h := range handlers {
		k := h.Kind()
		if k == core.KindUnsupported {
			return nil, fmt.Errorf("handler %T claims the unsupported kind", h)
		}
		if _, dup := d.handlers[k]; dup {
			return nil, fmt.Errorf("duplicate handler for %s", k)
		}
		d.handlers[k] = h
	}
	for _, k := range core.Kinds {
		if _, ok := d.handlers[k]; !ok {
			return nil, fmt.Errorf("no handler registered for %s", k)
		}
	}
	return d, nil
}

// Route classifies f by its declared media type and returns its handler.
func (d *Dispatcher) Route(f *core.UploadedFile) (core.Handler, error) {
	kind, err := core.Classify(f.MediaType)
	if err != nil {
		return nil, err
	}
	return d.handlers[kind], nil
}

// Handlers lists handlers in core.Kinds order.
func (d *Dispatcher) Handlers() []core.Handler {
	out := make([]core.Handler, 0, len(core.Kinds))
	for _, k := range core.Kinds {
		out = append(out, d.handlers[k])
	}
	return out
}

// Options configures the standard handler set.
type Options struct {
	Logger      *slog.Logger
	JPEGQuality int
	// VideoService is the base URL of the remote video service.
	VideoService   string
	RequestTimeout time.Duration
	// Video overrides the HTTP client built from VideoService.
	Video video.Remote
	Now   func() time.Time
}

// New builds a Dispatcher with the standard handler for every kind.
func New(opts Options) (*Dispatcher, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	pdf, err := document.New(core.KindPDF, document.Options{Logger: log, Now: opts.Now})
	if err != nil {
		return nil, err
	}
	office, err := document.New(core.KindOffice, document.Options{Logger: log, Now: opts.Now})
	if err != nil {
		return nil, err
	}
	remote := opts.Video
	if remote == nil {
		remote = video.NewClient(opts.VideoService, opts.RequestTimeout)
	}
	return NewDispatcher(
		image.New(image.Options{JPEGQuality: opts.JPEGQuality, Logger: log}),
		pdf,
		office,
		audio.New(log),
		video.New(remote, log),
	)
}
