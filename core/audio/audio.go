// Package audio handles metadata for audio formats: ID3v2/ID3v1 tagged
// MP3, and the tag blocks of FLAC, OGG and M4A as read by dhowden/tag.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/dhowden/tag"

	"github.com/ankit-chaubey/media-metadata-scrubber/core"
)

const noMetadataStatus = "No readable audio tags found in this file."

// Handler implements core.Handler for audio.
type Handler struct {
	log *slog.Logger
}

// New returns an audio Handler. A nil logger uses slog.Default().
func New(log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log}
}

func (h *Handler) Kind() core.FormatKind { return core.KindAudio }

func (h *Handler) Info() core.FormatInfo {
	return core.FormatInfo{
		Name:       "Audio",
		MediaTypes: []string{"audio/"},
		Selective:  false,
		Notes: "Title, Artist, Album, Year, Track Number and Genre. Scrubbing removes " +
			"the leading ID3v2 block and the trailing ID3v1 block as a whole.",
	}
}

// tags is the common subset shown for every audio format.
type tags struct {
	title, artist, album, year, track string
	genres                            []string
}

func (t tags) empty() bool {
	return strings.TrimSpace(t.title+t.artist+t.album+t.year+t.track+strings.Join(t.genres, "")) == ""
}

func (t tags) emit(snap *core.Snapshot) {
	add := func(k, v string) {
		if v = strings.TrimSpace(v); v != "" {
			snap.Set(k, v)
		}
	}
	add("Title", t.title)
	add("Artist", t.artist)
	add("Album", t.album)
	add("Year", t.year)
	add("Track Number", t.track)
	add("Genre", strings.Join(t.genres, ", "))
}

// ──────────────────────────────────────────────────────────────────────────────
// Extract
// ──────────────────────────────────────────────────────────────────────────────

func (h *Handler) Extract(ctx context.Context, f *core.UploadedFile) (*core.Snapshot, error) {
	snap := &core.Snapshot{Kind: core.KindAudio}

	var (
		t   tags
		err error
	)
	if bytes.HasPrefix(f.Data, []byte("ID3")) {
		t, err = readID3v2(f.Data)
		if err != nil {
			h.log.Debug("id3v2 parse failed, trying generic reader", "file", f.Name, "error", err)
			t, err = readGeneric(f.Data)
		}
		// A leading ID3v2 block without text frames hides any ID3v1 trailer
		// from the readers above.
		if (err == nil && t.empty()) || errors.Is(err, tag.ErrNoTagsFound) {
			if v1, err1 := readID3v1(f.Data); err1 == nil {
				t, err = v1, nil
			}
		}
	} else {
		t, err = readGeneric(f.Data)
	}
	switch {
	case errors.Is(err, tag.ErrNoTagsFound):
	case err != nil:
		return nil, core.NewParseError(core.KindAudio, err)
	default:
		t.emit(snap)
	}

	snap.EnsureStatus(noMetadataStatus)
	return snap, nil
}

// readID3v2 reads v2.3 and v2.4 frames directly.
func readID3v2(data []byte) (tags, error) {
	tg, err := id3v2.ParseReader(bytes.NewReader(data), id3v2.Options{Parse: true})
	if err != nil {
		return tags{}, err
	}
	defer tg.Close()

	t := tags{
		title:  tg.Title(),
		artist: tg.Artist(),
		album:  tg.Album(),
		year:   tg.Year(),
		track:  tg.GetTextFrame(tg.CommonID("Track number/Position in set")).Text,
	}
	t.genres = splitGenres(tg.Genre())
	return t, nil
}

// readID3v1 reads only the 128-byte trailer.
func readID3v1(data []byte) (tags, error) {
	m, err := tag.ReadID3v1Tags(bytes.NewReader(data))
	if err != nil {
		return tags{}, err
	}
	return fromMetadata(m), nil
}

// readGeneric reads FLAC, OGG, M4A, ID3v2.2 and ID3v1 through dhowden/tag.
func readGeneric(data []byte) (tags, error) {
	m, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return tags{}, err
	}
	return fromMetadata(m), nil
}

func fromMetadata(m tag.Metadata) tags {
	t := tags{
		title:  m.Title(),
		artist: m.Artist(),
		album:  m.Album(),
	}
	if y := m.Year(); y != 0 {
		t.year = strconv.Itoa(y)
	}
	if n, total := m.Track(); n != 0 {
		t.track = strconv.Itoa(n)
		if total != 0 {
			t.track = fmt.Sprintf("%d/%d", n, total)
		}
	}
	t.genres = splitGenres(m.Genre())
	return t
}

// ──────────────────────────────────────────────────────────────────────────────
// Scrub
// ──────────────────────────────────────────────────────────────────────────────

// Scrub strips tag blocks as a whole; the selection is not consulted because
// these blocks cannot be edited per field here.
func (h *Handler) Scrub(ctx context.Context, f *core.UploadedFile, snap *core.Snapshot, sel *core.Selection) (*core.ScrubResult, error) {
	if err := core.CheckKind(core.KindAudio, snap); err != nil {
		return nil, err
	}
	out, err := StripTags(f.Data)
	if err != nil {
		return nil, core.NewScrubError(core.KindAudio, err)
	}
	h.log.Debug("audio tags stripped", "file", f.Name, "removed", len(f.Data)-len(out))
	return core.NewResult(f, out), nil
}
