package probe

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ankit-chaubey/media-metadata-scrubber/core"
)

// MP4 reads and strips ISO-BMFF (MP4, MOV, M4V, 3GP) metadata in process.
type MP4 struct{}

// iTunes item atoms in moov/udta/meta/ilst.
var itunesNames = map[string]string{
	"\xa9nam": "Title",
	"\xa9ART": "Artist",
	"\xa9alb": "Album",
	"\xa9day": "Year",
	"\xa9gen": "Genre",
	"\xa9cmt": "Comment",
	"\xa9lyr": "Lyrics",
	"\xa9too": "Encoding Tool",
	"\xa9wrt": "Composer",
	"\xa9xyz": "Location",
	"\xa9mak": "Make",
	"\xa9mod": "Model",
	"\xa9swr": "Software",
	"aART":    "Album Artist",
	"cprt":    "Copyright",
	"desc":    "Description",
	"ldes":    "Long Description",
	"tvsh":    "TV Show Name",
	"tvsn":    "TV Season",
	"tves":    "TV Episode",
	"tven":    "TV Episode Name",
	"purl":    "Podcast URL",
	"catg":    "Category",
	"keyw":    "Keywords",
}

// Boxes whose whole payload is metadata.
var metadataBoxes = map[string]bool{"udta": true, "meta": true, "uuid": true}

// Boxes carrying creation and modification times.
var timedBoxes = map[string]bool{"mvhd": true, "tkhd": true, "mdhd": true}

var topLevel = map[string]bool{"ftyp": true, "moov": true, "mdat": true, "free": true, "skip": true, "wide": true}

var errTruncated = errors.New("truncated box")

// mac epoch used by mvhd/tkhd/mdhd times.
var epoch1904 = time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)

type box struct {
	typ        string
	start, end int // whole box
	body       int // first payload byte
}

func readBox(data []byte, pos, limit int) (box, error) {
	if limit-pos < 8 {
		return box{}, errTruncated
	}
	size := int64(binary.BigEndian.Uint32(data[pos:]))
	b := box{typ: string(data[pos+4 : pos+8]), start: pos, body: pos + 8}
	switch size {
	case 0:
		size = int64(limit - pos)
	case 1:
		if limit-pos < 16 {
			return box{}, errTruncated
		}
		size = int64(binary.BigEndian.Uint64(data[pos+8:]))
		b.body = pos + 16
	}
	if size < int64(b.body-pos) || size > int64(limit-pos) {
		return box{}, fmt.Errorf("%w: %q at %d", errTruncated, b.typ, pos)
	}
	b.end = pos + int(size)
	return b, nil
}

// walk calls fn for every box in [start, end). fn returns true to descend.
func walk(data []byte, start, end, depth int, fn func(b box, depth int) bool) error {
	if depth > 8 {
		return nil
	}
	for pos := start; pos < end; {
		b, err := readBox(data, pos, end)
		if err != nil {
			return err
		}
		if fn(b, depth) {
			body := b.body
			if b.typ == "meta" && isFullMeta(data, b) {
				body += 4
			}
			if err := walk(data, body, b.end, depth+1, fn); err != nil {
				return err
			}
		}
		pos = b.end
	}
	return nil
}

// isFullMeta reports whether a meta box has the ISO version/flags prefix.
// QuickTime writes meta without it.
func isFullMeta(data []byte, b box) bool {
	return b.end-b.body >= 12 && string(data[b.body+4:b.body+8]) != "hdlr"
}

func isContainer(typ string) bool {
	switch typ {
	case "moov", "trak", "mdia", "udta", "meta", "ilst":
		return true
	}
	return false
}

func checkISO(data []byte) error {
	if len(data) < 8 || !topLevel[string(data[4:8])] {
		return ErrUnsupportedContainer
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Probe
// ──────────────────────────────────────────────────────────────────────────────

func (MP4) Probe(ctx context.Context, path string) ([]core.MetaField, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ReadMP4(data)
}

// ReadMP4 lists container facts and iTunes tags from an ISO-BMFF buffer.
func ReadMP4(data []byte) ([]core.MetaField, error) {
	if err := checkISO(data); err != nil {
		return nil, err
	}
	var (
		facts, tags fieldList
		resolution  string
	)
	err := walk(data, 0, len(data), 0, func(b box, depth int) bool {
		p := data[b.body:b.end]
		switch {
		case b.typ == "ftyp" && len(p) >= 4:
			facts.add("Major Brand", strings.TrimSpace(string(p[:4])))
		case b.typ == "mvhd":
			readMovieHeader(p, &facts)
		case b.typ == "tkhd" && resolution == "":
			resolution = trackResolution(p)
		case b.typ == "----":
			if key, val := parseFreeform(p); key != "" {
				tags.add(key, val)
			}
		case itunesNames[b.typ] != "":
			tags.add(itunesNames[b.typ], itemValue(p))
		}
		return isContainer(b.typ)
	})
	if err != nil {
		return nil, err
	}
	facts.add("Resolution", resolution)
	return append(facts, tags...), nil
}

func readMovieHeader(p []byte, out *fieldList) {
	if len(p) < 20 {
		return
	}
	var ctime, mtime, scale, dur uint64
	if p[0] == 1 {
		if len(p) < 32 {
			return
		}
		ctime = binary.BigEndian.Uint64(p[4:])
		mtime = binary.BigEndian.Uint64(p[12:])
		scale = uint64(binary.BigEndian.Uint32(p[20:]))
		dur = binary.BigEndian.Uint64(p[24:])
	} else {
		ctime = uint64(binary.BigEndian.Uint32(p[4:]))
		mtime = uint64(binary.BigEndian.Uint32(p[8:]))
		scale = uint64(binary.BigEndian.Uint32(p[12:]))
		dur = uint64(binary.BigEndian.Uint32(p[16:]))
	}
	if scale > 0 {
		out.add("Duration", formatDuration(float64(dur)/float64(scale)))
	}
	if ctime != 0 {
		out.add("Creation Time", core.FormatTimestamp(epoch1904.Add(time.Duration(ctime)*time.Second)))
	}
	if mtime != 0 {
		out.add("Modification Time", core.FormatTimestamp(epoch1904.Add(time.Duration(mtime)*time.Second)))
	}
}

// trackResolution reads the 16.16 fixed-point width and height that end a
// tkhd box. Audio tracks carry zeros.
func trackResolution(p []byte) string {
	off := 76
	if len(p) > 0 && p[0] == 1 {
		off = 88
	}
	if len(p) < off+8 {
		return ""
	}
	w := binary.BigEndian.Uint32(p[off:]) >> 16
	h := binary.BigEndian.Uint32(p[off+4:]) >> 16
	if w == 0 || h == 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", w, h)
}

// itemValue decodes the child data atom of an ilst item:
// size, "data", type (4), locale (4), value.
func itemValue(p []byte) string {
	if len(p) < 16 || string(p[4:8]) != "data" {
		return ""
	}
	if typ := binary.BigEndian.Uint32(p[8:12]) & 0xFFFFFF; typ != 1 {
		return ""
	}
	size := int(binary.BigEndian.Uint32(p[:4]))
	if size < 16 || size > len(p) {
		size = len(p)
	}
	return strings.TrimRight(string(p[16:size]), "\x00")
}

// parseFreeform reads a ----/mean/name/data item into "domain:name".
func parseFreeform(p []byte) (key, val string) {
	var domain, name string
	for i := 0; i+12 <= len(p); {
		size := int(binary.BigEndian.Uint32(p[i:]))
		if size < 12 || i+size > len(p) {
			break
		}
		payload := p[i+12 : i+size]
		switch string(p[i+4 : i+8]) {
		case "mean":
			domain = string(payload)
		case "name":
			name = string(payload)
		case "data":
			if len(payload) >= 4 {
				val = string(payload[4:])
			}
		}
		i += size
	}
	if name == "" || val == "" {
		return "", ""
	}
	if domain != "" {
		return domain + ":" + name, val
	}
	return name, val
}

// ──────────────────────────────────────────────────────────────────────────────
// Strip
// ──────────────────────────────────────────────────────────────────────────────

func (MP4) Strip(ctx context.Context, in, out string) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	cleaned, _, err := StripMP4(data)
	if err != nil {
		return err
	}
	return os.WriteFile(out, cleaned, 0o600)
}

// StripMP4 returns a copy of data with every udta, meta and uuid box turned
// into a zero-filled free box and every header timestamp zeroed. Box sizes
// and offsets are unchanged, so chunk offset tables stay valid. The count of
// edited boxes is returned.
func StripMP4(data []byte) ([]byte, int, error) {
	if err := checkISO(data); err != nil {
		return nil, 0, err
	}
	out := append([]byte(nil), data...)
	edited := 0
	err := walk(out, 0, len(out), 0, func(b box, depth int) bool {
		switch {
		case metadataBoxes[b.typ]:
			copy(out[b.start+4:], "free")
			clear(out[b.body:b.end])
			edited++
			return false
		case timedBoxes[b.typ]:
			if zeroTimes(out[b.body:b.end]) {
				edited++
			}
			return false
		}
		return b.typ == "moov" || b.typ == "trak" || b.typ == "mdia"
	})
	if err != nil {
		return nil, 0, err
	}
	return out, edited, nil
}

func zeroTimes(p []byte) bool {
	n := 8
	if len(p) > 0 && p[0] == 1 {
		n = 16
	}
	if len(p) < 4+n {
		return false
	}
	clear(p[4 : 4+n])
	return true
}
