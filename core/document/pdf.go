package document

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/klauspost/compress/zlib"

	"github.com/ankit-chaubey/media-metadata-scrubber/core"
)

// ─── PDF ─────────────────────────────────────────────────────────────────────

const pdfNoMetadataStatus = "No readable metadata found in this PDF."

// pdfProperty maps an Info dictionary key to its display name.
type pdfProperty struct {
	key  string
	name string
	date bool
}

// pdfProperties are the eight document properties, in display order.
var pdfProperties = []pdfProperty{
	{key: "Author", name: "Author"},
	{key: "Creator", name: "Creator"},
	{key: "Producer", name: "Producer"},
	{key: "Subject", name: "Subject"},
	{key: "Title", name: "Title"},
	{key: "Keywords", name: "Keywords"},
	{key: "CreationDate", name: "Creation Date", date: true},
	{key: "ModDate", name: "Modification Date", date: true},
}

// pdfDocument is the parsed document handle carried from extraction to
// scrubbing. The original bytes are never modified.
type pdfDocument struct {
	file   *pdfFile
	values map[string]location // display name → value token
	info   *infoDict
}

// infoDict is the Info dictionary as found, kept for rebuilding it in an
// incremental update.
type infoDict struct {
	num, gen int
	src      []byte
	entries  []dictEntry
}

func loadPDF(data []byte) (*pdfDocument, error) {
	head := data[:min(len(data), 1024)]
	if !bytes.Contains(head, []byte("%PDF-")) {
		return nil, errors.New("missing %PDF header")
	}
	if reEncrypt.Match(data) {
		return nil, errors.New("encrypted documents are not supported")
	}

	doc := &pdfDocument{file: &pdfFile{data: data}, values: map[string]location{}}
	refs := reInfoRef.FindAllSubmatch(data, -1)
	if len(refs) == 0 {
		return doc, nil
	}
	last := refs[len(refs)-1]
	num, _ := strconv.Atoi(string(last[1]))
	gen, _ := strconv.Atoi(string(last[2]))

	src, stream, body, ok := doc.file.findObject(num, gen)
	if !ok {
		return nil, fmt.Errorf("info dictionary %d %d R not found", num, gen)
	}
	entries, _, err := parseDict(src, body)
	if err != nil {
		return nil, fmt.Errorf("info dictionary: %w", err)
	}
	doc.info = &infoDict{num: num, gen: gen, src: src, entries: entries}

	for _, prop := range pdfProperties {
		e, ok := lookup(entries, prop.key)
		if !ok {
			continue
		}
		loc := location{stream: stream, start: e.start, end: e.end}
		if n, g, isRef := parseRef(src[e.start:e.end]); isRef {
			rsrc, rstream, rbody, found := doc.file.findObject(n, g)
			if !found {
				continue
			}
			end, err := valueEnd(rsrc, rbody)
			if err != nil {
				continue
			}
			loc = location{stream: rstream, start: rbody, end: end}
		}
		doc.values[prop.name] = loc
	}
	return doc, nil
}

func (d *pdfDocument) source(loc location) []byte {
	if loc.stream != nil {
		return loc.stream.content
	}
	return d.file.data
}

// text returns the decoded string value of a property, or "".
func (d *pdfDocument) text(name string) string {
	loc, ok := d.values[name]
	if !ok {
		return ""
	}
	raw, ok := stringBytes(d.source(loc)[loc.start:loc.end])
	if !ok {
		return ""
	}
	return textString(raw)
}

func extractPDF(f *core.UploadedFile) (*core.Snapshot, error) {
	doc, err := loadPDF(f.Data)
	if err != nil {
		return nil, core.NewParseError(core.KindPDF, err)
	}
	snap := &core.Snapshot{Kind: core.KindPDF, Context: doc}
	for _, prop := range pdfProperties {
		v := doc.text(prop.name)
		if v == "" {
			continue
		}
		if prop.date {
			if t, ok := parsePDFDate(v); ok {
				v = core.FormatTimestamp(t)
			}
		}
		snap.Set(prop.name, v)
	}
	snap.EnsureStatus(pdfNoMetadataStatus)
	return snap, nil
}

// scrubPDF overwrites each selected value in place, padded with spaces to
// its original width, so object offsets and every other byte stay intact.
// A value or object stream that cannot be rewritten at its old width is
// blanked in place instead, and the cleared Info dictionary is appended as
// an incremental update.
func scrubPDF(f *core.UploadedFile, snap *core.Snapshot, sel *core.Selection, now time.Time) (*core.ScrubResult, error) {
	doc, ok := snap.Context.(*pdfDocument)
	if !ok || doc == nil {
		return nil, errors.New("snapshot carries no PDF document")
	}

	out := append([]byte(nil), doc.file.data...)
	streamEdits := map[*objStream][]byte{}
	update := false

	for _, prop := range pdfProperties {
		if !sel.Contains(prop.name) {
			continue
		}
		loc, ok := doc.values[prop.name]
		if !ok {
			continue
		}
		width := loc.end - loc.start
		repl, fits := pdfReplacement(prop.key, width, now)
		if !fits {
			repl = blankToken(width)
			update = true
		}
		if loc.stream == nil {
			copy(out[loc.start:loc.end], repl)
			continue
		}
		content, ok := streamEdits[loc.stream]
		if !ok {
			content = append([]byte(nil), loc.stream.content...)
			streamEdits[loc.stream] = content
		}
		copy(content[loc.start:loc.end], repl)
	}

	var moved []pdfObject
	for s, content := range streamEdits {
		if err := rewriteStream(out, s, content); err == nil {
			continue
		}
		// The objects move to the update; the stream keeps only placeholders.
		if err := rewriteStream(out, s, blankStream(s, content)); err != nil {
			return nil, fmt.Errorf("object stream at offset %d: %w", s.dataStart, err)
		}
		moved = append(moved, streamObjects(s, content)...)
		update = true
	}

	if update {
		var err error
		if out, err = appendInfoUpdate(out, doc, sel, now, moved); err != nil {
			return nil, err
		}
	}
	return core.NewResult(f, out), nil
}

// rewriteStream recompresses an edited object stream into the space of the
// original. The stream keeps its declared length; unused bytes become
// newlines after the end of the zlib data. out is untouched on error.
func rewriteStream(out []byte, s *objStream, content []byte) error {
	packed, err := deflate(content)
	if err != nil {
		return err
	}
	if len(packed) > s.dataLen {
		return fmt.Errorf("recompressed object stream is %d bytes, only %d available", len(packed), s.dataLen)
	}
	region := out[s.dataStart : s.dataStart+s.dataLen]
	n := copy(region, packed)
	for i := n; i < len(region); i++ {
		region[i] = '\n'
	}
	return nil
}

func deflate(content []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(content); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// clearedValues returns the replacement tokens for key, longest first.
func clearedValues(key string, now time.Time) []string {
	switch key {
	case "CreationDate":
		return dateCandidates(time.Unix(0, 0).UTC())
	case "ModDate":
		return dateCandidates(now.UTC())
	}
	return []string{"()"}
}

// pdfReplacement builds the cleared token for key that fits in width bytes.
func pdfReplacement(key string, width int, now time.Time) ([]byte, bool) {
	for _, c := range clearedValues(key, now) {
		if len(c) <= width {
			return append([]byte(c), bytes.Repeat([]byte(" "), width-len(c))...), true
		}
	}
	return nil, false
}

// blankToken is an empty value of exactly width bytes.
func blankToken(width int) []byte {
	if width < 2 {
		return bytes.Repeat([]byte("0"), width)
	}
	return append([]byte("()"), bytes.Repeat([]byte(" "), width-2)...)
}

// dateCandidates returns t as PDF date strings from most to least precise.
func dateCandidates(t time.Time) []string {
	full := t.Format("20060102150405")
	return []string{
		"(D:" + full + "Z)",
		"(D:" + full + ")",
		"(D:" + full[:12] + ")",
		"(D:" + full[:10] + ")",
		"(D:" + full[:8] + ")",
		"(D:" + full[:6] + ")",
		"(D:" + full[:4] + ")",
	}
}

// parsePDFDate parses "D:YYYYMMDDHHmmSSOHH'mm'" with every part after the
// year optional.
func parsePDFDate(s string) (time.Time, bool) {
	if len(s) >= 2 && s[:2] == "D:" {
		s = s[2:]
	}
	digits := 0
	for digits < len(s) && digits < 14 && s[digits] >= '0' && s[digits] <= '9' {
		digits++
	}
	if digits < 4 {
		return time.Time{}, false
	}
	num := func(from, to, def int) int {
		if to > digits {
			return def
		}
		v, _ := strconv.Atoi(s[from:to])
		return v
	}
	year := num(0, 4, 0)
	month := num(4, 6, 1)
	day := num(6, 8, 1)
	hour := num(8, 10, 0)
	minute := num(10, 12, 0)
	sec := num(12, 14, 0)

	loc := time.UTC
	rest := s[digits:]
	if len(rest) >= 3 && (rest[0] == '+' || rest[0] == '-') {
		oh, err := strconv.Atoi(rest[1:3])
		if err == nil {
			om := 0
			if len(rest) >= 6 && rest[3] == '\'' {
				om, _ = strconv.Atoi(rest[4:6])
			}
			offset := oh*3600 + om*60
			if rest[0] == '-' {
				offset = -offset
			}
			loc = time.FixedZone("", offset)
		}
	}
	return time.Date(year, time.Month(month), day, hour, minute, sec, 0, loc), true
}
