package document

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"time"

	"github.com/ankit-chaubey/media-metadata-scrubber/core"
)

// ─── Incremental update ──────────────────────────────────────────────────────

var reStartXref = regexp.MustCompile(`startxref\s+(\d+)`)

// pdfObject is an object to be written in an update section.
type pdfObject struct {
	num, gen int
	body     []byte
}

// pdfTrailer holds what a new trailer must carry over from the last one.
type pdfTrailer struct {
	xref int // offset of the last cross-reference section
	size int
	root []byte
	id   []byte
}

// lastTrailer reads the trailer named by the final startxref, either a
// classic "xref ... trailer << >>" section or a cross-reference stream.
func lastTrailer(data []byte) (*pdfTrailer, error) {
	all := reStartXref.FindAllSubmatch(data, -1)
	if len(all) == 0 {
		return nil, errors.New("no startxref")
	}
	off, _ := strconv.Atoi(string(all[len(all)-1][1]))
	if off <= 0 || off >= len(data) {
		return nil, fmt.Errorf("startxref %d out of range", off)
	}

	p := skipWS(data, off)
	var dictAt int
	if bytes.HasPrefix(data[p:], []byte("xref")) {
		i := bytes.Index(data[p:], []byte("trailer"))
		if i < 0 {
			return nil, errors.New("xref section without trailer")
		}
		dictAt = skipWS(data, p+i+len("trailer"))
	} else {
		m := reObjStart.FindIndex(data[p:])
		if m == nil || m[0] != 0 {
			return nil, fmt.Errorf("no cross-reference data at offset %d", off)
		}
		dictAt = skipWS(data, p+m[1])
	}

	entries, _, err := parseDict(data, dictAt)
	if err != nil {
		return nil, fmt.Errorf("trailer: %w", err)
	}
	root, ok := lookup(entries, "Root")
	if !ok {
		return nil, errors.New("trailer has no /Root")
	}
	tr := &pdfTrailer{xref: off, root: data[root.start:root.end]}
	if e, ok := lookup(entries, "Size"); ok {
		tr.size, _ = strconv.Atoi(string(data[e.start:e.end]))
	}
	if e, ok := lookup(entries, "ID"); ok {
		tr.id = data[e.start:e.end]
	}
	return tr, nil
}

// streamObjects returns the objects of s as found in content, in stream order.
func streamObjects(s *objStream, content []byte) []pdfObject {
	spans := s.spans(len(content))
	objs := make([]pdfObject, 0, len(spans))
	for _, sp := range spans {
		objs = append(objs, pdfObject{num: sp.num, body: bytes.TrimSpace(content[sp.start:sp.end])})
	}
	return objs
}

// blankStream replaces every object in content with null, keeping the header
// and all offsets.
func blankStream(s *objStream, content []byte) []byte {
	out := append([]byte(nil), content...)
	for _, sp := range s.spans(len(out)) {
		region := out[sp.start:sp.end]
		for i := range region {
			region[i] = ' '
		}
		copy(region, "null")
	}
	return out
}

type objSpan struct {
	num        int
	start, end int
}

// spans returns the byte range of each object, ordered by offset.
func (s *objStream) spans(size int) []objSpan {
	var out []objSpan
	for num, off := range s.offsets {
		if start := s.first + off; start < size {
			out = append(out, objSpan{num: num, start: start})
		}
	}
	slices.SortFunc(out, func(a, b objSpan) int { return a.start - b.start })
	for i := range out {
		out[i].end = size
		if i+1 < len(out) {
			out[i].end = out[i+1].start
		}
	}
	return out
}

// clearedInfo rebuilds the Info dictionary with the selected values cleared
// at full precision. Other entries are copied as they were.
func (d *pdfDocument) clearedInfo(sel *core.Selection, now time.Time) []byte {
	var b bytes.Buffer
	b.WriteString("<<")
	for _, e := range d.info.entries {
		val := d.info.src[e.start:e.end]
		for _, prop := range pdfProperties {
			if prop.key == e.key && sel.Contains(prop.name) {
				val = []byte(clearedValues(prop.key, now)[0])
			}
		}
		fmt.Fprintf(&b, " /%s %s", e.key, val)
	}
	b.WriteString(" >>")
	return b.Bytes()
}

// appendInfoUpdate appends an update section holding the rebuilt Info
// dictionary and any objects moved out of object streams, with a trailer
// whose /Prev chains to the original cross-reference data.
func appendInfoUpdate(out []byte, doc *pdfDocument, sel *core.Selection, now time.Time, moved []pdfObject) ([]byte, error) {
	if doc.info == nil {
		return nil, errors.New("no Info dictionary to update")
	}
	tr, err := lastTrailer(doc.file.data)
	if err != nil {
		return nil, fmt.Errorf("appending update: %w", err)
	}

	info := pdfObject{num: doc.info.num, gen: doc.info.gen, body: doc.clearedInfo(sel, now)}
	objs := slices.DeleteFunc(slices.Clone(moved), func(o pdfObject) bool { return o.num == info.num })
	objs = append(objs, info)
	slices.SortFunc(objs, func(a, b pdfObject) int { return a.num - b.num })

	var buf bytes.Buffer
	buf.Write(out)
	if !bytes.HasSuffix(out, []byte("\n")) {
		buf.WriteByte('\n')
	}
	size := tr.size
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d %d obj\n%s\nendobj\n", o.num, o.gen, o.body)
		size = max(size, o.num+1)
	}

	xref := buf.Len()
	buf.WriteString("xref\n")
	for i, o := range objs {
		fmt.Fprintf(&buf, "%d 1\n%010d %05d n \n", o.num, offsets[i], o.gen)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %s /Info %d %d R /Prev %d", size, tr.root, info.num, info.gen, tr.xref)
	if tr.id != nil {
		fmt.Fprintf(&buf, " /ID %s", tr.id)
	}
	fmt.Fprintf(&buf, " >>\nstartxref\n%d\n%%%%EOF\n", xref)
	return buf.Bytes(), nil
}
